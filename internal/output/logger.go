/*
PURPOSE:
  Provides the structured logger shared by every package.
  Wraps slog for consistent output.

REQUIREMENTS:
  User-specified:
  - "Sane" CLI output. Not spammy.

  Implementation-discovered:
  - The HTTP facade runs under process supervisors that ingest JSON logs;
    the CLI is read by humans. Both formats are needed.
  - Logs go to stderr so stdout stays clean for --json output.

ARCHITECTURE INTEGRATION:
  - Used everywhere.
  - Configured by: internal/cli/root.go (PersistentPreRunE).

ERROR HANDLING:
  - Configure rejects unknown formats and levels.

IMPLEMENTATION RULES:
  - Use `log/slog`.

USAGE:
  output.Logger.Info("message", "key", "value")

SELF-HEALING INSTRUCTIONS:
  - If logs vanish, check log_level in the config file.

RELATED FILES:
  - All.

MAINTENANCE:
  - Add handlers here, not at call sites.
*/

package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// SetLogger allows overriding the default logger (e.g. for testing or config changes)
func SetLogger(l *slog.Logger) {
	Logger = l
}

// Configure replaces Logger with a handler for format ("text" or "json")
// at level ("debug", "info", "warn", "error").
func Configure(w io.Writer, format, level string) error {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "", "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		SetLogger(slog.New(slog.NewTextHandler(w, opts)))
	case "json":
		SetLogger(slog.New(slog.NewJSONHandler(w, opts)))
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}
