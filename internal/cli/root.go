/*
PURPOSE:
  Defines the root Cobra command for the Donut Runner CLI.
  Handles global flags, configuration loading and logging setup.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Every command can work locally or against a remote server (--server).
  - Ctrl-C must kill a running benchmark, so commands get a signal context.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/donut-runner/main.go
  - Calls: Child commands (serve, run, bench, compare, ...)
  - Modifies: output.Logger and color.NoColor.

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands, Root only loads shared state.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init() and applyFlags().

RELATED FILES:
  - cmd/donut-runner/main.go
  - internal/cli/backend.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/daryltucker/donut-runner/internal/config"
	"github.com/daryltucker/donut-runner/internal/output"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// errRunFailed is returned when a benchmark ran but did not succeed. The
// result has already been printed.
var errRunFailed = errors.New("benchmark run failed")

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile string

	serverURL   string
	apiKey      string
	programPath string
	workDir     string
	logLevel    string
	logFormat   string
	jsonOutput  bool
	noColor     bool

	// cfg is loaded in PersistentPreRunE.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "donut-runner",
		Short: "Configure, run and interpret DonutBuffer ring buffer benchmarks",
		Long: `A facade over the DonutBuffer benchmark program. Turns plain-language requirements
into configurations, runs the program under a timeout and explains the results.
Use 'serve' for the HTTP API, or any other command locally (or against a remote
server with --server).`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

// Execute executes the root command. SIGINT and SIGTERM cancel the command
// context, which kills any running benchmark.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./donut-runner.yaml or ./runner.yaml)")
	pf.StringVar(&serverURL, "server", os.Getenv("DONUT_SERVER"), "use a remote donut-runner server instead of running locally")
	pf.StringVar(&apiKey, "api-key", "", "API key (serve: required from clients; --server: sent to the server)")
	pf.StringVar(&programPath, "program", "", "path to DonutBufferApp")
	pf.StringVar(&workDir, "work-dir", "", "DonutBuffer checkout directory")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&logFormat, "log-format", "", "text or json")
	pf.BoolVar(&jsonOutput, "json", false, "print results as JSON")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
}

func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(loaded)
	if err := loaded.Finalize(); err != nil {
		return err
	}
	cfg = loaded

	if err := output.Configure(os.Stderr, cfg.LogFormat, cfg.LogLevel); err != nil {
		return err
	}
	fd := os.Stdout.Fd()
	if noColor || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) {
		color.NoColor = true
	}
	if cfg.Source != "" {
		output.Logger.Debug("Loaded config", "file", cfg.Source)
	}
	return nil
}

// applyFlags puts global flag overrides on top of file and environment.
func applyFlags(c *config.Config) {
	if programPath != "" {
		c.ProgramPath = programPath
	}
	if workDir != "" {
		c.WorkDir = workDir
	}
	if apiKey != "" {
		c.APIKey = apiKey
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if logFormat != "" {
		c.LogFormat = logFormat
	}
}
