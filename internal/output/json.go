/*
PURPOSE:
  Writes run records to a JSON Lines file.

REQUIREMENTS:
  User-specified:
  - Every run is recorded.

  Implementation-discovered:
  - JSONL allows appending results as they finish, which is safer for long
    running services.
  - The file is appended to, so restarts keep earlier runs.

ARCHITECTURE INTEGRATION:
  - Called by: internal/service via the Recorder interface.

ERROR HANDLING:
  - Returns error on file open/write failure.

IMPLEMENTATION RULES:
  - One record per line.
  - Thread-safe.

USAGE:
  w, _ := output.NewJSONWriter("runs.jsonl")
  w.Record(ctx, rec)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - None specific.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Record fields follow model.RunRecord json tags.
*/

package output

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/daryltucker/donut-runner/internal/model"
)

// JSONWriter handles writing records to a JSON Lines file.
type JSONWriter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter opens path for appending, creating it if needed.
func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	return &JSONWriter{
		file:    f,
		encoder: json.NewEncoder(f),
	}, nil
}

// Record writes a single record as a JSON line.
func (jw *JSONWriter) Record(_ context.Context, r model.RunRecord) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(r)
}

// Close closes the underlying file.
func (jw *JSONWriter) Close() error {
	return jw.file.Close()
}
