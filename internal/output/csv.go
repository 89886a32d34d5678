/*
PURPOSE:
  Writes run records to a CSV file for spreadsheet analysis.

REQUIREMENTS:
  User-specified:
  - Every run is recorded.

  Implementation-discovered:
  - Appending to an existing file must not repeat the header.

ARCHITECTURE INTEGRATION:
  - Called by: internal/service via the Recorder interface.

ERROR HANDLING:
  - Returns error on file open/write failure.

IMPLEMENTATION RULES:
  - Flush after every record so a crash loses at most one row.
  - Thread-safe.

USAGE:
  w, _ := output.NewCSVWriter("runs.csv")
  w.Record(ctx, rec)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and record conversion.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Record() mapping when RunRecord changes.
*/

package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/daryltucker/donut-runner/internal/model"
)

var csvHeader = []string{
	"id", "source", "timestamp", "buffer_type", "producers", "consumers",
	"buffer_size_mb", "total_transfer_mb", "gui_enabled",
	"classification", "success", "exit_code", "duration_s",
	"throughput_mbps", "latency_ms", "assessment", "requirements", "error",
}

// CSVWriter handles writing records to a CSV file.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter opens path for appending. The header is written only when
// the file is new or empty.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
	}

	return &CSVWriter{
		file:   f,
		writer: w,
	}, nil
}

// Record writes a single record to the CSV file.
func (cw *CSVWriter) Record(_ context.Context, r model.RunRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	record := []string{
		r.ID,
		r.Source,
		r.Timestamp.Format(time.RFC3339),
		string(r.Config.BufferType),
		strconv.Itoa(r.Config.Producers),
		strconv.Itoa(r.Config.Consumers),
		strconv.Itoa(r.Config.BufferSizeMB),
		strconv.Itoa(r.Config.TotalTransferMB),
		strconv.FormatBool(r.Config.GUIEnabled),
		string(r.Classification),
		strconv.FormatBool(r.Success),
		strconv.Itoa(r.ExitCode),
		fmt.Sprintf("%.4f", r.Duration.Seconds()),
		optFloat(r.ThroughputMBps, 2),
		optFloat(r.LatencyMs, 4),
		string(r.Assessment),
		r.Requirements,
		r.Error,
	}

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close closes the underlying file.
func (cw *CSVWriter) Close() error {
	cw.writer.Flush()
	return cw.file.Close()
}

func optFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}
