package output

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/donut-runner/internal/model"
	"github.com/daryltucker/donut-runner/internal/results"
)

func sampleRecord(id string) model.RunRecord {
	res := model.ExecutionResult{
		Success:        true,
		Classification: model.ClassSucceeded,
		StartedAt:      time.Date(2025, 6, 27, 12, 0, 0, 0, time.UTC),
		Duration:       1500 * time.Millisecond,
		Output:         "Throughput: 2.1 GB/s, Latency: 0.3ms",
		Config:         model.DefaultConfiguration(),
	}
	interp := results.InterpretExecution(res)
	rec := model.NewRunRecord(id, "run", res, &interp)
	rec.Requirements = "fast, please"
	return rec
}

func TestJSONWriter_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	for _, id := range []string{"a", "b"} {
		w, err := NewJSONWriter(path)
		require.NoError(t, err)
		require.NoError(t, w.Record(context.Background(), sampleRecord(id)))
		require.NoError(t, w.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var got model.RunRecord
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, "b", got.ID)
	require.NotNil(t, got.ThroughputMBps)
	assert.InDelta(t, 2100, *got.ThroughputMBps, 1e-9)
}

func TestCSVWriter_HeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	for _, id := range []string{"a", "b"} {
		w, err := NewCSVWriter(path)
		require.NoError(t, err)
		require.NoError(t, w.Record(context.Background(), sampleRecord(id)))
		require.NoError(t, w.Close())
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "a", rows[1][0])
	assert.Equal(t, "lock-free", rows[1][3])
	assert.Equal(t, "2100.00", rows[1][13])
	assert.Equal(t, "0.3000", rows[1][14])
	assert.Equal(t, "fast, please", rows[2][16])
}

type failingRecorder struct{ closed bool }

func (f *failingRecorder) Record(context.Context, model.RunRecord) error { return errors.New("disk full") }
func (f *failingRecorder) Close() error                                  { f.closed = true; return nil }

func TestMultiRecorder_ContinuesPastFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	jw, err := NewJSONWriter(path)
	require.NoError(t, err)
	bad := &failingRecorder{}

	m := MultiRecorder{bad, jw}
	err = m.Record(context.Background(), sampleRecord("x"))
	assert.ErrorContains(t, err, "disk full")
	require.NoError(t, m.Close())
	assert.True(t, bad.closed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"x"`)
}

func TestConfigure(t *testing.T) {
	old := Logger
	t.Cleanup(func() { SetLogger(old) })

	var buf bytes.Buffer
	require.NoError(t, Configure(&buf, "json", "warn"))
	Logger.Info("hidden")
	Logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	assert.Error(t, Configure(&buf, "xml", "info"))
	assert.Error(t, Configure(&buf, "text", "loud"))
}

func TestConsole(t *testing.T) {
	color.NoColor = true
	rec := sampleRecord("r1")

	var buf bytes.Buffer
	res := model.ExecutionResult{Classification: model.ClassTimeout, Output: "partial\n", Error: "timed out", Config: rec.Config}
	PrintExecution(&buf, res, false)
	assert.Contains(t, buf.String(), "TIMEOUT")
	assert.Contains(t, buf.String(), "partial")

	buf.Reset()
	PrintInterpretation(&buf, results.Interpret("Throughput: 2.1 GB/s, Latency: 0.3ms", rec.Config))
	assert.Contains(t, buf.String(), "2.1 GB/s (2100 MB/s)")
	assert.Contains(t, buf.String(), "0.3 ms")

	buf.Reset()
	PrintRecords(&buf, []model.RunRecord{rec})
	assert.Contains(t, buf.String(), "r1")
	assert.Contains(t, buf.String(), "2100.0 MB/s")
}
