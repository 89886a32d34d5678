package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/donut-runner/internal/assets"
	"github.com/daryltucker/donut-runner/internal/docs"
	"github.com/daryltucker/donut-runner/internal/engine"
	"github.com/daryltucker/donut-runner/internal/model"
	"github.com/daryltucker/donut-runner/internal/requirements"
	"github.com/daryltucker/donut-runner/internal/results"
	"github.com/daryltucker/donut-runner/internal/service"
)

type fakeFacade struct {
	runResult model.ExecutionResult
	runErr    error
	lastRun   *model.Configuration
	lastTO    time.Duration
	history   []model.RunRecord
	histErr   error
	panicOn   string
}

func (f *fakeFacade) AnalyzeReadme() docs.Analysis {
	return docs.Analyze([]byte(assets.FallbackREADME), docs.SourceEmbedded)
}

func (f *fakeFacade) Configure(text string) requirements.Inference {
	return requirements.Default().Infer(text)
}

func (f *fakeFacade) Run(_ context.Context, cfg model.Configuration, timeout time.Duration) (model.ExecutionResult, error) {
	if f.panicOn == "run" {
		panic("boom")
	}
	f.lastRun = &cfg
	f.lastTO = timeout
	res := f.runResult
	res.Config = cfg
	return res, f.runErr
}

func (f *fakeFacade) Interpret(out string, cfg model.Configuration) model.Interpretation {
	return results.Interpret(out, cfg)
}

func (f *fakeFacade) Benchmark(ctx context.Context, text string, timeout time.Duration) (service.BenchmarkReport, error) {
	inf := f.Configure(text)
	res, err := f.Run(ctx, inf.Config, timeout)
	if err != nil && res.Classification == "" {
		return service.BenchmarkReport{}, err
	}
	return service.BenchmarkReport{
		Requirements:   text,
		Inference:      inf,
		Execution:      res,
		Interpretation: results.InterpretExecution(res),
	}, nil
}

func (f *fakeFacade) Compare(_ context.Context, cfg model.Configuration, _ time.Duration) (results.Comparison, error) {
	var entries []results.Entry
	for i, bt := range model.BufferTypes {
		c := cfg
		c.BufferType = bt
		out := "Throughput: " + []string{"900", "300", "600"}[i] + " MB/s"
		entries = append(entries, results.Entry{
			BufferType:     bt,
			Result:         model.ExecutionResult{Success: true, Classification: model.ClassSucceeded, Output: out, Config: c},
			Interpretation: results.Interpret(out, c),
		})
	}
	return results.Compare(entries), nil
}

func (f *fakeFacade) Templates() []assets.Template { return assets.Templates() }

func (f *fakeFacade) History(_ context.Context, limit int) ([]model.RunRecord, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	if limit > 0 && limit < len(f.history) {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeFacade) Health() service.HealthReport {
	return service.HealthReport{Status: service.StatusHealthy, ProgramAvailable: true}
}

func newTestServer(t *testing.T, f *fakeFacade, opts Options) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ts := httptest.NewServer(New(f, opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func succeeded() model.ExecutionResult {
	return model.ExecutionResult{
		Success:        true,
		Classification: model.ClassSucceeded,
		Output:         "Throughput: 1500 MB/s\nAverage latency: 0.4 ms\n",
		ExitCode:       0,
	}
}

func do(t *testing.T, ts *httptest.Server, method, path, body string, header map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp, out
}

const validBody = `{"config":{"buffer_type":"lock-free","producers":2,"consumers":2,"buffer_size_mb":8,"total_transfer_mb":100}}`

func TestRoot_ListsEndpoints(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{Version: "1.2.3"})

	resp, body := do(t, ts, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "/openapi.json", body["docs"])
	assert.Contains(t, body["endpoints"], "run_buffer")
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestUnknownPath_NotFound(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{})
	resp, _ := do(t, ts, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyzeReadme(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{})

	resp, body := do(t, ts, http.MethodGet, "/analyze-readme", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "analyze_readme", body["tool"])
	analysis := body["analysis"].(map[string]any)
	assert.Equal(t, docs.SourceEmbedded, analysis["source"])
}

func TestConfigureBuffer(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{})

	resp, body := do(t, ts, http.MethodPost, "/configure-buffer", `{"requirements":"high throughput with 8 producers"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "configure_buffer", body["tool"])
	cfg := body["configuration"].(map[string]any)
	assert.EqualValues(t, 8, cfg["producers"])
	assert.NotEmpty(t, body["explanation"])
}

func TestRunBuffer_Success(t *testing.T) {
	f := &fakeFacade{runResult: succeeded()}
	ts := newTestServer(t, f, Options{})

	resp, body := do(t, ts, http.MethodPost, "/run-buffer",
		`{"config":{"buffer_type":"mutex-guarded","producers":3,"consumers":1},"timeout_seconds":1.5}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "run_buffer", body["tool"])

	require.NotNil(t, f.lastRun)
	assert.Equal(t, model.BufferMutexGuarded, f.lastRun.BufferType)
	assert.Equal(t, model.DefaultBufferSizeMB, f.lastRun.BufferSizeMB)
	assert.Equal(t, 1500*time.Millisecond, f.lastTO)

	used := body["config_used"].(map[string]any)
	assert.Equal(t, "mutex-guarded", used["buffer_type"])
}

func TestRunBuffer_ProcessFailureIsReported(t *testing.T) {
	res := model.ExecutionResult{
		Classification: model.ClassTimeout,
		Output:         "partial output",
		ExitCode:       -1,
		Error:          "timed out",
	}
	f := &fakeFacade{runResult: res, runErr: &engine.ProcessError{Class: model.ClassTimeout}}
	ts := newTestServer(t, f, Options{})

	resp, body := do(t, ts, http.MethodPost, "/run-buffer", validBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	exec := body["execution_result"].(map[string]any)
	assert.Equal(t, "timeout", exec["classification"])
	assert.Equal(t, "partial output", exec["output"])
}

func TestRunBuffer_InvalidConfiguration(t *testing.T) {
	f := &fakeFacade{runResult: succeeded()}
	ts := newTestServer(t, f, Options{})

	tests := []struct {
		name  string
		body  string
		field string
		bound string
	}{
		{"producers above bound", `{"config":{"buffer_type":"lock-free","producers":99,"consumers":1}}`, "producers", "[1, 16]"},
		{"unknown buffer type", `{"config":{"buffer_type":"ring","producers":1,"consumers":1}}`, "buffer_type", ""},
		{"missing consumers", `{"config":{"buffer_type":"lock-free","producers":1}}`, "consumers", "required"},
		{"missing config", `{}`, "config", "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, ts, http.MethodPost, "/run-buffer", tt.body, nil)
			require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Equal(t, "invalid_configuration", body["error"])
			assert.Equal(t, tt.field, body["field"])
			if tt.bound != "" {
				assert.Equal(t, tt.bound, body["bound"])
			}
		})
	}
	assert.Nil(t, f.lastRun, "runner must not be reached")
}

func TestRunBuffer_MalformedJSON(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{})
	resp, body := do(t, ts, http.MethodPost, "/run-buffer", `{"config":`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["error"])
	assert.NotEmpty(t, body["request_id"])
}

func TestRunBuffer_Busy(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{runErr: service.ErrBusy}, Options{})
	resp, body := do(t, ts, http.MethodPost, "/run-buffer", validBody, nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "busy", body["error"])
	assert.Equal(t, "5", resp.Header.Get("Retry-After"))
}

func TestRunBuffer_WrongMethod(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{})
	resp, _ := do(t, ts, http.MethodGet, "/run-buffer", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestInterpretResults(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{})

	resp, body := do(t, ts, http.MethodPost, "/interpret-results",
		`{"execution_output":"Throughput: 2.5 GB/s\nLatency: 0.2 ms","config":{"buffer_type":"lock-free","producers":4,"consumers":4}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "interpret_results", body["tool"])
	interp := body["interpretation"].(map[string]any)
	assert.Equal(t, "good", interp["assessment"])
	tp := interp["throughput"].(map[string]any)
	assert.EqualValues(t, 2500, tp["normalized"])
}

func TestBenchmark(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{runResult: succeeded()}, Options{})

	resp, body := do(t, ts, http.MethodPost, "/benchmark", `{"requirements":"low latency"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "benchmark", body["tool"])
	assert.Contains(t, body, "interpretation")
	assert.Contains(t, body, "configuration")
}

func TestCompareBuffers(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{})

	resp, body := do(t, ts, http.MethodPost, "/compare-buffers", validBody, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cmp := body["comparison"].(map[string]any)
	assert.Equal(t, "lock-free", cmp["winner"])
	entries := cmp["entries"].([]any)
	require.Len(t, entries, 3)
	assert.Equal(t, "concurrent-queue", entries[1].(map[string]any)["buffer_type"])
}

func TestTemplates(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{})
	resp, body := do(t, ts, http.MethodGet, "/templates", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["templates"], len(assets.Templates()))
}

func TestRuns(t *testing.T) {
	f := &fakeFacade{history: []model.RunRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	ts := newTestServer(t, f, Options{})

	resp, body := do(t, ts, http.MethodGet, "/runs?limit=2", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["runs"], 2)

	resp, body = do(t, ts, http.MethodGet, "/runs?limit=zero", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["error"])
}

func TestRuns_HistoryDisabled(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{histErr: service.ErrHistoryDisabled}, Options{})
	resp, body := do(t, ts, http.MethodGet, "/runs", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "history_disabled", body["error"])
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{})
	resp, body := do(t, ts, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestAuth(t *testing.T) {
	f := &fakeFacade{runResult: succeeded()}
	ts := newTestServer(t, f, Options{APIKey: "s3cret"})

	resp, body := do(t, ts, http.MethodPost, "/run-buffer", validBody, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", body["error"])
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	resp, _ = do(t, ts, http.MethodPost, "/run-buffer", validBody, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/run-buffer", validBody, map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, ts, http.MethodPost, "/run-buffer", validBody, map[string]string{"X-API-Key": "s3cret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, p := range PublicPaths {
		resp, _ = do(t, ts, http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
	}
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{CORSOrigins: []string{"https://chat.openai.com"}})

	resp, _ := do(t, ts, http.MethodOptions, "/run-buffer", "", map[string]string{
		"Origin":                        "https://chat.openai.com",
		"Access-Control-Request-Method": "POST",
	})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://chat.openai.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")

	resp, _ = do(t, ts, http.MethodGet, "/health", "", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecover(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{panicOn: "run"}, Options{})
	resp, body := do(t, ts, http.MethodPost, "/run-buffer", validBody, map[string]string{"X-Request-Id": "req-1"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal_server_error", body["error"])
	assert.Equal(t, "req-1", body["request_id"])
}

func TestOpenAPI_Validates(t *testing.T) {
	doc := OpenAPI("1.0.0", "https://donut.example.com")
	require.NoError(t, doc.Validate(context.Background()))

	for _, p := range []string{"/", "/analyze-readme", "/configure-buffer", "/run-buffer", "/interpret-results",
		"/benchmark", "/compare-buffers", "/templates", "/runs", "/health", "/openapi.json"} {
		assert.NotNil(t, doc.Paths.Value(p), p)
	}
	assert.Equal(t, "https://donut.example.com", doc.Servers[0].URL)
}

func TestOpenAPI_Served(t *testing.T) {
	ts := newTestServer(t, &fakeFacade{}, Options{Version: "9.9.9", APIKey: "k"})
	resp, body := do(t, ts, http.MethodGet, "/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "3.0.3", body["openapi"])
	info := body["info"].(map[string]any)
	assert.Equal(t, "9.9.9", info["version"])
}
