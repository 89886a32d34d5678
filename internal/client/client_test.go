package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/donut-runner/internal/engine"
	"github.com/daryltucker/donut-runner/internal/model"
	"github.com/daryltucker/donut-runner/internal/server"
	"github.com/daryltucker/donut-runner/internal/service"
)

type stubRunner struct {
	output  string
	fail    bool
	timeout time.Duration
}

func (r *stubRunner) Run(_ context.Context, cfg model.Configuration, timeout time.Duration) (model.ExecutionResult, error) {
	r.timeout = timeout
	res := model.ExecutionResult{Config: cfg, Output: r.output, StartedAt: time.Now().UTC()}
	if r.fail {
		res.Classification = model.ClassRuntimeFailure
		res.ExitCode = 1
		res.Error = "program exited with code 1"
		return res, &engine.ProcessError{Class: res.Classification, ExitCode: 1, Output: r.output}
	}
	res.Success = true
	res.Classification = model.ClassSucceeded
	return res, nil
}

func (r *stubRunner) ProgramAvailable() bool { return true }

func newClient(t *testing.T, runner service.ProgramRunner, opts server.Options) *Client {
	t.Helper()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(runner, service.Options{MaxConcurrentRuns: 2})
	ts := httptest.NewServer(server.New(svc, opts).Handler())
	t.Cleanup(ts.Close)

	c, err := New(Options{BaseURL: ts.URL, APIKey: opts.APIKey, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	return c
}

func lockFree() model.Configuration {
	return model.Configuration{
		BufferType:      model.BufferLockFree,
		Producers:       2,
		Consumers:       2,
		BufferSizeMB:    8,
		TotalTransferMB: 100,
	}
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)

	c, err := New(Options{BaseURL: "localhost:8000/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", c.base.String())
}

func TestClient_Run(t *testing.T) {
	runner := &stubRunner{output: "Throughput: 1200 MB/s\nLatency: 0.5 ms\n"}
	c := newClient(t, runner, server.Options{})

	res, err := c.Run(context.Background(), lockFree(), 2*time.Second)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, model.ClassSucceeded, res.Classification)
	assert.Equal(t, lockFree(), res.Config)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 2*time.Second, runner.timeout)
}

func TestClient_RunFailureIsNotAnError(t *testing.T) {
	c := newClient(t, &stubRunner{fail: true, output: "segfault"}, server.Options{})

	res, err := c.Run(context.Background(), lockFree(), 0)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, model.ClassRuntimeFailure, res.Classification)
	assert.Equal(t, "segfault", res.Output)
}

func TestClient_InvalidConfigurationMapsBack(t *testing.T) {
	c := newClient(t, &stubRunner{}, server.Options{})

	bad := lockFree()
	bad.Producers = 40
	_, err := c.Run(context.Background(), bad, 0)
	var ice *model.InvalidConfigurationError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, model.FieldProducers, ice.Field)
}

func TestClient_Configure(t *testing.T) {
	c := newClient(t, &stubRunner{}, server.Options{})

	inf, err := c.Configure(context.Background(), "stress test with 12 consumers")
	require.NoError(t, err)
	assert.Equal(t, model.BufferConcurrentQueue, inf.Config.BufferType)
	assert.Equal(t, 12, inf.Config.Consumers)
	assert.Contains(t, inf.Matched, "stress")
	assert.NotEmpty(t, inf.Explanation)
}

func TestClient_InterpretAndBenchmark(t *testing.T) {
	c := newClient(t, &stubRunner{output: "Throughput: 80 MB/s\n"}, server.Options{})
	ctx := context.Background()

	interp, err := c.Interpret(ctx, "Throughput: 80 MB/s", lockFree())
	require.NoError(t, err)
	require.NotNil(t, interp.Throughput)
	assert.Equal(t, model.AssessmentPoor, interp.Assessment)

	report, err := c.Benchmark(ctx, "simple demo", time.Second)
	require.NoError(t, err)
	assert.True(t, report.Execution.Success)
	assert.Equal(t, model.BufferMutexGuarded, report.Inference.Config.BufferType)
	assert.NotEmpty(t, report.Interpretation.Recommendation)
}

func TestClient_Compare(t *testing.T) {
	c := newClient(t, &stubRunner{output: "Throughput: 500 MB/s\n"}, server.Options{})

	cmp, err := c.Compare(context.Background(), lockFree(), time.Second)
	require.NoError(t, err)
	require.Len(t, cmp.Entries, len(model.BufferTypes))
	assert.Equal(t, 1, cmp.Entries[0].Rank)
}

func TestClient_StaticOperations(t *testing.T) {
	c := newClient(t, &stubRunner{}, server.Options{})
	ctx := context.Background()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.StatusHealthy, h.Status)

	a, err := c.AnalyzeReadme(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, a.Title)

	tpls, err := c.Templates(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tpls)

	_, err = c.History(ctx, 5)
	assert.ErrorIs(t, err, service.ErrHistoryDisabled)
}

func TestClient_APIKey(t *testing.T) {
	runner := &stubRunner{output: "ok"}
	c := newClient(t, runner, server.Options{APIKey: "k1"})
	_, err := c.Run(context.Background(), lockFree(), 0)
	require.NoError(t, err)

	c.opts.APIKey = "wrong"
	_, err = c.Run(context.Background(), lockFree(), 0)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Code)
}

func TestClient_RetriesGetOnly(t *testing.T) {
	var gets, posts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		} else {
			posts.Add(1)
		}
		// Drop the connection without a response.
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer ts.Close()

	c, err := New(Options{BaseURL: ts.URL, Retries: 3, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	_, err = c.Health(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 3, gets.Load())

	_, err = c.Run(context.Background(), lockFree(), 0)
	require.Error(t, err)
	assert.EqualValues(t, 1, posts.Load())
}

func TestClient_NonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	c, err := New(Options{BaseURL: ts.URL})
	require.NoError(t, err)
	_, err = c.Templates(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
}
