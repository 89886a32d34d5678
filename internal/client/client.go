/*
PURPOSE:
  HTTP client for a remote donut-runner facade.
  Lets the CLI drive a runner on another host with --server.

REQUIREMENTS:
  User-specified:
  - Same operations as the local service, over HTTP.

  Implementation-discovered:
  - The server holds the response until the program exits, so the header
    timeout must cover a whole run.
  - 422, 503 and 404 bodies carry machine-readable codes; map them back to
    the same errors the local service returns.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli (remote mode)
  - Uses: internal/model, internal/service (report types and sentinels)

ERROR HANDLING:
  - Non-2xx responses become *APIError, which unwraps to
    *model.InvalidConfigurationError, service.ErrBusy or
    service.ErrHistoryDisabled where the code matches.
  - GET requests are retried on connection errors; POSTs never are, since
    a run may already have started.

IMPLEMENTATION RULES:
  - Every call takes a context.
  - Enforce timeouts on the transport.

USAGE:
  c := client.New(client.Options{BaseURL: "http://runner:8000", APIKey: key})
  res, err := c.Run(ctx, cfg, 30*time.Second)

SELF-HEALING INSTRUCTIONS:
  - If a route changes in internal/server/handlers.go, update the path and
    envelope here.

RELATED FILES:
  - internal/server/handlers.go

MAINTENANCE:
  - Keep envelopes in sync with the server.
*/

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/daryltucker/donut-runner/internal/assets"
	"github.com/daryltucker/donut-runner/internal/docs"
	"github.com/daryltucker/donut-runner/internal/model"
	"github.com/daryltucker/donut-runner/internal/output"
	"github.com/daryltucker/donut-runner/internal/requirements"
	"github.com/daryltucker/donut-runner/internal/results"
	"github.com/daryltucker/donut-runner/internal/service"
)

// Defaults.
const (
	DefaultTimeout    = 6 * time.Minute
	DefaultRetries    = 3
	DefaultRetryDelay = 500 * time.Millisecond
)

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	// Timeout bounds one request, including the run it triggers.
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Client talks to a donut-runner server.
type Client struct {
	base *url.URL
	opts Options
	HTTP *http.Client
}

// New creates a Client. BaseURL without a scheme gets http://.
func New(opts Options) (*Client, error) {
	raw := strings.TrimRight(opts.BaseURL, "/")
	if raw == "" {
		return nil, errors.New("server URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 1 {
		opts.Retries = DefaultRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}

	// The response header only arrives after the program exits.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = opts.Timeout

	return &Client{
		base: base,
		opts: opts,
		HTTP: &http.Client{Transport: transport, Timeout: opts.Timeout},
	}, nil
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
	Field      string `json:"field"`
	Bound      string `json:"bound"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("server returned %d %s: %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, msg)
}

// Unwrap maps server error codes to the errors the local service returns.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "invalid_configuration":
		return &model.InvalidConfigurationError{Field: e.Field, Bound: e.Bound}
	case "busy":
		return service.ErrBusy
	case "history_disabled":
		return service.ErrHistoryDisabled
	}
	return nil
}

// Health fetches /health.
func (c *Client) Health(ctx context.Context) (service.HealthReport, error) {
	var h service.HealthReport
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &h)
	return h, err
}

// AnalyzeReadme fetches the server's README analysis.
func (c *Client) AnalyzeReadme(ctx context.Context) (docs.Analysis, error) {
	var out struct {
		Analysis docs.Analysis `json:"analysis"`
	}
	err := c.do(ctx, http.MethodGet, "/analyze-readme", nil, nil, &out)
	return out.Analysis, err
}

// Configure infers a configuration from free text.
func (c *Client) Configure(ctx context.Context, text string) (requirements.Inference, error) {
	var out struct {
		Configuration model.Configuration `json:"configuration"`
		Explanation   string              `json:"explanation"`
		Matched       []string            `json:"matched_rules"`
		Explicit      []string            `json:"explicit_values"`
		Clamped       []string            `json:"clamped"`
	}
	err := c.do(ctx, http.MethodPost, "/configure-buffer", nil, map[string]string{"requirements": text}, &out)
	return requirements.Inference{
		Config:      out.Configuration,
		Matched:     out.Matched,
		Explicit:    out.Explicit,
		Clamped:     out.Clamped,
		Explanation: out.Explanation,
	}, err
}

type runBody struct {
	Config         model.Configuration `json:"config"`
	TimeoutSeconds float64             `json:"timeout_seconds,omitempty"`
}

// Run executes cfg on the server. A run that failed on the server is
// returned with a nil error and Success false.
func (c *Client) Run(ctx context.Context, cfg model.Configuration, timeout time.Duration) (model.ExecutionResult, error) {
	if err := cfg.Validate(); err != nil {
		return model.ExecutionResult{}, err
	}
	var out struct {
		Result model.ExecutionResult `json:"execution_result"`
	}
	err := c.do(ctx, http.MethodPost, "/run-buffer", nil, runBody{Config: cfg, TimeoutSeconds: timeout.Seconds()}, &out)
	return out.Result, err
}

// Interpret asks the server to interpret output for cfg.
func (c *Client) Interpret(ctx context.Context, text string, cfg model.Configuration) (model.Interpretation, error) {
	var out struct {
		Interpretation model.Interpretation `json:"interpretation"`
	}
	body := map[string]any{"execution_output": text, "config": cfg}
	err := c.do(ctx, http.MethodPost, "/interpret-results", nil, body, &out)
	return out.Interpretation, err
}

// Benchmark runs the infer, run and interpret pipeline on the server.
func (c *Client) Benchmark(ctx context.Context, text string, timeout time.Duration) (service.BenchmarkReport, error) {
	var out struct {
		Requirements   string                `json:"requirements"`
		Configuration  model.Configuration   `json:"configuration"`
		Explanation    string                `json:"explanation"`
		Matched        []string              `json:"matched_rules"`
		Execution      model.ExecutionResult `json:"execution_result"`
		Interpretation model.Interpretation  `json:"interpretation"`
	}
	body := map[string]any{"requirements": text, "timeout_seconds": timeout.Seconds()}
	if err := c.do(ctx, http.MethodPost, "/benchmark", nil, body, &out); err != nil {
		return service.BenchmarkReport{}, err
	}
	return service.BenchmarkReport{
		Requirements: out.Requirements,
		Inference: requirements.Inference{
			Config:      out.Configuration,
			Matched:     out.Matched,
			Explanation: out.Explanation,
		},
		Execution:      out.Execution,
		Interpretation: out.Interpretation,
	}, nil
}

// Compare runs cfg on every buffer type on the server.
func (c *Client) Compare(ctx context.Context, cfg model.Configuration, timeout time.Duration) (results.Comparison, error) {
	if err := cfg.Validate(); err != nil {
		return results.Comparison{}, err
	}
	var out struct {
		Comparison results.Comparison `json:"comparison"`
	}
	err := c.do(ctx, http.MethodPost, "/compare-buffers", nil, runBody{Config: cfg, TimeoutSeconds: timeout.Seconds()}, &out)
	return out.Comparison, err
}

// Templates lists the server's configuration templates.
func (c *Client) Templates(ctx context.Context) ([]assets.Template, error) {
	var out struct {
		Templates []assets.Template `json:"templates"`
	}
	err := c.do(ctx, http.MethodGet, "/templates", nil, nil, &out)
	return out.Templates, err
}

// History lists recorded runs, newest first. limit <= 0 uses the server
// default.
func (c *Client) History(ctx context.Context, limit int) ([]model.RunRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Runs []model.RunRecord `json:"runs"`
	}
	err := c.do(ctx, http.MethodGet, "/runs", q, nil, &out)
	return out.Runs, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			output.Logger.Debug("Network: Connected", "remote", info.Conn.RemoteAddr(), "reused", info.Reused)
		},
		GotFirstResponseByte: func() {
			output.Logger.Debug("Network: First Byte Received", "path", path)
		},
	}
	ctx = httptrace.WithClientTrace(ctx, trace)

	attempts := 1
	if method == http.MethodGet {
		attempts = c.opts.Retries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			output.Logger.Info("Retrying request...", "path", path, "attempt", i+1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.opts.RetryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		if c.opts.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("request %s %s: %w", method, path, err)
			continue
		}
		return decode(resp, out)
	}
	return lastErr
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("server returned invalid JSON: %w", err)
	}
	return nil
}
