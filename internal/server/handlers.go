/*
PURPOSE:
  HTTP surface of the facade. Every route is a thin adapter from JSON to a
  service.Service method and back.

REQUIREMENTS:
  User-specified:
  - Routes mirror the boundary operations 1:1 (analyze-readme,
    configure-buffer, run-buffer, interpret-results, health).
  - Configurations travel in the documented shape verbatim.

  Implementation-discovered:
  - GPT Actions need an OpenAPI document and a root index.
  - Agents retry on 4xx with corrected input, so validation errors name the
    field and the bound.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli/serve.go
  - Uses: internal/service, internal/server/openapi.go

ERROR HANDLING:
  - 400 bad_request for undecodable bodies.
  - 422 invalid_configuration with field and bound.
  - 200 with success:false when the program failed.
  - 503 busy when the run cap is reached.

IMPLEMENTATION RULES:
  - No business logic here.
  - Request bodies are capped at maxBodyBytes.

USAGE:
  h := server.New(svc, server.Options{Version: "1.0.0"}).Handler()

SELF-HEALING INSTRUCTIONS:
  - Keep openapi.go in sync with routes().

RELATED FILES:
  - internal/server/httpserver.go
  - internal/server/openapi.go

MAINTENANCE:
  - Add a route in routes(), a handler here and an operation in openapi.go.
*/

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/daryltucker/donut-runner/internal/assets"
	"github.com/daryltucker/donut-runner/internal/docs"
	"github.com/daryltucker/donut-runner/internal/engine"
	"github.com/daryltucker/donut-runner/internal/model"
	"github.com/daryltucker/donut-runner/internal/requirements"
	"github.com/daryltucker/donut-runner/internal/results"
	"github.com/daryltucker/donut-runner/internal/service"
)

const maxBodyBytes = 4 << 20

// Facade is the subset of *service.Service the handlers use.
type Facade interface {
	AnalyzeReadme() docs.Analysis
	Configure(text string) requirements.Inference
	Run(ctx context.Context, cfg model.Configuration, timeout time.Duration) (model.ExecutionResult, error)
	Interpret(out string, cfg model.Configuration) model.Interpretation
	Benchmark(ctx context.Context, text string, timeout time.Duration) (service.BenchmarkReport, error)
	Compare(ctx context.Context, cfg model.Configuration, timeout time.Duration) (results.Comparison, error)
	Templates() []assets.Template
	History(ctx context.Context, limit int) ([]model.RunRecord, error)
	Health() service.HealthReport
}

// Options configures the HTTP surface.
type Options struct {
	Version     string
	PublicURL   string
	APIKey      string
	CORSOrigins []string
	Logger      *slog.Logger
}

// Server routes HTTP requests to a Facade.
type Server struct {
	svc  Facade
	opts Options
}

// New builds a Server.
func New(svc Facade, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{svc: svc, opts: opts}
}

// PublicPaths are reachable without an API key.
var PublicPaths = []string{"/", "/health", "/openapi.json"}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return Wrap(s.opts.Logger, Security{
		APIKey:      s.opts.APIKey,
		CORSOrigins: s.opts.CORSOrigins,
		Public:      PublicPaths,
	}, s.routes())
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /analyze-readme", s.handleAnalyzeReadme)
	mux.HandleFunc("POST /configure-buffer", s.handleConfigure)
	mux.HandleFunc("POST /run-buffer", s.handleRun)
	mux.HandleFunc("POST /interpret-results", s.handleInterpret)
	mux.HandleFunc("POST /benchmark", s.handleBenchmark)
	mux.HandleFunc("POST /compare-buffers", s.handleCompare)
	mux.HandleFunc("GET /templates", s.handleTemplates)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /openapi.json", s.handleOpenAPI)
	return mux
}

type configureRequest struct {
	Requirements string `json:"requirements"`
}

type runRequest struct {
	Config         *model.Configuration `json:"config"`
	TimeoutSeconds float64              `json:"timeout_seconds,omitempty"`
}

type interpretRequest struct {
	ExecutionOutput string               `json:"execution_output"`
	Config          *model.Configuration `json:"config"`
}

type benchmarkRequest struct {
	Requirements   string  `json:"requirements"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "DonutBuffer HTTP facade",
		"version":     s.opts.Version,
		"description": "HTTP API for running and interpreting DonutBuffer ring buffer benchmarks",
		"endpoints": map[string]string{
			"analyze_readme":    "GET /analyze-readme",
			"configure_buffer":  "POST /configure-buffer",
			"run_buffer":        "POST /run-buffer",
			"interpret_results": "POST /interpret-results",
			"benchmark":         "POST /benchmark",
			"compare_buffers":   "POST /compare-buffers",
			"templates":         "GET /templates",
			"runs":              "GET /runs",
			"health":            "GET /health",
		},
		"docs": "/openapi.json",
	})
}

func (s *Server) handleAnalyzeReadme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"analysis": s.svc.AnalyzeReadme(),
		"tool":     "analyze_readme",
	})
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if !s.decode(w, r, &req) {
		return
	}
	inf := s.svc.Configure(req.Requirements)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"configuration":   inf.Config,
		"explanation":     inf.Explanation,
		"matched_rules":   inf.Matched,
		"explicit_values": inf.Explicit,
		"clamped":         inf.Clamped,
		"requirements":    req.Requirements,
		"tool":            "configure_buffer",
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Config == nil {
		s.writeError(w, r, &model.InvalidConfigurationError{Field: "config", Bound: "required"})
		return
	}
	res, err := s.svc.Run(r.Context(), *req.Config, seconds(req.TimeoutSeconds))
	var perr *engine.ProcessError
	if err != nil && !errors.As(err, &perr) {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          res.Success,
		"execution_result": res,
		"config_used":      req.Config,
		"tool":             "run_buffer",
	})
}

func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	var req interpretRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Config == nil {
		s.writeError(w, r, &model.InvalidConfigurationError{Field: "config", Bound: "required"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"interpretation":   s.svc.Interpret(req.ExecutionOutput, *req.Config),
		"execution_output": req.ExecutionOutput,
		"config_analyzed":  req.Config,
		"tool":             "interpret_results",
	})
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	var req benchmarkRequest
	if !s.decode(w, r, &req) {
		return
	}
	report, err := s.svc.Benchmark(r.Context(), req.Requirements, seconds(req.TimeoutSeconds))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          report.Execution.Success,
		"requirements":     report.Requirements,
		"configuration":    report.Inference.Config,
		"explanation":      report.Inference.Explanation,
		"matched_rules":    report.Inference.Matched,
		"execution_result": report.Execution,
		"interpretation":   report.Interpretation,
		"tool":             "benchmark",
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Config == nil {
		s.writeError(w, r, &model.InvalidConfigurationError{Field: "config", Bound: "required"})
		return
	}
	c, err := s.svc.Compare(r.Context(), *req.Config, seconds(req.TimeoutSeconds))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     c.Winner != "",
		"comparison":  c,
		"config_used": req.Config,
		"tool":        "compare_buffers",
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"templates": s.svc.Templates(),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			s.writeError(w, r, badRequest(fmt.Errorf("limit must be an integer in [1, 1000], got %q", v)))
			return
		}
		limit = n
	}
	recs, err := s.svc.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"runs":    recs,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc := OpenAPI(s.opts.Version, s.opts.PublicURL)
	writeJSON(w, http.StatusOK, doc)
}

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error { return badRequestError{err: err} }

// decode reads a JSON body into dst, writing the error response on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var ice *model.InvalidConfigurationError
		if errors.As(err, &ice) {
			s.writeError(w, r, err)
		} else {
			s.writeError(w, r, badRequest(fmt.Errorf("invalid JSON body: %w", err)))
		}
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID, _ := RequestIDFromContext(r.Context())
	body := map[string]any{
		"success":    false,
		"message":    err.Error(),
		"request_id": requestID,
	}

	var (
		ice *model.InvalidConfigurationError
		bre badRequestError
	)
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &ice):
		status = http.StatusUnprocessableEntity
		body["error"] = "invalid_configuration"
		body["field"] = ice.Field
		body["bound"] = ice.Bound
	case errors.As(err, &bre):
		status = http.StatusBadRequest
		body["error"] = "bad_request"
	case errors.Is(err, service.ErrBusy):
		status = http.StatusServiceUnavailable
		body["error"] = "busy"
		w.Header().Set("Retry-After", "5")
	case errors.Is(err, service.ErrHistoryDisabled):
		status = http.StatusNotFound
		body["error"] = "history_disabled"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		body["error"] = "canceled"
	default:
		body["error"] = "internal_server_error"
		s.opts.Logger.Error("request failed", "request_id", requestID, "error", err)
	}
	writeJSON(w, status, body)
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
