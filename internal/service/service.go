/*
PURPOSE:
  The facade shared by the HTTP server and the CLI: one method per boundary
  operation (analyze_readme, configure_buffer, run_buffer,
  interpret_results, benchmark, compare, templates, history, health).

REQUIREMENTS:
  User-specified:
  - Each operation maps 1:1 to an HTTP route.
  - Concurrency of program runs is capped outside the core.

  Implementation-discovered:
  - A busy facade should refuse new runs immediately instead of queueing
    HTTP requests behind a 30s benchmark.
  - Every run is recorded with an id so callers can find it in history.

ARCHITECTURE INTEGRATION:
  - Called by: internal/server, internal/cli
  - Uses: internal/engine (via ProgramRunner), internal/requirements,
    internal/results, internal/docs, internal/assets, internal/output

ERROR HANDLING:
  - Invalid configurations surface as *model.InvalidConfigurationError.
  - ErrBusy when the run cap is reached.
  - Run returns *engine.ProcessError with a filled result on process failure.
  - Recording failures are logged, never returned.

IMPLEMENTATION RULES:
  - No mutable state besides the semaphore and the active-run counter.

USAGE:
  svc := service.New(runner, service.Options{MaxConcurrentRuns: 2})
  res, err := svc.Run(ctx, cfg, 0)

SELF-HEALING INSTRUCTIONS:
  - If requests return busy under light load, check for runs stuck past
    their timeout in the logs.

RELATED FILES:
  - internal/server/handlers.go
  - internal/cli/serve.go

MAINTENANCE:
  - New boundary operations get a method here first.
*/

package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/daryltucker/donut-runner/internal/assets"
	"github.com/daryltucker/donut-runner/internal/docs"
	"github.com/daryltucker/donut-runner/internal/model"
	"github.com/daryltucker/donut-runner/internal/output"
	"github.com/daryltucker/donut-runner/internal/requirements"
	"github.com/daryltucker/donut-runner/internal/results"
)

// Run sources recorded in history.
const (
	SourceRun       = "run"
	SourceBenchmark = "benchmark"
	SourceCompare   = "compare"
)

var (
	// ErrBusy is returned when MaxConcurrentRuns runs are already active.
	ErrBusy = errors.New("too many concurrent runs")
	// ErrHistoryDisabled is returned by History when no store is configured.
	ErrHistoryDisabled = errors.New("run history is not configured")
)

// ProgramRunner executes the benchmark program. *engine.Runner implements it.
type ProgramRunner interface {
	Run(ctx context.Context, cfg model.Configuration, timeout time.Duration) (model.ExecutionResult, error)
	ProgramAvailable() bool
}

// HistoryLister reads recorded runs. *history.Store implements it.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]model.RunRecord, error)
}

// Options configures a Service.
type Options struct {
	MaxConcurrentRuns int
	ReadmePath        string
	ProgramPath       string
	CanBuild          bool
	Interpreter       *requirements.Interpreter
	Recorder          output.Recorder
	History           HistoryLister
	Logger            *slog.Logger
	NewID             func() string
}

// Service implements the boundary operations.
type Service struct {
	runner  ProgramRunner
	opts    Options
	sem     *semaphore.Weighted
	active  atomic.Int64
	started time.Time
}

// New builds a Service. Zero options get defaults.
func New(runner ProgramRunner, opts Options) *Service {
	if opts.MaxConcurrentRuns < 1 {
		opts.MaxConcurrentRuns = 1
	}
	if opts.Interpreter == nil {
		opts.Interpreter = requirements.Default()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Service{
		runner:  runner,
		opts:    opts,
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrentRuns)),
		started: time.Now(),
	}
}

func (s *Service) logger() *slog.Logger {
	if s.opts.Logger != nil {
		return s.opts.Logger
	}
	return output.Logger
}

// AnalyzeReadme summarizes the DonutBuffer README.
func (s *Service) AnalyzeReadme() docs.Analysis {
	content, source := docs.Load(s.opts.ReadmePath)
	return docs.Analyze(content, source)
}

// Configure maps requirement text to a configuration.
func (s *Service) Configure(text string) requirements.Inference {
	return s.opts.Interpreter.Infer(text)
}

// Interpret derives an interpretation from raw program output.
func (s *Service) Interpret(out string, cfg model.Configuration) model.Interpretation {
	return results.Interpret(out, cfg)
}

// Templates lists the built-in configuration templates.
func (s *Service) Templates() []assets.Template {
	return assets.Templates()
}

// Run executes one configuration. A failed process yields both a filled
// result and a *engine.ProcessError.
func (s *Service) Run(ctx context.Context, cfg model.Configuration, timeout time.Duration) (model.ExecutionResult, error) {
	if err := cfg.Validate(); err != nil {
		return model.ExecutionResult{}, err
	}
	if !s.sem.TryAcquire(1) {
		return model.ExecutionResult{}, ErrBusy
	}
	defer s.sem.Release(1)

	res, err := s.execute(ctx, cfg, timeout)
	interp := results.InterpretExecution(res)
	s.record(ctx, model.NewRunRecord(res.ID, SourceRun, res, &interp), "")
	return res, err
}

// execute runs the program while holding a slot.
func (s *Service) execute(ctx context.Context, cfg model.Configuration, timeout time.Duration) (model.ExecutionResult, error) {
	s.active.Add(1)
	defer s.active.Add(-1)

	res, err := s.runner.Run(ctx, cfg, timeout)
	res.ID = s.opts.NewID()
	return res, err
}

func (s *Service) record(ctx context.Context, rec model.RunRecord, reqs string) {
	if s.opts.Recorder == nil {
		return
	}
	rec.Requirements = reqs
	if err := s.opts.Recorder.Record(context.WithoutCancel(ctx), rec); err != nil {
		s.logger().Error("Failed to record run", "id", rec.ID, "error", err)
	}
}

// History returns recent runs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if s.opts.History == nil {
		return nil, ErrHistoryDisabled
	}
	return s.opts.History.List(ctx, limit)
}
