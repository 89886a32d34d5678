package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daryltucker/donut-runner/internal/assets"
	"github.com/daryltucker/donut-runner/internal/client"
	"github.com/daryltucker/donut-runner/internal/config"
	"github.com/daryltucker/donut-runner/internal/docs"
	"github.com/daryltucker/donut-runner/internal/engine"
	"github.com/daryltucker/donut-runner/internal/history"
	"github.com/daryltucker/donut-runner/internal/model"
	"github.com/daryltucker/donut-runner/internal/output"
	"github.com/daryltucker/donut-runner/internal/requirements"
	"github.com/daryltucker/donut-runner/internal/results"
	"github.com/daryltucker/donut-runner/internal/service"
)

// backend is what commands drive: the local service or a remote server.
// *client.Client implements it directly.
type backend interface {
	Health(ctx context.Context) (service.HealthReport, error)
	AnalyzeReadme(ctx context.Context) (docs.Analysis, error)
	Configure(ctx context.Context, text string) (requirements.Inference, error)
	Run(ctx context.Context, cfg model.Configuration, timeout time.Duration) (model.ExecutionResult, error)
	Interpret(ctx context.Context, out string, cfg model.Configuration) (model.Interpretation, error)
	Benchmark(ctx context.Context, text string, timeout time.Duration) (service.BenchmarkReport, error)
	Compare(ctx context.Context, cfg model.Configuration, timeout time.Duration) (results.Comparison, error)
	Templates(ctx context.Context) ([]assets.Template, error)
	History(ctx context.Context, limit int) ([]model.RunRecord, error)
}

// local adapts *service.Service to backend.
type local struct{ svc *service.Service }

func (l local) Health(context.Context) (service.HealthReport, error) { return l.svc.Health(), nil }

func (l local) AnalyzeReadme(context.Context) (docs.Analysis, error) {
	return l.svc.AnalyzeReadme(), nil
}

func (l local) Configure(_ context.Context, text string) (requirements.Inference, error) {
	return l.svc.Configure(text), nil
}

// Run hides *engine.ProcessError so that local and remote behave the same:
// a failed run is a result with Success false.
func (l local) Run(ctx context.Context, cfg model.Configuration, timeout time.Duration) (model.ExecutionResult, error) {
	res, err := l.svc.Run(ctx, cfg, timeout)
	var perr *engine.ProcessError
	if errors.As(err, &perr) {
		err = nil
	}
	return res, err
}

func (l local) Interpret(_ context.Context, out string, cfg model.Configuration) (model.Interpretation, error) {
	return l.svc.Interpret(out, cfg), nil
}

func (l local) Benchmark(ctx context.Context, text string, timeout time.Duration) (service.BenchmarkReport, error) {
	return l.svc.Benchmark(ctx, text, timeout)
}

func (l local) Compare(ctx context.Context, cfg model.Configuration, timeout time.Duration) (results.Comparison, error) {
	return l.svc.Compare(ctx, cfg, timeout)
}

func (l local) Templates(context.Context) ([]assets.Template, error) { return l.svc.Templates(), nil }

func (l local) History(ctx context.Context, limit int) ([]model.RunRecord, error) {
	return l.svc.History(ctx, limit)
}

// openBackend returns the remote client when --server is set, otherwise a
// local service. The returned close func must be called.
func openBackend() (backend, func(), error) {
	if serverURL != "" {
		c, err := client.New(client.Options{BaseURL: serverURL, APIKey: cfg.APIKey})
		if err != nil {
			return nil, nil, err
		}
		output.Logger.Debug("Using remote server", "url", serverURL)
		return c, func() {}, nil
	}
	svc, closeFn, err := newService(cfg)
	if err != nil {
		return nil, nil, err
	}
	return local{svc: svc}, closeFn, nil
}

// newRunner builds the process runner, with a builder when a build command
// is configured.
func newRunner(c *config.Config) *engine.Runner {
	r := &engine.Runner{
		Program:        c.ProgramPath,
		Dir:            c.WorkDir,
		DefaultTimeout: c.RunTimeout,
		MaxTimeout:     c.MaxRunTimeout,
		MaxOutputBytes: c.MaxOutputBytes,
		Logger:         output.Logger,
	}
	if r.Dir == "" && r.Program != "" {
		r.Dir = filepath.Dir(r.Program)
	}
	if c.BuildCommand != "" {
		r.Builder = &engine.Builder{
			Command:        []string{"sh", "-c", c.BuildCommand},
			Dir:            c.WorkDir,
			LockPath:       c.BuildLock,
			Timeout:        c.BuildTimeout,
			MaxOutputBytes: c.MaxOutputBytes,
		}
	}
	return r
}

// newService wires runner, recorders and history into a Service.
func newService(c *config.Config) (*service.Service, func(), error) {
	var (
		recorders output.MultiRecorder
		store     *history.Store
	)
	closeAll := func() {
		if err := recorders.Close(); err != nil {
			output.Logger.Warn("Failed to close recorders", "error", err)
		}
	}

	if c.OutputDir != "" {
		if err := os.MkdirAll(c.OutputDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create output dir: %w", err)
		}
		jw, err := output.NewJSONWriter(filepath.Join(c.OutputDir, "runs.jsonl"))
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		recorders = append(recorders, jw)
		cw, err := output.NewCSVWriter(filepath.Join(c.OutputDir, "runs.csv"))
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		recorders = append(recorders, cw)
	}
	if c.HistoryDB != "" {
		var err error
		if store, err = history.Open(c.HistoryDB); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open run history: %w", err)
		}
		recorders = append(recorders, store)
	}

	runner := newRunner(c)
	opts := service.Options{
		MaxConcurrentRuns: c.MaxConcurrentRuns,
		ReadmePath:        c.ReadmePath,
		ProgramPath:       c.ProgramPath,
		CanBuild:          runner.Builder != nil,
		Logger:            output.Logger,
	}
	if len(recorders) > 0 {
		opts.Recorder = recorders
	}
	if store != nil {
		opts.History = store
	}
	return service.New(runner, opts), closeAll, nil
}
