package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daryltucker/donut-runner/internal/engine"
	"github.com/daryltucker/donut-runner/internal/model"
	"github.com/daryltucker/donut-runner/internal/requirements"
	"github.com/daryltucker/donut-runner/internal/results"
)

// BenchmarkReport is the outcome of the requirement -> run -> interpret
// pipeline.
type BenchmarkReport struct {
	Requirements   string                 `json:"requirements"`
	Inference      requirements.Inference `json:"inference"`
	Execution      model.ExecutionResult  `json:"execution_result"`
	Interpretation model.Interpretation   `json:"interpretation"`
}

// Benchmark infers a configuration from text, runs it and interprets the
// result. A failed run is reported inside the report, not as an error;
// errors are reserved for ErrBusy and cancellation before launch.
func (s *Service) Benchmark(ctx context.Context, text string, timeout time.Duration) (BenchmarkReport, error) {
	inf := s.Configure(text)
	report := BenchmarkReport{Requirements: text, Inference: inf}

	if !s.sem.TryAcquire(1) {
		return report, ErrBusy
	}
	defer s.sem.Release(1)

	res, err := s.execute(ctx, inf.Config, timeout)
	var perr *engine.ProcessError
	if err != nil && !errors.As(err, &perr) {
		return report, err
	}
	report.Execution = res
	report.Interpretation = results.InterpretExecution(res)
	s.record(ctx, model.NewRunRecord(res.ID, SourceBenchmark, res, &report.Interpretation), text)
	return report, nil
}

// Compare runs cfg once per buffer type, in parallel up to the run cap,
// and ranks the results by throughput. Compare waits for free slots rather
// than failing with ErrBusy.
func (s *Service) Compare(ctx context.Context, cfg model.Configuration, timeout time.Duration) (results.Comparison, error) {
	if err := cfg.Validate(); err != nil {
		return results.Comparison{}, err
	}

	entries := make([]results.Entry, len(model.BufferTypes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.MaxConcurrentRuns)
	for i, bt := range model.BufferTypes {
		variant := cfg
		variant.BufferType = bt
		g.Go(func() error {
			if err := s.sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer s.sem.Release(1)

			res, err := s.execute(gctx, variant, timeout)
			var perr *engine.ProcessError
			if err != nil && !errors.As(err, &perr) {
				return err
			}
			interp := results.InterpretExecution(res)
			s.record(gctx, model.NewRunRecord(res.ID, SourceCompare, res, &interp), "")
			entries[i] = results.Entry{BufferType: bt, Result: res, Interpretation: interp}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results.Comparison{}, err
	}
	return results.Compare(entries), nil
}
