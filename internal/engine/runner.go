/*
PURPOSE:
  Executes the DonutBuffer program for one Configuration under a mandatory
  timeout and classifies the outcome.

REQUIREMENTS:
  User-specified:
  - Same Configuration, same argument list.
  - Capture combined stdout/stderr.
  - Classify as succeeded, build_failure, runtime_failure or timeout.
  - A timed-out program is killed; nothing it spawned survives.
  - Invalid configurations never spawn a process.

  Implementation-discovered:
  - Caller cancellation is reported as "canceled", separate from timeout.
  - The program may fork helpers that inherit stdout; WaitDelay stops Wait
    from hanging on their pipes.
  - Output must be bounded or a chatty run can exhaust memory.

ARCHITECTURE INTEGRATION:
  - Called by: internal/service
  - Uses: internal/model, internal/output, internal/engine/builder.go

ERROR HANDLING:
  - Returns *model.InvalidConfigurationError before spawning anything.
  - Returns *ProcessError for every other non-success, alongside a filled
    ExecutionResult so callers can still show the output.

IMPLEMENTATION RULES:
  - One Run call, one process group, cleaned up on every exit path.
  - No state is kept between calls; a Runner is safe for concurrent use.

USAGE:
  r := &engine.Runner{Program: "/opt/DonutBuffer/build/DonutBufferApp"}
  res, err := r.Run(ctx, cfg, 30*time.Second)

SELF-HEALING INSTRUCTIONS:
  - If runs are classified as timeout too often, raise run_timeout in the
    config file rather than removing the bound.

RELATED FILES:
  - internal/engine/args.go
  - internal/engine/builder.go
  - internal/engine/errors.go

MAINTENANCE:
  - Keep classification in sync with model.Classification.
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/daryltucker/donut-runner/internal/model"
	"github.com/daryltucker/donut-runner/internal/output"
)

// Default timeouts.
const (
	DefaultRunTimeout    = 30 * time.Second
	DefaultMaxRunTimeout = 5 * time.Minute
	waitDelay            = 2 * time.Second
)

// Runner launches the benchmark program.
type Runner struct {
	Program        string
	Dir            string
	Env            []string
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	MaxOutputBytes int64
	// Builder produces Program when it is missing. Nil means report a
	// build failure with instructions instead.
	Builder *Builder
	Logger  *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return output.Logger
}

// Timeout resolves a requested timeout: non-positive means the default,
// anything above the maximum is capped.
func (r *Runner) Timeout(requested time.Duration) time.Duration {
	def := r.DefaultTimeout
	if def <= 0 {
		def = DefaultRunTimeout
	}
	max := r.MaxTimeout
	if max <= 0 {
		max = DefaultMaxRunTimeout
	}
	if requested <= 0 {
		requested = def
	}
	if requested > max {
		requested = max
	}
	return requested
}

// ProgramAvailable reports whether the program exists and is executable.
func (r *Runner) ProgramAvailable() bool {
	return isExecutable(r.Program)
}

// Run executes the program once. The returned result is filled on every
// path except invalid configuration.
func (r *Runner) Run(ctx context.Context, cfg model.Configuration, timeout time.Duration) (model.ExecutionResult, error) {
	if err := cfg.Validate(); err != nil {
		return model.ExecutionResult{}, err
	}
	timeout = r.Timeout(timeout)
	args := Args(cfg)
	res := model.ExecutionResult{
		Config:    cfg,
		StartedAt: time.Now().UTC(),
		Command:   append([]string{r.Program}, args...),
		ExitCode:  -1,
	}
	log := r.logger().With("program", r.Program, "config", cfg.String())

	if err := r.ensureProgram(ctx); err != nil {
		if ctx.Err() != nil {
			return r.fail(log, res, &ProcessError{Class: model.ClassCanceled, Output: buildOutput(err), Err: context.Cause(ctx)})
		}
		return r.fail(log, res, &ProcessError{Class: model.ClassBuildFailure, Output: buildOutput(err), Err: err})
	}

	if err := ctx.Err(); err != nil {
		return r.fail(log, res, &ProcessError{Class: model.ClassCanceled, Err: err})
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := newLimitedBuffer(r.MaxOutputBytes)
	cmd := exec.CommandContext(runCtx, r.Program, args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdout = out
	cmd.Stderr = out
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	log.Info("Launching program", "args", args, "timeout", timeout)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		res.Duration = time.Since(start)
		return r.fail(log, res, &ProcessError{Class: model.ClassBuildFailure, Err: fmt.Errorf("start %s: %w", r.Program, err)})
	}
	res.PID = cmd.Process.Pid
	waitErr := cmd.Wait()
	reapGroup(res.PID)

	res.Duration = time.Since(start)
	res.Output = out.String()
	res.Truncated = out.Truncated()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	class := classify(ctx, runCtx, cmd, waitErr)
	if class == model.ClassSucceeded {
		res.Success = true
		res.Classification = class
		res.DurationMS = res.Duration.Milliseconds()
		log.Info("Program finished", "classification", class, "duration", res.Duration, "exit_code", res.ExitCode)
		return res, nil
	}

	perr := &ProcessError{Class: class, ExitCode: res.ExitCode, Output: res.Output}
	switch class {
	case model.ClassTimeout:
		perr.Timeout = timeout
		perr.Err = context.DeadlineExceeded
	case model.ClassCanceled:
		perr.Err = context.Cause(ctx)
	default:
		perr.Err = waitErr
	}
	return r.fail(log, res, perr)
}

func (r *Runner) ensureProgram(ctx context.Context) error {
	if r.Program == "" {
		return errors.New("program path is not configured")
	}
	if isExecutable(r.Program) {
		return nil
	}
	if r.Builder == nil {
		return fmt.Errorf("DonutBufferApp not found at %s. Please build the project first. %s", r.Program, BuildInstructions)
	}
	r.logger().Info("Program missing, building", "program", r.Program, "dir", r.Builder.Dir)
	_, err := r.Builder.Ensure(ctx, r.Program)
	return err
}

func (r *Runner) fail(log *slog.Logger, res model.ExecutionResult, perr *ProcessError) (model.ExecutionResult, error) {
	res.Success = false
	res.Classification = perr.Class
	res.Error = perr.Error()
	if res.Output == "" {
		res.Output = perr.Output
	}
	perr.Output = res.Output
	res.DurationMS = res.Duration.Milliseconds()
	log.Warn("Program failed", "classification", perr.Class, "exit_code", res.ExitCode, "duration", res.Duration, "error", perr.Err)
	return res, perr
}

func classify(parent, runCtx context.Context, cmd *exec.Cmd, waitErr error) model.Classification {
	exited := cmd.ProcessState != nil && cmd.ProcessState.Success()
	if waitErr == nil || (errors.Is(waitErr, exec.ErrWaitDelay) && exited) {
		return model.ClassSucceeded
	}
	if parent.Err() != nil {
		return model.ClassCanceled
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return model.ClassTimeout
	}
	return model.ClassRuntimeFailure
}

func buildOutput(err error) string {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Output
	}
	return err.Error()
}
