/*
PURPOSE:
  Produces the benchmark program on demand by running the configured build
  command, serialized across goroutines and processes with a file lock.

REQUIREMENTS:
  User-specified:
  - A program that cannot be produced is a build failure, distinguishable
    from a runtime failure.

  Implementation-discovered:
  - Several runs (or several facade processes) can find the program missing
    at the same time; only one may build, the others wait and reuse it.
  - A build that "succeeds" without producing the program is still a failure.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Dependencies: github.com/gofrs/flock

ERROR HANDLING:
  - Returns *BuildError carrying the build output.

IMPLEMENTATION RULES:
  - Re-check the artifact after acquiring the lock.
  - The build is bounded by Timeout and by the caller's context.

USAGE:
  b := &engine.Builder{Command: []string{"sh", "-c", "cmake --build build"}, Dir: repo}
  out, err := b.Ensure(ctx, programPath)

SELF-HEALING INSTRUCTIONS:
  - A stale lock file is harmless; flock locks die with their process.

RELATED FILES:
  - internal/engine/runner.go

MAINTENANCE:
  - Update the default build command when the program's build system changes.
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

// DefaultBuildCommand mirrors the program's documented build steps.
var DefaultBuildCommand = []string{"sh", "-c", "mkdir -p build && cd build && cmake .. -G Ninja && cmake --build ."}

// BuildInstructions is returned to callers when no build command is configured.
const BuildInstructions = "Run: mkdir -p build && cd build && cmake .. -G Ninja && cmake --build ."

// BuildError reports a failed build.
type BuildError struct {
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build failed: %v", e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Builder runs the build command once per missing artifact.
type Builder struct {
	Command        []string
	Dir            string
	LockPath       string
	Timeout        time.Duration
	Env            []string
	MaxOutputBytes int64
}

// Ensure makes sure artifact exists, building it if needed. The returned
// string is the build output (empty when nothing was built).
func (b *Builder) Ensure(ctx context.Context, artifact string) (string, error) {
	if len(b.Command) == 0 {
		return "", &BuildError{Err: errors.New("no build command configured")}
	}

	lockPath := b.LockPath
	if lockPath == "" {
		lockPath = filepath.Join(os.TempDir(), "donut-runner-build.lock")
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		return "", &BuildError{Err: fmt.Errorf("acquire build lock %s: %w", lockPath, err)}
	}
	if !locked {
		return "", &BuildError{Err: fmt.Errorf("build lock %s not acquired", lockPath)}
	}
	defer func() { _ = lock.Unlock() }()

	if isExecutable(artifact) {
		return "", nil
	}

	timeout := b.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	buildCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := newLimitedBuffer(b.MaxOutputBytes)
	cmd := exec.CommandContext(buildCtx, b.Command[0], b.Command[1:]...)
	cmd.Dir = b.Dir
	cmd.Env = append(os.Environ(), b.Env...)
	cmd.Stdout = out
	cmd.Stderr = out
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = 2 * time.Second

	err = cmd.Run()
	if cmd.Process != nil {
		reapGroup(cmd.Process.Pid)
	}
	if err != nil {
		if buildCtx.Err() != nil {
			err = fmt.Errorf("%w: %w", err, buildCtx.Err())
		}
		return out.String(), &BuildError{Output: out.String(), Err: err}
	}
	if !isExecutable(artifact) {
		return out.String(), &BuildError{
			Output: out.String(),
			Err:    fmt.Errorf("build finished but %s is missing or not executable", artifact),
		}
	}
	return out.String(), nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
