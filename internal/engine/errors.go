package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daryltucker/donut-runner/internal/model"
)

// Sentinels for errors.Is. Every *ProcessError matches exactly one of them.
var (
	ErrProcessLaunch   = errors.New("process launch failure")
	ErrProcessTimeout  = errors.New("process timeout")
	ErrProcessRuntime  = errors.New("process runtime failure")
	ErrProcessCanceled = errors.New("process canceled")
)

// ProcessError is returned for every non-success classification. Output
// holds whatever the process (or the build) printed.
type ProcessError struct {
	Class    model.Classification
	ExitCode int
	Timeout  time.Duration
	Output   string
	Err      error
}

// Error implements the error interface.
func (e *ProcessError) Error() string {
	var sb strings.Builder
	switch e.Class {
	case model.ClassBuildFailure:
		sb.WriteString("program could not be launched")
	case model.ClassTimeout:
		fmt.Fprintf(&sb, "program timed out after %s and was killed", e.Timeout)
	case model.ClassCanceled:
		sb.WriteString("program run canceled and killed")
	case model.ClassRuntimeFailure:
		fmt.Fprintf(&sb, "program exited with code %d", e.ExitCode)
	default:
		sb.WriteString("program failed")
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

// Unwrap exposes the classification sentinel and the underlying cause.
func (e *ProcessError) Unwrap() []error {
	errs := []error{classSentinel(e.Class)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func classSentinel(c model.Classification) error {
	switch c {
	case model.ClassBuildFailure:
		return ErrProcessLaunch
	case model.ClassTimeout:
		return ErrProcessTimeout
	case model.ClassCanceled:
		return ErrProcessCanceled
	default:
		return ErrProcessRuntime
	}
}
