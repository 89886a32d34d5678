package output

import (
	"context"
	"errors"

	"github.com/daryltucker/donut-runner/internal/model"
)

// Recorder persists run records.
type Recorder interface {
	Record(ctx context.Context, rec model.RunRecord) error
	Close() error
}

// MultiRecorder fans a record out to every recorder. A failing sink does
// not stop the others; errors are joined.
type MultiRecorder []Recorder

func (m MultiRecorder) Record(ctx context.Context, rec model.RunRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
