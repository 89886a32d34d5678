package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration matches any *InvalidConfigurationError via errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// InvalidConfigurationError reports the offending field and the bound it violated.
type InvalidConfigurationError struct {
	Field string
	Bound string
	Value any
}

// Error implements the error interface.
func (e *InvalidConfigurationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid configuration: %s is %s", e.Field, e.Bound)
	}
	return fmt.Sprintf("invalid configuration: %s=%v violates bound %s", e.Field, e.Value, e.Bound)
}

// Is lets errors.Is(err, ErrInvalidConfiguration) succeed.
func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}
