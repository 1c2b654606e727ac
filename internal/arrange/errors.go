package arrange

import (
	"errors"
	"fmt"
)

var (
	// ErrVariableNotFound is returned when the requested variable is not in the result set.
	ErrVariableNotFound = errors.New("variable not found")
	// ErrConfigurationMismatch marks a stage configured against a dimension
	// or shape the table does not have at that point of the pipeline.
	ErrConfigurationMismatch = errors.New("configuration mismatch")
)

// StageError reports which stage failed and on which dimension.
type StageError struct {
	Stage     string
	Dimension string
	Err       error
}

func (e *StageError) Error() string {
	if e.Dimension == "" {
		return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s: dimension %q: %v", e.Stage, e.Dimension, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func mismatch(stage, dim, format string, args ...any) error {
	return &StageError{
		Stage:     stage,
		Dimension: dim,
		Err:       fmt.Errorf("%w: %s", ErrConfigurationMismatch, fmt.Sprintf(format, args...)),
	}
}
