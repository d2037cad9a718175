package pipeline

import (
	"errors"
	"fmt"
)

// ErrSeekFailed wraps a source error from a seek. It is logged, never fatal.
var ErrSeekFailed = errors.New("pipeline: seek failed")

// SetupError reports a failure that prevents playback from starting:
// the source cannot be opened, it has no playable stream, or the output
// device is unavailable.
type SetupError struct {
	Op  string
	Err error
}

// NewSetupError wraps err as a setup failure of op.
func NewSetupError(op string, err error) *SetupError {
	return &SetupError{Op: op, Err: err}
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// IsSetupError reports whether err is or wraps a SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}
