package console

import (
	"errors"
	"fmt"
)

// ErrDeclined is returned when the user answers no at a confirmation gate.
var ErrDeclined = errors.New("declined by user")

// PreconditionError is a read-only check that failed before any mutation.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

func precondition(format string, args ...interface{}) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// RemoteCallError wraps a gateway failure. The reason is shown verbatim.
type RemoteCallError struct {
	Op  string
	Err error

	// shown is set when the pending indicator already displayed the failure
	shown bool
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error { return e.Err }

func remote(op string, err error) error {
	return &RemoteCallError{Op: op, Err: err}
}
