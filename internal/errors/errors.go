package errors

import (
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// UsageError indicates a programmer mistake, for example registering two
// select clauses against the same target. It is used as a panic value and is
// never returned from an operation.
type UsageError struct {
	message string
}

func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{
		message: fmt.Sprintf(format, args...),
	}
}

var _ error = (*UsageError)(nil)

func (ue *UsageError) Error() string {
	return ue.message
}

// PanicError wraps a value recovered from a panicking select continuation.
type PanicError struct {
	value      any
	stacktrace string
}

func NewPanicError(value any) *PanicError {
	return &PanicError{
		value:      value,
		stacktrace: stack(value),
	}
}

var _ error = (*PanicError)(nil)

func (pe *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", pe.value)
}

func (pe *PanicError) Value() any {
	return pe.value
}

func (pe *PanicError) Stacktrace() string {
	return pe.stacktrace
}

func (pe *PanicError) Unwrap() error {
	if err, ok := pe.value.(error); ok {
		return err
	}

	return nil
}

func stack(v any) string {
	goerr := goerrors.Wrap(v, 2)
	return string(goerr.Stack())
}
