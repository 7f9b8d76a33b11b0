package rendez

import (
	"github.com/rendezlib/go-rendez/internal/errors"
)

// PanicError wraps a value recovered from a panicking select continuation.
type PanicError = errors.PanicError

// UsageError indicates a programmer mistake, for example registering two
// clauses against the same target. It is used as a panic value.
type UsageError = errors.UsageError
