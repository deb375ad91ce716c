package domain

import (
	"errors"
	"fmt"
)

// Error kinds returned by the core. The API layer maps these to response
// statuses; the core never panics on expected conditions.
var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrCapacityExceeded   = errors.New("board limit reached")
	ErrInvalidReference   = errors.New("invalid reference")
	ErrAlreadyExists      = errors.New("already exists")
	ErrPersistenceFailure = errors.New("persistence failure")
)

// InconsistencyError indicates that a multi-row write was partially applied
// before a persistence failure. When the storage runs the operation inside a
// transaction the partial writes roll back, but callers must still treat the
// local state as stale and reload.
type InconsistencyError struct {
	Op  string
	Err error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s applied with inconsistency, reload required: %v", e.Op, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }
