// Package storageerr defines the error kinds returned by the storage layer
// and the translation from low-level PostgreSQL failures into them.
// Callers should use errors.Is to match these values.
package storageerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict signals a violated uniqueness constraint. The row that
	// caused it was not persisted; exactly the pre-existing row remains.
	ErrConflict = errors.New("already exists")

	// ErrNotFound signals that a targeted row is absent.
	ErrNotFound = errors.New("not found")

	// ErrUnknownParent signals an insert referencing a parent row that does
	// not exist (foreign key violation).
	ErrUnknownParent = errors.New("unknown parent row")

	// ErrInvalidArgument signals malformed caller input, rejected before any
	// query is executed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLockTimeout signals that a row lock could not be acquired in time,
	// or that the backend broke a deadlock. The unit of work must be rolled
	// back and, if desired, retried from the beginning.
	ErrLockTimeout = errors.New("lock wait timeout")
)

// ConflictError carries the name of the violated constraint so callers can
// tell which field collided (email, token, key id, ...). It matches
// ErrConflict under errors.Is.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	if e.Constraint == "" {
		return ErrConflict.Error()
	}
	return fmt.Sprintf("already exists: constraint %s", e.Constraint)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// NewConflict returns a ConflictError for the given constraint name.
func NewConflict(constraint string) error {
	return &ConflictError{Constraint: constraint}
}
