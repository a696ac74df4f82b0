package hive

import "fmt"

// ValidationError signals malformed input: no event is emitted and no
// state changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NotFoundError signals a missing message, reservation, or agent for an
// operation that requires the target to exist.
type NotFoundError struct {
	Kind string // "message", "reservation", "agent"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Kind, e.Key)
}

// ConflictError signals a hard uniqueness violation the store could not
// resolve (e.g. a primary key collision at the adapter level).
type ConflictError struct {
	Key string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s: %v", e.Key, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// StorageError wraps an adapter or transaction failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
