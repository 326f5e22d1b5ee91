package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a second streak state for the same user).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored or violates a database constraint.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrVersionConflict is returned when an optimistic update lost a race:
	// the row exists but its version no longer matches the one that was read.
	// It is retryable.
	ErrVersionConflict = errors.New("version conflict")

	// ErrTransactionFailed is returned when a database transaction fails
	// to begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrStreakStateNotFound indicates that no streak state exists for the user.
	ErrStreakStateNotFound = fmt.Errorf("%w: user streak state", ErrNotFound)

	// ErrItemNotFound indicates that the requested item mastery record does not exist.
	ErrItemNotFound = fmt.Errorf("%w: item mastery record", ErrNotFound)

	// ErrStackNotFound indicates that the requested stack does not exist.
	ErrStackNotFound = fmt.Errorf("%w: stack", ErrNotFound)

	// ErrCheckNotFound indicates that the requested comprehension check does not exist.
	ErrCheckNotFound = fmt.Errorf("%w: comprehension check", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrUserExists indicates that streak state was already created for the user.
	ErrUserExists = fmt.Errorf("%w: user", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// All entity-specific not found errors wrap ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsRetryable reports whether err is a transient concurrency failure that
// a caller may resolve by re-running the whole transaction.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "stack", "comprehension check")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
