// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every typed error below matches exactly one of these
// through errors.Is, so callers can branch on the category without knowing
// the concrete type.
var (
	// ErrValidation is returned when input or an entity fails validation.
	// It is terminal and safe to surface to the user for correction.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState is returned when an operation is not valid for the
	// current lifecycle state of an entity. It indicates a caller-side bug.
	ErrInvalidState = errors.New("invalid lifecycle state")

	// ErrPolicyLimit is returned when a policy cap refuses an operation.
	ErrPolicyLimit = errors.New("policy limit reached")

	// ErrConflict is returned when a concurrent modification could not be
	// resolved within the bounded retry budget. It is transient.
	ErrConflict = errors.New("concurrent modification conflict")
)

// ValidationError describes a single rejected field or value.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError returns a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

// Unwrap returns ErrValidation so errors.Is matches the category.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// StateError reports an operation attempted from the wrong lifecycle state.
type StateError struct {
	Entity    string
	Operation string
	Current   string
}

// NewStateError returns a StateError for entity/operation in state current.
func NewStateError(entity, operation, current string) *StateError {
	return &StateError{Entity: entity, Operation: operation, Current: current}
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s: cannot %s %s in state %q", ErrInvalidState, e.Operation, e.Entity, e.Current)
}

// Unwrap returns ErrInvalidState so errors.Is matches the category.
func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// PolicyLimitError reports that a per-user cap refused an operation.
type PolicyLimitError struct {
	Policy      string
	Limit       int
	Outstanding int
}

// NewPolicyLimitError returns a PolicyLimitError.
func NewPolicyLimitError(policy string, limit, outstanding int) *PolicyLimitError {
	return &PolicyLimitError{Policy: policy, Limit: limit, Outstanding: outstanding}
}

// Error implements the error interface.
func (e *PolicyLimitError) Error() string {
	return fmt.Sprintf("%s: %s (%d of %d outstanding): resolve an existing check first",
		ErrPolicyLimit, e.Policy, e.Outstanding, e.Limit)
}

// Unwrap returns ErrPolicyLimit so errors.Is matches the category.
func (e *PolicyLimitError) Unwrap() error {
	return ErrPolicyLimit
}

// ConflictError reports a lost optimistic-concurrency race after all
// retries were spent.
type ConflictError struct {
	Entity   string
	Attempts int
	Cause    error
}

// NewConflictError returns a ConflictError.
func NewConflictError(entity string, attempts int, cause error) *ConflictError {
	return &ConflictError{Entity: entity, Attempts: attempts, Cause: cause}
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s after %d attempts: %v", ErrConflict, e.Entity, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("%s: %s after %d attempts", ErrConflict, e.Entity, e.Attempts)
}

// Unwrap exposes both the category and the underlying cause.
func (e *ConflictError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrConflict}
	}
	return []error{ErrConflict, e.Cause}
}
