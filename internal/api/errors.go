package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/AtlasTheChosen/lockn-sub001/internal/api/shared"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/go-playground/validator/v10"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes by
// category, so no internal type leaks into the contract.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	// Not found errors
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, domain.ErrInvalidState),
		store.IsDuplicateError(err):
		return http.StatusConflict

	case errors.Is(err, domain.ErrPolicyLimit):
		return http.StatusUnprocessableEntity

	// Lost concurrency races are transient
	case errors.Is(err, domain.ErrConflict):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that never
// includes driver or storage detail.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	var stateErr *domain.StateError

	switch {
	case errors.As(err, &validationErr):
		if validationErr.Field == "" {
			return "Invalid request: " + validationErr.Reason
		}
		return fmt.Sprintf("Invalid %s: %s", validationErr.Field, validationErr.Reason)

	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"

	// Not found errors
	case errors.Is(err, store.ErrStreakStateNotFound):
		return "User not found"

	case errors.Is(err, store.ErrItemNotFound):
		return "Item not found"

	case errors.Is(err, store.ErrStackNotFound):
		return "Stack not found"

	case errors.Is(err, store.ErrCheckNotFound):
		return "Comprehension check not found"

	// Conflict errors
	case errors.Is(err, store.ErrUserExists):
		return "User already exists"

	case store.IsDuplicateError(err):
		return "Item is already tracked"

	case errors.As(err, &stateErr):
		return fmt.Sprintf("Cannot %s %s in state %s", stateErr.Operation, stateErr.Entity, stateErr.Current)

	case errors.Is(err, domain.ErrPolicyLimit):
		return "Too many outstanding comprehension checks: resolve an existing check first"

	case errors.Is(err, domain.ErrConflict):
		return "The request conflicted with a concurrent update, please retry"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator/v10 failure into a short
// message naming the first offending field.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", toSnakeCase(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "timezone":
		return "unknown timezone"
	case "dive", "unique":
		return "contains invalid or duplicate entries"
	default:
		return "validation failed"
	}
}

func toSnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(name[i-1] >= 'A' && name[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
