package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	t.Parallel()

	cause := errors.New("version conflict")
	tests := []struct {
		name     string
		err      error
		category error
		contains string
	}{
		{"validation", NewValidationError("rating", "must be between 1 and 5"), ErrValidation, "rating: must be between 1 and 5"},
		{"state", NewStateError("stack", "complete", "in_progress"), ErrInvalidState, `cannot complete stack in state "in_progress"`},
		{"policy", NewPolicyLimitError("max outstanding checks", 3, 3), ErrPolicyLimit, "resolve an existing check first"},
		{"conflict", NewConflictError("stack", 4, cause), ErrConflict, "after 4 attempts"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tc.err, tc.category)
			assert.Contains(t, tc.err.Error(), tc.contains)
			for _, other := range []error{ErrValidation, ErrInvalidState, ErrPolicyLimit, ErrConflict} {
				if other != tc.category {
					assert.NotErrorIs(t, tc.err, other)
				}
			}
		})
	}

	assert.ErrorIs(t, NewConflictError("stack", 1, cause), cause)
}
