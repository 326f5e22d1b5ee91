package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		notFound  bool
		duplicate bool
		retryable bool
	}{
		{name: "nil error"},
		{name: "generic error", err: errors.New("some error")},
		{name: "ErrNotFound", err: ErrNotFound, notFound: true},
		{name: "ErrStreakStateNotFound", err: ErrStreakStateNotFound, notFound: true},
		{name: "ErrItemNotFound", err: ErrItemNotFound, notFound: true},
		{name: "ErrStackNotFound", err: ErrStackNotFound, notFound: true},
		{name: "wrapped ErrCheckNotFound", err: fmt.Errorf("load: %w", ErrCheckNotFound), notFound: true},
		{name: "ErrUserExists", err: ErrUserExists, duplicate: true},
		{name: "wrapped ErrDuplicate", err: fmt.Errorf("insert: %w", ErrDuplicate), duplicate: true},
		{name: "ErrVersionConflict", err: ErrVersionConflict, retryable: true},
		{
			name:      "store error wrapping conflict",
			err:       NewStoreError("stack", "update", "stale version", ErrVersionConflict),
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.notFound, IsNotFoundError(tt.err), "IsNotFoundError")
			assert.Equal(t, tt.duplicate, IsDuplicateError(tt.err), "IsDuplicateError")
			assert.Equal(t, tt.retryable, IsRetryable(tt.err), "IsRetryable")
		})
	}
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := NewStoreError("stack", "update", "failed to update stack", cause)

	assert.Equal(t, "update operation on stack failed: failed to update stack: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	var storeErr *StoreError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &storeErr))
	assert.Equal(t, "stack", storeErr.Entity)

	bare := NewStoreError("check", "create", "invalid", nil)
	assert.Equal(t, "create operation on check failed: invalid", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestEntityNotFoundMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "entity not found: stack", ErrStackNotFound.Error())
	assert.Equal(t, "entity already exists: user", ErrUserExists.Error())
}
