package shared

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	traced := SetTraceID(ctx)
	id := GetTraceID(traced)
	require.Len(t, id, 2*TraceIDLength)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)
	assert.Empty(t, GetTraceID(ctx), "parent context is unchanged")

	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 42)))
}

func TestWithTraceID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "upstream id kept", incoming: "gw-7f3a", keep: true},
		{name: "empty replaced", incoming: ""},
		{name: "oversized replaced", incoming: strings.Repeat("x", maxTraceIDLength+1)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			id := GetTraceID(WithTraceID(context.Background(), tc.incoming))
			if tc.keep {
				assert.Equal(t, tc.incoming, id)
				return
			}
			assert.Len(t, id, 2*TraceIDLength)
		})
	}
}

func TestGeneratedTraceIDsAreUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 500)
	for i := 0; i < 500; i++ {
		id := generateTraceID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate trace id %s", id)
		seen[id] = struct{}{}
	}

	fallback := generateFallbackTraceID()
	assert.Len(t, fallback, 2*TraceIDLength)
}
