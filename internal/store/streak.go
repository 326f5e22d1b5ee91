package store

import (
	"context"
	"database/sql"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/google/uuid"
)

// StreakStateStore defines the interface for user streak state persistence.
// The weekly stats travel with the streak state row.
type StreakStateStore interface {
	// Create saves the initial state for a user.
	// Returns ErrUserExists if the user already has a state.
	// Returns validation errors from the domain UserStreakState if data is invalid.
	Create(ctx context.Context, state *domain.UserStreakState) error

	// Get retrieves the state for a user without locking.
	// Returns ErrStreakStateNotFound if the user has no state.
	Get(ctx context.Context, userID uuid.UUID) (*domain.UserStreakState, error)

	// GetForUpdate retrieves the state with a row-level lock using SELECT FOR UPDATE.
	// It is the first lock taken by every transaction that mutates a user's progress.
	// Returns ErrStreakStateNotFound if the user has no state.
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.UserStreakState, error)

	// Update writes state if its Version still matches the stored one and
	// increments state.Version on success.
	// Returns ErrStreakStateNotFound if the user has no state.
	// Returns ErrVersionConflict if the stored version moved on.
	Update(ctx context.Context, state *domain.UserStreakState) error

	// WithTx returns a new StreakStateStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) StreakStateStore
}
