package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/google/uuid"
)

// StackStore defines the interface for stack persistence. Stacks are never
// deleted; completed stacks remain as history.
type StackStore interface {
	// Create saves a new stack.
	// Returns validation errors from the domain Stack if data is invalid.
	Create(ctx context.Context, stack *domain.Stack) error

	// Get retrieves a stack by ID without locking.
	// Returns ErrStackNotFound if the stack does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Stack, error)

	// GetForUpdate retrieves a stack with a row-level lock.
	// Returns ErrStackNotFound if the stack does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Stack, error)

	// ListOverdue returns the user's pending_test stacks whose test deadline
	// is before the given instant, oldest deadline first.
	ListOverdue(ctx context.Context, userID uuid.UUID, before time.Time) ([]*domain.Stack, error)

	// Update writes stack if its Version still matches and increments
	// stack.Version on success.
	// Returns ErrStackNotFound or ErrVersionConflict.
	Update(ctx context.Context, stack *domain.Stack) error

	// WithTx returns a new StackStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) StackStore
}
