package store

import (
	"context"
	"database/sql"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/google/uuid"
)

// CheckStore defines the interface for comprehension check persistence.
type CheckStore interface {
	// Create saves a new check.
	// Returns validation errors from the domain ComprehensionCheck if data is invalid.
	Create(ctx context.Context, check *domain.ComprehensionCheck) error

	// Get retrieves a check by ID without locking.
	// Returns ErrCheckNotFound if the check does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.ComprehensionCheck, error)

	// GetForUpdate retrieves a check with a row-level lock.
	// Returns ErrCheckNotFound if the check does not exist.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ComprehensionCheck, error)

	// LatestForStack returns the most recently created check of a stack.
	// Returns ErrCheckNotFound if the stack never had a check.
	LatestForStack(ctx context.Context, stackID uuid.UUID) (*domain.ComprehensionCheck, error)

	// ListUnresolvedByUser returns the checks that count against the user's
	// outstanding-check limit: pending checks and expired non-legacy checks.
	ListUnresolvedByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ComprehensionCheck, error)

	// Update writes check if its Version still matches and increments
	// check.Version on success.
	// Returns ErrCheckNotFound or ErrVersionConflict.
	Update(ctx context.Context, check *domain.ComprehensionCheck) error

	// WithTx returns a new CheckStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) CheckStore
}
