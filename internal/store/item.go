package store

import (
	"context"
	"database/sql"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/google/uuid"
)

// ItemMasteryStore defines the interface for item mastery record persistence.
type ItemMasteryStore interface {
	// CreateMultiple saves multiple records.
	// IMPORTANT: This method MUST be run within a transaction for atomicity.
	// All records must be valid according to domain validation rules.
	// Returns ErrDuplicate if any item already has a record.
	CreateMultiple(ctx context.Context, records []*domain.ItemMasteryRecord) error

	// Get retrieves the record for an item without locking.
	// Returns ErrItemNotFound if the item has no record.
	Get(ctx context.Context, itemID uuid.UUID) (*domain.ItemMasteryRecord, error)

	// GetForUpdate retrieves the record with a row-level lock.
	// Returns ErrItemNotFound if the item has no record.
	GetForUpdate(ctx context.Context, itemID uuid.UUID) (*domain.ItemMasteryRecord, error)

	// Update writes record if its Version still matches and increments
	// record.Version on success.
	// Returns ErrItemNotFound or ErrVersionConflict.
	Update(ctx context.Context, record *domain.ItemMasteryRecord) error

	// WithTx returns a new ItemMasteryStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) ItemMasteryStore
}
