package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
)

// Transactor implements store.Transactor over a *sql.DB.
type Transactor struct {
	db     *sql.DB
	stores store.Stores
}

// NewTransactor creates a Transactor whose stores log through logger.
func NewTransactor(db *sql.DB, logger *slog.Logger) *Transactor {
	if db == nil {
		panic("db cannot be nil")
	}
	return &Transactor{
		db: db,
		stores: store.Stores{
			Streaks: NewPostgresStreakStateStore(db, logger),
			Items:   NewPostgresItemMasteryStore(db, logger),
			Stacks:  NewPostgresStackStore(db, logger),
			Checks:  NewPostgresCheckStore(db, logger),
		},
	}
}

// Ensure Transactor implements store.Transactor interface
var _ store.Transactor = (*Transactor)(nil)

// InTx implements store.Transactor.InTx. Serialization failures and
// deadlocks, including those surfacing at commit, are reported as
// store.ErrVersionConflict.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context, stores store.Stores) error) error {
	err := store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.Stores{
			Streaks: t.stores.Streaks.WithTx(tx),
			Items:   t.stores.Items.WithTx(tx),
			Stacks:  t.stores.Stacks.WithTx(tx),
			Checks:  t.stores.Checks.WithTx(tx),
		})
	})
	if err != nil && IsTransient(err) && !errors.Is(err, store.ErrVersionConflict) {
		return fmt.Errorf("%w: %w", store.ErrVersionConflict, err)
	}
	return err
}

// Stores implements store.Transactor.Stores
func (t *Transactor) Stores() store.Stores {
	return t.stores
}

// DB returns the underlying connection pool.
func (t *Transactor) DB() *sql.DB {
	return t.db
}
