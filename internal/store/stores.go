package store

import (
	"context"
)

// Stores bundles the per-aggregate stores bound to a single transaction.
type Stores struct {
	Streaks StreakStateStore
	Items   ItemMasteryStore
	Stacks  StackStore
	Checks  CheckStore
}

// Transactor runs units of work atomically.
type Transactor interface {
	// InTx runs fn with stores bound to one transaction. The transaction is
	// committed when fn returns nil and rolled back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error

	// Stores returns stores that are not bound to a transaction, for reads.
	Stores() Stores
}
