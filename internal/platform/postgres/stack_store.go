package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/google/uuid"
)

const stackColumns = `id, user_id, name, status, total_cards, cards_mastered, mastery_reached_at,
	test_deadline, contributed_to_streak, completed_at, version, created_at, updated_at`

// PostgresStackStore implements the store.StackStore interface
// using a PostgreSQL database as the storage backend.
type PostgresStackStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStackStore creates a new PostgreSQL implementation of the StackStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresStackStore(db store.DBTX, logger *slog.Logger) *PostgresStackStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStackStore{
		db:     db,
		logger: logger.With(slog.String("component", "stack_store")),
	}
}

// Ensure PostgresStackStore implements store.StackStore interface
var _ store.StackStore = (*PostgresStackStore)(nil)

// WithTx implements store.StackStore.WithTx
func (s *PostgresStackStore) WithTx(tx *sql.Tx) store.StackStore {
	return &PostgresStackStore{db: tx, logger: s.logger}
}

// Create implements store.StackStore.Create
func (s *PostgresStackStore) Create(ctx context.Context, stack *domain.Stack) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := stack.Validate(); err != nil {
		log.Warn("stack validation failed during create",
			slog.String("error", err.Error()),
			slog.String("stack_id", stack.ID.String()))
		return err
	}

	query := `INSERT INTO stack (` + stackColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := s.db.ExecContext(ctx, query,
		stack.ID,
		stack.UserID,
		stack.Name,
		string(stack.Status),
		stack.TotalCards,
		stack.CardsMastered,
		nullTime(stack.MasteryReachedAt),
		nullTime(stack.TestDeadline),
		stack.ContributedToStreak,
		nullTime(stack.CompletedAt),
		stack.Version,
		stack.CreatedAt.UTC(),
		stack.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to create stack",
			slog.String("error", err.Error()),
			slog.String("stack_id", stack.ID.String()),
			slog.String("user_id", stack.UserID.String()))
		return MapError(err)
	}

	log.Debug("stack created",
		slog.String("stack_id", stack.ID.String()),
		slog.Int("total_cards", stack.TotalCards))
	return nil
}

// Get implements store.StackStore.Get
func (s *PostgresStackStore) Get(ctx context.Context, id uuid.UUID) (*domain.Stack, error) {
	return s.get(ctx, id, "")
}

// GetForUpdate implements store.StackStore.GetForUpdate
func (s *PostgresStackStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Stack, error) {
	return s.get(ctx, id, " FOR UPDATE")
}

func (s *PostgresStackStore) get(ctx context.Context, id uuid.UUID, lock string) (*domain.Stack, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + stackColumns + ` FROM stack WHERE id = $1` + lock
	stack, err := scanStack(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("stack not found", slog.String("stack_id", id.String()))
			return nil, store.ErrStackNotFound
		}
		log.Error("failed to get stack",
			slog.String("error", err.Error()),
			slog.String("stack_id", id.String()))
		return nil, MapError(err)
	}
	return stack, nil
}

// ListOverdue implements store.StackStore.ListOverdue
func (s *PostgresStackStore) ListOverdue(ctx context.Context, userID uuid.UUID, before time.Time) ([]*domain.Stack, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + stackColumns + ` FROM stack
		WHERE user_id = $1 AND status = $2 AND test_deadline < $3
		ORDER BY test_deadline ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, userID, string(domain.StackStatusPendingTest), before.UTC())
	if err != nil {
		log.Error("failed to query overdue stacks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var stacks []*domain.Stack
	for rows.Next() {
		stack, err := scanStack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stack row: %w", err)
		}
		stacks = append(stacks, stack)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stack rows: %w", err)
	}
	return stacks, nil
}

// Update implements store.StackStore.Update
func (s *PostgresStackStore) Update(ctx context.Context, stack *domain.Stack) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := stack.Validate(); err != nil {
		log.Warn("stack validation failed during update",
			slog.String("error", err.Error()),
			slog.String("stack_id", stack.ID.String()))
		return err
	}

	query := `
		UPDATE stack
		SET name = $2, status = $3, total_cards = $4, cards_mastered = $5, mastery_reached_at = $6,
			test_deadline = $7, contributed_to_streak = $8, completed_at = $9, updated_at = $10,
			version = version + 1
		WHERE id = $1 AND version = $11
	`
	err := execVersioned(ctx, s.db, "stack", "id", stack.ID, store.ErrStackNotFound,
		query,
		stack.ID,
		stack.Name,
		string(stack.Status),
		stack.TotalCards,
		stack.CardsMastered,
		nullTime(stack.MasteryReachedAt),
		nullTime(stack.TestDeadline),
		stack.ContributedToStreak,
		nullTime(stack.CompletedAt),
		stack.UpdatedAt.UTC(),
		stack.Version,
	)
	if err != nil {
		log.Warn("failed to update stack",
			slog.String("error", err.Error()),
			slog.String("stack_id", stack.ID.String()),
			slog.Int64("version", stack.Version))
		return err
	}

	stack.Version++
	return nil
}

func scanStack(row rowScanner) (*domain.Stack, error) {
	var (
		stack                    domain.Stack
		status                   string
		masteryReached, deadline sql.NullTime
		completed                sql.NullTime
	)

	err := row.Scan(
		&stack.ID,
		&stack.UserID,
		&stack.Name,
		&status,
		&stack.TotalCards,
		&stack.CardsMastered,
		&masteryReached,
		&deadline,
		&stack.ContributedToStreak,
		&completed,
		&stack.Version,
		&stack.CreatedAt,
		&stack.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	stack.Status = domain.StackStatus(status)
	stack.MasteryReachedAt = timeFrom(masteryReached)
	stack.TestDeadline = timeFrom(deadline)
	stack.CompletedAt = timeFrom(completed)
	stack.CreatedAt = stack.CreatedAt.UTC()
	stack.UpdatedAt = stack.UpdatedAt.UTC()
	return &stack, nil
}
