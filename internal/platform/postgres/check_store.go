package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/google/uuid"
)

const checkColumns = `id, user_id, stack_id, deadline, is_legacy, outcome, resolved_at,
	version, created_at, updated_at`

// PostgresCheckStore implements the store.CheckStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCheckStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCheckStore creates a new PostgreSQL implementation of the CheckStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresCheckStore(db store.DBTX, logger *slog.Logger) *PostgresCheckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCheckStore{
		db:     db,
		logger: logger.With(slog.String("component", "check_store")),
	}
}

// Ensure PostgresCheckStore implements store.CheckStore interface
var _ store.CheckStore = (*PostgresCheckStore)(nil)

// WithTx implements store.CheckStore.WithTx
func (s *PostgresCheckStore) WithTx(tx *sql.Tx) store.CheckStore {
	return &PostgresCheckStore{db: tx, logger: s.logger}
}

// Create implements store.CheckStore.Create
func (s *PostgresCheckStore) Create(ctx context.Context, check *domain.ComprehensionCheck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := check.Validate(); err != nil {
		log.Warn("check validation failed during create",
			slog.String("error", err.Error()),
			slog.String("check_id", check.ID.String()))
		return err
	}

	query := `INSERT INTO comprehension_check (` + checkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.db.ExecContext(ctx, query,
		check.ID,
		check.UserID,
		check.StackID,
		check.Deadline.UTC(),
		check.IsLegacy,
		string(check.Outcome),
		nullTime(check.ResolvedAt),
		check.Version,
		check.CreatedAt.UTC(),
		check.UpdatedAt.UTC(),
	)
	if err != nil {
		log.Error("failed to create check",
			slog.String("error", err.Error()),
			slog.String("check_id", check.ID.String()),
			slog.String("stack_id", check.StackID.String()))
		return MapError(err)
	}

	log.Debug("check created",
		slog.String("check_id", check.ID.String()),
		slog.Time("deadline", check.Deadline))
	return nil
}

// Get implements store.CheckStore.Get
func (s *PostgresCheckStore) Get(ctx context.Context, id uuid.UUID) (*domain.ComprehensionCheck, error) {
	return s.getOne(ctx, `SELECT `+checkColumns+` FROM comprehension_check WHERE id = $1`, id)
}

// GetForUpdate implements store.CheckStore.GetForUpdate
func (s *PostgresCheckStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ComprehensionCheck, error) {
	return s.getOne(ctx, `SELECT `+checkColumns+` FROM comprehension_check WHERE id = $1 FOR UPDATE`, id)
}

// LatestForStack implements store.CheckStore.LatestForStack
func (s *PostgresCheckStore) LatestForStack(ctx context.Context, stackID uuid.UUID) (*domain.ComprehensionCheck, error) {
	return s.getOne(ctx, `SELECT `+checkColumns+` FROM comprehension_check
		WHERE stack_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, stackID)
}

func (s *PostgresCheckStore) getOne(ctx context.Context, query string, id uuid.UUID) (*domain.ComprehensionCheck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	check, err := scanCheck(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("check not found", slog.String("id", id.String()))
			return nil, store.ErrCheckNotFound
		}
		log.Error("failed to get check",
			slog.String("error", err.Error()),
			slog.String("id", id.String()))
		return nil, MapError(err)
	}
	return check, nil
}

// ListUnresolvedByUser implements store.CheckStore.ListUnresolvedByUser
func (s *PostgresCheckStore) ListUnresolvedByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ComprehensionCheck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + checkColumns + ` FROM comprehension_check
		WHERE user_id = $1 AND (outcome = $2 OR (outcome = $3 AND NOT is_legacy))
		ORDER BY created_at ASC, id ASC`
	rows, err := s.db.QueryContext(ctx, query, userID,
		string(domain.CheckOutcomePending), string(domain.CheckOutcomeExpired))
	if err != nil {
		log.Error("failed to query unresolved checks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var checks []*domain.ComprehensionCheck
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check row: %w", err)
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check rows: %w", err)
	}
	return checks, nil
}

// Update implements store.CheckStore.Update
func (s *PostgresCheckStore) Update(ctx context.Context, check *domain.ComprehensionCheck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := check.Validate(); err != nil {
		log.Warn("check validation failed during update",
			slog.String("error", err.Error()),
			slog.String("check_id", check.ID.String()))
		return err
	}

	query := `
		UPDATE comprehension_check
		SET deadline = $2, is_legacy = $3, outcome = $4, resolved_at = $5, updated_at = $6,
			version = version + 1
		WHERE id = $1 AND version = $7
	`
	err := execVersioned(ctx, s.db, "comprehension_check", "id", check.ID, store.ErrCheckNotFound,
		query,
		check.ID,
		check.Deadline.UTC(),
		check.IsLegacy,
		string(check.Outcome),
		nullTime(check.ResolvedAt),
		check.UpdatedAt.UTC(),
		check.Version,
	)
	if err != nil {
		log.Warn("failed to update check",
			slog.String("error", err.Error()),
			slog.String("check_id", check.ID.String()),
			slog.Int64("version", check.Version))
		return err
	}

	check.Version++
	return nil
}

func scanCheck(row rowScanner) (*domain.ComprehensionCheck, error) {
	var (
		check    domain.ComprehensionCheck
		outcome  string
		resolved sql.NullTime
	)

	err := row.Scan(
		&check.ID,
		&check.UserID,
		&check.StackID,
		&check.Deadline,
		&check.IsLegacy,
		&outcome,
		&resolved,
		&check.Version,
		&check.CreatedAt,
		&check.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	check.Outcome = domain.CheckOutcome(outcome)
	check.Deadline = check.Deadline.UTC()
	check.ResolvedAt = timeFrom(resolved)
	check.CreatedAt = check.CreatedAt.UTC()
	check.UpdatedAt = check.UpdatedAt.UTC()
	return &check, nil
}
