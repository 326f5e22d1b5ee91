package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/google/uuid"
)

const itemColumns = `item_id, user_id, stack_id, mastery_level, ease_factor, interval_days,
	next_review_date, review_count, last_reviewed_at, contributed_to_streak_date,
	mastered_at, version, created_at, updated_at`

// PostgresItemMasteryStore implements the store.ItemMasteryStore interface
// using a PostgreSQL database as the storage backend.
type PostgresItemMasteryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresItemMasteryStore creates a new PostgreSQL implementation of the ItemMasteryStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresItemMasteryStore(db store.DBTX, logger *slog.Logger) *PostgresItemMasteryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresItemMasteryStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_mastery_store")),
	}
}

// Ensure PostgresItemMasteryStore implements store.ItemMasteryStore interface
var _ store.ItemMasteryStore = (*PostgresItemMasteryStore)(nil)

// WithTx implements store.ItemMasteryStore.WithTx
func (s *PostgresItemMasteryStore) WithTx(tx *sql.Tx) store.ItemMasteryStore {
	return &PostgresItemMasteryStore{db: tx, logger: s.logger}
}

// CreateMultiple implements store.ItemMasteryStore.CreateMultiple
// Records are validated up front so nothing is written when one is invalid.
func (s *PostgresItemMasteryStore) CreateMultiple(ctx context.Context, records []*domain.ItemMasteryRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(records) == 0 {
		return nil
	}
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			log.Warn("item mastery record validation failed during create",
				slog.String("error", err.Error()),
				slog.String("item_id", rec.ItemID.String()))
			return err
		}
	}

	stmt, err := s.db.PrepareContext(ctx, `INSERT INTO item_mastery_record (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`)
	if err != nil {
		log.Error("failed to prepare item insert", slog.String("error", err.Error()))
		return MapError(err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn("failed to close item insert statement", slog.String("error", closeErr.Error()))
		}
	}()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ItemID,
			rec.UserID,
			nullUUID(rec.StackID),
			rec.MasteryLevel,
			rec.EaseFactor,
			rec.IntervalDays,
			rec.NextReviewDate.UTC(),
			rec.ReviewCount,
			nullTime(rec.LastReviewedAt),
			nullDate(rec.ContributedToStreakDate),
			nullTime(rec.MasteredAt),
			rec.Version,
			rec.CreatedAt.UTC(),
			rec.UpdatedAt.UTC(),
		)
		if err != nil {
			log.Error("failed to create item mastery record",
				slog.String("error", err.Error()),
				slog.String("item_id", rec.ItemID.String()))
			return MapError(err)
		}
	}

	log.Debug("item mastery records created", slog.Int("count", len(records)))
	return nil
}

// Get implements store.ItemMasteryStore.Get
func (s *PostgresItemMasteryStore) Get(ctx context.Context, itemID uuid.UUID) (*domain.ItemMasteryRecord, error) {
	return s.get(ctx, itemID, "")
}

// GetForUpdate implements store.ItemMasteryStore.GetForUpdate
func (s *PostgresItemMasteryStore) GetForUpdate(ctx context.Context, itemID uuid.UUID) (*domain.ItemMasteryRecord, error) {
	return s.get(ctx, itemID, " FOR UPDATE")
}

func (s *PostgresItemMasteryStore) get(ctx context.Context, itemID uuid.UUID, lock string) (*domain.ItemMasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + itemColumns + ` FROM item_mastery_record WHERE item_id = $1` + lock
	rec, err := scanItem(s.db.QueryRowContext(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("item mastery record not found", slog.String("item_id", itemID.String()))
			return nil, store.ErrItemNotFound
		}
		log.Error("failed to get item mastery record",
			slog.String("error", err.Error()),
			slog.String("item_id", itemID.String()))
		return nil, MapError(err)
	}
	return rec, nil
}

// Update implements store.ItemMasteryStore.Update
func (s *PostgresItemMasteryStore) Update(ctx context.Context, rec *domain.ItemMasteryRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := rec.Validate(); err != nil {
		log.Warn("item mastery record validation failed during update",
			slog.String("error", err.Error()),
			slog.String("item_id", rec.ItemID.String()))
		return err
	}

	query := `
		UPDATE item_mastery_record
		SET mastery_level = $2, ease_factor = $3, interval_days = $4, next_review_date = $5,
			review_count = $6, last_reviewed_at = $7, contributed_to_streak_date = $8,
			mastered_at = $9, updated_at = $10, version = version + 1
		WHERE item_id = $1 AND version = $11
	`
	err := execVersioned(ctx, s.db, "item_mastery_record", "item_id", rec.ItemID, store.ErrItemNotFound,
		query,
		rec.ItemID,
		rec.MasteryLevel,
		rec.EaseFactor,
		rec.IntervalDays,
		rec.NextReviewDate.UTC(),
		rec.ReviewCount,
		nullTime(rec.LastReviewedAt),
		nullDate(rec.ContributedToStreakDate),
		nullTime(rec.MasteredAt),
		rec.UpdatedAt.UTC(),
		rec.Version,
	)
	if err != nil {
		log.Warn("failed to update item mastery record",
			slog.String("error", err.Error()),
			slog.String("item_id", rec.ItemID.String()),
			slog.Int64("version", rec.Version))
		return err
	}

	rec.Version++
	return nil
}

func scanItem(row rowScanner) (*domain.ItemMasteryRecord, error) {
	var (
		rec                    domain.ItemMasteryRecord
		stackID                uuid.NullUUID
		lastReviewed, mastered sql.NullTime
		contributed            sql.NullTime
	)

	err := row.Scan(
		&rec.ItemID,
		&rec.UserID,
		&stackID,
		&rec.MasteryLevel,
		&rec.EaseFactor,
		&rec.IntervalDays,
		&rec.NextReviewDate,
		&rec.ReviewCount,
		&lastReviewed,
		&contributed,
		&mastered,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if stackID.Valid {
		rec.StackID = stackID.UUID
	}
	rec.NextReviewDate = rec.NextReviewDate.UTC()
	rec.LastReviewedAt = timeFrom(lastReviewed)
	rec.ContributedToStreakDate = dateFrom(contributed)
	rec.MasteredAt = timeFrom(mastered)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}
