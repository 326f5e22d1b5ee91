package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/google/uuid"
)

const streakStateColumns = `user_id, timezone, cards_mastered_today, last_mastery_date, last_streak_date,
	current_streak, longest_streak, streak_deadline, display_deadline, streak_countdown_starts,
	streak_awarded_today, streak_frozen, streak_frozen_stacks, current_week_start,
	current_week_cards, weekly_cards_history, version, created_at, updated_at`

// PostgresStreakStateStore implements the store.StreakStateStore interface
// using a PostgreSQL database as the storage backend. The frozen stack set
// and the weekly history are stored as JSONB on the same row.
type PostgresStreakStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStreakStateStore creates a new PostgreSQL implementation of the StreakStateStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresStreakStateStore(db store.DBTX, logger *slog.Logger) *PostgresStreakStateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStreakStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "streak_state_store")),
	}
}

// Ensure PostgresStreakStateStore implements store.StreakStateStore interface
var _ store.StreakStateStore = (*PostgresStreakStateStore)(nil)

// WithTx implements store.StreakStateStore.WithTx
func (s *PostgresStreakStateStore) WithTx(tx *sql.Tx) store.StreakStateStore {
	return &PostgresStreakStateStore{db: tx, logger: s.logger}
}

// Create implements store.StreakStateStore.Create
func (s *PostgresStreakStateStore) Create(ctx context.Context, state *domain.UserStreakState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("streak state validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", state.UserID.String()))
		return err
	}

	frozen, history, err := encodeStreakJSON(state)
	if err != nil {
		return err
	}

	query := `INSERT INTO user_streak_state (` + streakStateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err = s.db.ExecContext(ctx, query,
		state.UserID,
		state.Timezone,
		state.CardsMasteredToday,
		nullDate(state.LastMasteryDate),
		nullDate(state.LastStreakDate),
		state.CurrentStreak,
		state.LongestStreak,
		nullTime(state.StreakDeadline),
		nullTime(state.DisplayDeadline),
		nullTime(state.StreakCountdownStarts),
		state.StreakAwardedToday,
		state.StreakFrozen,
		frozen,
		nullDate(state.Weekly.CurrentWeekStart),
		state.Weekly.CurrentWeekCards,
		history,
		state.Version,
		state.CreatedAt.UTC(),
		state.UpdatedAt.UTC(),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("streak state already exists",
				slog.String("user_id", state.UserID.String()))
		} else {
			log.Error("failed to create streak state",
				slog.String("error", err.Error()),
				slog.String("user_id", state.UserID.String()))
		}
		return MapUniqueViolation(err, store.ErrUserExists)
	}

	log.Debug("streak state created", slog.String("user_id", state.UserID.String()))
	return nil
}

// Get implements store.StreakStateStore.Get
func (s *PostgresStreakStateStore) Get(ctx context.Context, userID uuid.UUID) (*domain.UserStreakState, error) {
	return s.get(ctx, userID, "")
}

// GetForUpdate implements store.StreakStateStore.GetForUpdate
func (s *PostgresStreakStateStore) GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.UserStreakState, error) {
	return s.get(ctx, userID, " FOR UPDATE")
}

func (s *PostgresStreakStateStore) get(ctx context.Context, userID uuid.UUID, lock string) (*domain.UserStreakState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + streakStateColumns + ` FROM user_streak_state WHERE user_id = $1` + lock
	state, err := scanStreakState(s.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("streak state not found", slog.String("user_id", userID.String()))
			return nil, store.ErrStreakStateNotFound
		}
		log.Error("failed to get streak state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	return state, nil
}

// Update implements store.StreakStateStore.Update
func (s *PostgresStreakStateStore) Update(ctx context.Context, state *domain.UserStreakState) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		log.Warn("streak state validation failed during update",
			slog.String("error", err.Error()),
			slog.String("user_id", state.UserID.String()))
		return err
	}

	frozen, history, err := encodeStreakJSON(state)
	if err != nil {
		return err
	}

	query := `
		UPDATE user_streak_state
		SET timezone = $2, cards_mastered_today = $3, last_mastery_date = $4, last_streak_date = $5,
			current_streak = $6, longest_streak = $7, streak_deadline = $8, display_deadline = $9,
			streak_countdown_starts = $10, streak_awarded_today = $11, streak_frozen = $12,
			streak_frozen_stacks = $13, current_week_start = $14, current_week_cards = $15,
			weekly_cards_history = $16, updated_at = $17, version = version + 1
		WHERE user_id = $1 AND version = $18
	`
	err = execVersioned(ctx, s.db, "user_streak_state", "user_id", state.UserID, store.ErrStreakStateNotFound,
		query,
		state.UserID,
		state.Timezone,
		state.CardsMasteredToday,
		nullDate(state.LastMasteryDate),
		nullDate(state.LastStreakDate),
		state.CurrentStreak,
		state.LongestStreak,
		nullTime(state.StreakDeadline),
		nullTime(state.DisplayDeadline),
		nullTime(state.StreakCountdownStarts),
		state.StreakAwardedToday,
		state.StreakFrozen,
		frozen,
		nullDate(state.Weekly.CurrentWeekStart),
		state.Weekly.CurrentWeekCards,
		history,
		state.UpdatedAt.UTC(),
		state.Version,
	)
	if err != nil {
		log.Warn("failed to update streak state",
			slog.String("error", err.Error()),
			slog.String("user_id", state.UserID.String()),
			slog.Int64("version", state.Version))
		return err
	}

	state.Version++
	return nil
}

func encodeStreakJSON(state *domain.UserStreakState) ([]byte, []byte, error) {
	stacks := state.StreakFrozenStacks
	if stacks == nil {
		stacks = []uuid.UUID{}
	}
	frozen, err := json.Marshal(stacks)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode frozen stacks: %w", err)
	}

	entries := state.Weekly.History
	if entries == nil {
		entries = []domain.WeeklyCardEntry{}
	}
	history, err := json.Marshal(entries)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode weekly history: %w", err)
	}
	return frozen, history, nil
}

func scanStreakState(row rowScanner) (*domain.UserStreakState, error) {
	var (
		state                         domain.UserStreakState
		lastMastery, lastStreak, week sql.NullTime
		deadline, display, countdown  sql.NullTime
		frozenJSON, historyJSON       []byte
	)

	err := row.Scan(
		&state.UserID,
		&state.Timezone,
		&state.CardsMasteredToday,
		&lastMastery,
		&lastStreak,
		&state.CurrentStreak,
		&state.LongestStreak,
		&deadline,
		&display,
		&countdown,
		&state.StreakAwardedToday,
		&state.StreakFrozen,
		&frozenJSON,
		&week,
		&state.Weekly.CurrentWeekCards,
		&historyJSON,
		&state.Version,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(frozenJSON) > 0 {
		if err := json.Unmarshal(frozenJSON, &state.StreakFrozenStacks); err != nil {
			return nil, fmt.Errorf("failed to decode frozen stacks: %w", err)
		}
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &state.Weekly.History); err != nil {
			return nil, fmt.Errorf("failed to decode weekly history: %w", err)
		}
	}
	if len(state.Weekly.History) == 0 {
		state.Weekly.History = nil
	}

	state.LastMasteryDate = dateFrom(lastMastery)
	state.LastStreakDate = dateFrom(lastStreak)
	state.Weekly.CurrentWeekStart = dateFrom(week)
	state.StreakDeadline = timeFrom(deadline)
	state.DisplayDeadline = timeFrom(display)
	state.StreakCountdownStarts = timeFrom(countdown)
	state.CreatedAt = state.CreatedAt.UTC()
	state.UpdatedAt = state.UpdatedAt.UTC()
	state.NormalizeFrozenStacks()
	return &state, nil
}
