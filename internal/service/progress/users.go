package progress

import (
	"context"
	"log/slog"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/clock"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/google/uuid"
)

// RegisterUser creates the progress state of a new user. An empty timezone
// defaults to UTC.
//
// Returns store.ErrUserExists if the user is already registered and a
// domain.ValidationError for an unknown timezone.
func (s *Service) RegisterUser(ctx context.Context, userID uuid.UUID, timezone string) (StreakStatus, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if userID == uuid.Nil {
		return StreakStatus{}, domain.NewValidationError("user_id", "cannot be empty")
	}
	if err := clock.ValidateTimezone(timezone); err != nil {
		return StreakStatus{}, err
	}

	var status StreakStatus
	err := s.run(ctx, "user streak state", func(ctx context.Context, stores store.Stores, _ *outbox) error {
		state, err := domain.NewUserStreakState(userID, timezone, s.now())
		if err != nil {
			return err
		}
		if err := stores.Streaks.Create(ctx, state); err != nil {
			return err
		}
		status, err = s.streakStatus(state)
		return err
	})
	if err != nil {
		if !store.IsDuplicateError(err) {
			log.Error("failed to register user",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()))
		}
		return StreakStatus{}, err
	}

	log.Info("registered user",
		slog.String("user_id", userID.String()),
		slog.String("timezone", status.Timezone))
	return status, nil
}

// SetTimezone changes the user's timezone. Pending rollover and loss are
// settled in the old timezone first; the streak is never awarded twice for
// one calendar date when the change moves the user back across midnight.
func (s *Service) SetTimezone(ctx context.Context, userID uuid.UUID, timezone string) (StreakStatus, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if timezone == "" {
		return StreakStatus{}, domain.NewValidationError("timezone", "cannot be empty")
	}
	if err := clock.ValidateTimezone(timezone); err != nil {
		return StreakStatus{}, err
	}

	var status StreakStatus
	err := s.run(ctx, "user streak state", func(ctx context.Context, stores store.Stores, out *outbox) error {
		now := s.now()
		u, err := s.materialize(ctx, log, stores, userID, now, out)
		if err != nil {
			return err
		}
		state := u.state.Clone()
		previous := state.Timezone
		state.Timezone = timezone
		state.UpdatedAt = now.UTC()
		u.set(state)
		if err := u.flush(ctx, stores); err != nil {
			return err
		}
		log.Info("changed timezone",
			slog.String("user_id", userID.String()),
			slog.String("from", previous),
			slog.String("to", timezone))
		status, err = s.streakStatus(u.state)
		return err
	})
	if err != nil {
		return StreakStatus{}, err
	}
	return status, nil
}

// GetStreakStatus returns the user's streak. Rollover, loss and overdue
// checks are materialized and persisted before the status is built.
func (s *Service) GetStreakStatus(ctx context.Context, userID uuid.UUID) (StreakStatus, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var status StreakStatus
	err := s.run(ctx, "user streak state", func(ctx context.Context, stores store.Stores, out *outbox) error {
		u, err := s.materialize(ctx, log, stores, userID, s.now(), out)
		if err != nil {
			return err
		}
		if err := u.flush(ctx, stores); err != nil {
			return err
		}
		status, err = s.streakStatus(u.state)
		return err
	})
	if err != nil {
		return StreakStatus{}, err
	}
	return status, nil
}

// GetWeeklyStats returns the user's weekly counts after rolling the week
// over if a new ISO week started. Like every read it materializes and
// persists the user's pending transitions first.
func (s *Service) GetWeeklyStats(ctx context.Context, userID uuid.UUID) (WeeklyStatus, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var status WeeklyStatus
	err := s.run(ctx, "user streak state", func(ctx context.Context, stores store.Stores, out *outbox) error {
		now := s.now()
		u, err := s.materialize(ctx, log, stores, userID, now, out)
		if err != nil {
			return err
		}
		stats, rolled, err := s.weekly.Rollover(u.state.Weekly, u.state.Timezone, now)
		if err != nil {
			return err
		}
		if rolled {
			state := u.state.Clone()
			state.Weekly = stats
			state.UpdatedAt = now.UTC()
			u.set(state)
		}
		if err := u.flush(ctx, stores); err != nil {
			return err
		}
		status = s.weeklyStatus(userID, u.state.Weekly)
		return nil
	})
	if err != nil {
		return WeeklyStatus{}, err
	}
	return status, nil
}
