package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/srs"
	"github.com/AtlasTheChosen/lockn-sub001/internal/events"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/google/uuid"
)

// SubmitRating applies a 1..5 rating to an item: the schedule is advanced,
// a mastery event counts towards today's goal and the weekly total, and the
// first mastery of a stack's last item opens its comprehension check.
//
// The event timestamp is replaced by the service clock. When opening the
// check would exceed the outstanding-check limit, the whole rating is
// rejected with a domain.PolicyLimitError and nothing is persisted.
func (s *Service) SubmitRating(ctx context.Context, event domain.RatingEvent) (RatingResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := event.Validate(); err != nil {
		return RatingResult{}, err
	}

	var result RatingResult
	err := s.run(ctx, "item mastery record", func(ctx context.Context, stores store.Stores, out *outbox) error {
		now := s.now()
		result = RatingResult{}

		u, err := s.materialize(ctx, log, stores, event.UserID, now, out)
		if err != nil {
			return err
		}
		prev, err := stores.Items.GetForUpdate(ctx, event.ItemID)
		if err != nil {
			return fmt.Errorf("failed to lock item record: %w", err)
		}
		if prev.UserID != event.UserID {
			return domain.NewValidationError("item_id", "item belongs to a different user")
		}

		record, err := s.srs.RecordRating(prev, event.Rating, now)
		if err != nil {
			return err
		}
		result.Record = record

		var stack *domain.Stack
		allMastered := false
		if srs.FirstMastery(prev, record) && record.StackID != uuid.Nil {
			locked, err := stores.Stacks.GetForUpdate(ctx, record.StackID)
			if err != nil {
				return fmt.Errorf("failed to lock stack: %w", err)
			}
			stack, allMastered, err = s.stacks.RecordItemMastered(locked, now)
			if err != nil {
				return err
			}
		}

		if s.srs.IsMasteryEvent(event.Rating, record) {
			result.MasteryEvent = true
			if err := s.applyMastery(log, u, record, now, out, &result); err != nil {
				return err
			}
		}

		if allMastered {
			outstanding, err := stores.Checks.ListUnresolvedByUser(ctx, event.UserID)
			if err != nil {
				return fmt.Errorf("failed to list unresolved checks: %w", err)
			}
			pending, check, err := s.stacks.OnAllItemsMastered(stack, outstanding, now)
			if err != nil {
				return err
			}
			if err := stores.Checks.Create(ctx, check); err != nil {
				return fmt.Errorf("failed to create check: %w", err)
			}
			stack = pending
			result.Check = check
			out.add(log, events.TypeStackPendingTest, u.state, events.StackPayload{
				StackID:      stack.ID,
				CheckID:      check.ID,
				TestDeadline: check.Deadline,
			}, now)
		}

		if err := stores.Items.Update(ctx, result.Record); err != nil {
			return fmt.Errorf("failed to update item record: %w", err)
		}
		if stack != nil {
			if err := stores.Stacks.Update(ctx, stack); err != nil {
				return fmt.Errorf("failed to update stack: %w", err)
			}
			status := s.stackStatus(stack, result.Check, now)
			result.Stack = &status
		}
		if err := u.flush(ctx, stores); err != nil {
			return err
		}

		result.Streak, err = s.streakStatus(u.state)
		return err
	})
	if err != nil {
		s.logRatingError(log, event, err)
		return RatingResult{}, err
	}

	log.Debug("rating applied",
		slog.String("user_id", event.UserID.String()),
		slog.String("item_id", event.ItemID.String()),
		slog.Int("rating", event.Rating),
		slog.Bool("mastery_event", result.MasteryEvent),
		slog.Bool("counted", result.Counted),
		slog.Bool("awarded", result.Awarded))
	return result, nil
}

// applyMastery feeds a mastery event to the ledger and, when the item
// counted, to the weekly total.
func (s *Service) applyMastery(
	log *slog.Logger,
	u *userTx,
	record *domain.ItemMasteryRecord,
	now time.Time,
	out *outbox,
	result *RatingResult,
) error {
	outcome, err := s.ledger.OnItemMastered(u.state, record, now)
	if err != nil {
		return err
	}
	result.Record = outcome.Record
	result.Counted = outcome.Counted
	result.Awarded = outcome.Awarded
	if !outcome.Counted {
		return nil
	}

	next := outcome.State
	counted, err := s.weekly.OnCardCounted(next.Weekly, next.Timezone, now)
	if err != nil {
		return err
	}
	next.Weekly = counted.Stats
	result.WeeklyIncremented = counted.Incremented
	if !counted.Incremented {
		log.Debug("weekly cap reached, count ignored",
			slog.String("user_id", next.UserID.String()),
			slog.Int("cap", s.weekly.Cap))
	}
	u.set(next)

	if outcome.Awarded {
		log.Info("streak extended",
			slog.String("user_id", next.UserID.String()),
			slog.Int("current_streak", next.CurrentStreak))
		out.add(log, events.TypeStreakAwarded, next, events.StreakPayload{
			CurrentStreak: next.CurrentStreak,
			LongestStreak: next.LongestStreak,
		}, now)
	}
	return nil
}

func (s *Service) logRatingError(log *slog.Logger, event domain.RatingEvent, err error) {
	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("user_id", event.UserID.String()),
		slog.String("item_id", event.ItemID.String()),
	}
	switch {
	case errors.Is(err, domain.ErrPolicyLimit):
		log.Info("rating rejected by policy", attrs...)
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrConflict):
		log.Warn("rating not applied", attrs...)
	case errors.Is(err, domain.ErrValidation), store.IsNotFoundError(err):
		log.Debug("rating rejected", attrs...)
	default:
		log.Error("failed to submit rating", attrs...)
	}
}
