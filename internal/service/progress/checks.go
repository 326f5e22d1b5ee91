package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/events"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
)

// RecordCheckOutcome resolves a comprehension check.
//
// A pass completes the stack and releases it from the frozen set; releasing
// the last frozen stack resumes the suspended streak and awards today if its
// requirement was already met. Late passes of
// expired checks are accepted. An expiry report is honored only once the
// deadline and grace elapsed and is a no-op before that.
func (s *Service) RecordCheckOutcome(ctx context.Context, event domain.CheckOutcomeEvent) (CheckResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := event.Validate(); err != nil {
		return CheckResult{}, err
	}

	// The owning user is needed to take the first lock.
	existing, err := s.tx.Stores().Checks.Get(ctx, event.CheckID)
	if err != nil {
		return CheckResult{}, err
	}

	var result CheckResult
	err = s.run(ctx, "comprehension check", func(ctx context.Context, stores store.Stores, out *outbox) error {
		now := s.now()
		result = CheckResult{}

		u, err := s.materialize(ctx, log, stores, existing.UserID, now, out)
		if err != nil {
			return err
		}
		stack, err := stores.Stacks.GetForUpdate(ctx, existing.StackID)
		if err != nil {
			return fmt.Errorf("failed to lock stack: %w", err)
		}
		check, err := stores.Checks.GetForUpdate(ctx, event.CheckID)
		if err != nil {
			return fmt.Errorf("failed to lock check: %w", err)
		}
		// Materializing may already have expired this very check.
		changed := false
		if expired := u.takeExpired(check.ID); expired != nil {
			check, changed = expired, true
		}

		switch event.Outcome {
		case domain.CheckOutcomePassed:
			passed, err := s.checks.MarkPassed(check, now)
			if err != nil {
				return err
			}
			wasFrozen := u.state.StreakFrozen
			completed, next, err := s.stacks.OnCheckPassed(stack, u.state, now)
			if err != nil {
				return err
			}
			if wasFrozen && !next.StreakFrozen {
				resumed, err := s.ledger.ResumeAfterUnfreeze(next, now)
				if err != nil {
					return err
				}
				next = resumed.State
				result.Unfrozen = true
				out.add(log, events.TypeStreakUnfrozen, next, events.FreezePayload{
					StackID:      stack.ID,
					FrozenStacks: next.StreakFrozenStacks,
				}, now)
				// Today's requirement was met while frozen.
				if resumed.Awarded {
					result.Awarded = true
					out.add(log, events.TypeStreakAwarded, next, events.StreakPayload{
						CurrentStreak: next.CurrentStreak,
						LongestStreak: next.LongestStreak,
					}, now)
				}
			}
			out.add(log, events.TypeStackCompleted, next, events.StackPayload{
				StackID:      stack.ID,
				CheckID:      check.ID,
				TestDeadline: stack.TestDeadline,
			}, now)

			if err := stores.Stacks.Update(ctx, completed); err != nil {
				return fmt.Errorf("failed to update stack: %w", err)
			}
			check, stack, changed = passed, completed, true
			u.set(next)

		case domain.CheckOutcomeExpired:
			miss, err := s.checks.OnDeadlineMissed(check, u.state, stack.ID, now)
			if err != nil {
				return err
			}
			if miss.Expired {
				check, changed = miss.Check, true
			} else if !changed {
				log.Debug("expiry ignored",
					slog.String("check_id", check.ID.String()),
					slog.String("outcome", string(check.Outcome)))
			}
			if miss.Frozen {
				u.set(miss.State)
				out.add(log, events.TypeStreakFrozen, u.state, events.FreezePayload{
					StackID:      stack.ID,
					FrozenStacks: u.state.StreakFrozenStacks,
				}, now)
			}
		}

		if changed {
			if err := stores.Checks.Update(ctx, check); err != nil {
				return fmt.Errorf("failed to update check: %w", err)
			}
		}
		if err := u.flush(ctx, stores); err != nil {
			return err
		}

		result.Check = check
		result.Stack = s.stackStatus(stack, check, now)
		result.Streak, err = s.streakStatus(u.state)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			log.Warn("check outcome not applied",
				slog.String("error", err.Error()),
				slog.String("check_id", event.CheckID.String()),
				slog.String("outcome", string(event.Outcome)))
		} else if !errors.Is(err, domain.ErrValidation) {
			log.Error("failed to record check outcome",
				slog.String("error", err.Error()),
				slog.String("check_id", event.CheckID.String()))
		}
		return CheckResult{}, err
	}

	log.Info("recorded check outcome",
		slog.String("check_id", event.CheckID.String()),
		slog.String("outcome", string(result.Check.Outcome)),
		slog.Bool("unfrozen", result.Unfrozen))
	return result, nil
}
