package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/events"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/google/uuid"
)

// userTx is a user's progress materialized inside one transaction. Check
// expiries found while materializing are written by flush, after the
// operation's own item and stack writes.
type userTx struct {
	state   *domain.UserStreakState
	dirty   bool
	expired []*domain.ComprehensionCheck
	seen    map[uuid.UUID]struct{} // stacks already reconciled
}

func (u *userTx) set(state *domain.UserStreakState) {
	u.state = state
	u.dirty = true
}

// takeExpired removes the deferred expiry of checkID and returns it, or nil.
func (u *userTx) takeExpired(checkID uuid.UUID) *domain.ComprehensionCheck {
	for i, c := range u.expired {
		if c.ID == checkID {
			u.expired = append(u.expired[:i], u.expired[i+1:]...)
			return c
		}
	}
	return nil
}

func (u *userTx) flush(ctx context.Context, stores store.Stores) error {
	for _, check := range u.expired {
		if err := stores.Checks.Update(ctx, check); err != nil {
			return fmt.Errorf("failed to expire check: %w", err)
		}
	}
	u.expired = nil
	if !u.dirty {
		return nil
	}
	if err := stores.Streaks.Update(ctx, u.state); err != nil {
		return fmt.Errorf("failed to update streak state: %w", err)
	}
	u.dirty = false
	return nil
}

// materialize takes the user row lock and applies every lazily detected
// transition up to now: overdue checks freeze the streak, the day rolls
// over and an alive streak whose deadline passed is lost. A check whose
// grace ended before the streak's loss deadline freezes it before the loss
// is evaluated.
func (s *Service) materialize(
	ctx context.Context,
	log *slog.Logger,
	stores store.Stores,
	userID uuid.UUID,
	now time.Time,
	out *outbox,
) (*userTx, error) {
	state, err := stores.Streaks.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock streak state: %w", err)
	}
	u := &userTx{state: state, seen: make(map[uuid.UUID]struct{})}

	lossAt, err := s.ledger.LossDeadline(state)
	if err != nil {
		return nil, err
	}
	if !lossAt.IsZero() && now.After(lossAt) {
		if err := s.reconcileOverdue(ctx, log, stores, u, lossAt, now, out); err != nil {
			return nil, err
		}
	}

	norm, err := s.ledger.Normalize(u.state, now)
	if err != nil {
		return nil, err
	}
	if norm.Changed() {
		u.set(norm.State)
	}
	if norm.Lost {
		log.Info("streak lost",
			slog.String("user_id", userID.String()),
			slog.Int("previous_streak", state.CurrentStreak))
		out.add(log, events.TypeStreakLost, norm.State, events.StreakPayload{
			CurrentStreak:  norm.State.CurrentStreak,
			LongestStreak:  norm.State.LongestStreak,
			PreviousStreak: state.CurrentStreak,
		}, now)
	}

	if err := s.reconcileOverdue(ctx, log, stores, u, now, now, out); err != nil {
		return nil, err
	}
	return u, nil
}

// reconcileOverdue expires the checks of the user's pending stacks whose
// grace ended before asOf and freezes the streak for each non-legacy one.
func (s *Service) reconcileOverdue(
	ctx context.Context,
	log *slog.Logger,
	stores store.Stores,
	u *userTx,
	asOf time.Time,
	now time.Time,
	out *outbox,
) error {
	grace := s.checks.Policy().Grace
	overdue, err := stores.Stacks.ListOverdue(ctx, u.state.UserID, asOf.Add(-grace))
	if err != nil {
		return fmt.Errorf("failed to list overdue stacks: %w", err)
	}

	for _, stack := range overdue {
		if _, done := u.seen[stack.ID]; done {
			continue
		}
		u.seen[stack.ID] = struct{}{}

		check, err := stores.Checks.LatestForStack(ctx, stack.ID)
		if err != nil {
			if store.IsNotFoundError(err) {
				log.Warn("pending stack has no comprehension check",
					slog.String("stack_id", stack.ID.String()))
				continue
			}
			return fmt.Errorf("failed to get check: %w", err)
		}

		miss, err := s.checks.OnDeadlineMissed(check, u.state, stack.ID, now)
		if err != nil {
			return err
		}
		if miss.Expired {
			u.expired = append(u.expired, miss.Check)
			log.Info("comprehension check expired",
				slog.String("check_id", check.ID.String()),
				slog.String("stack_id", stack.ID.String()),
				slog.Bool("legacy", check.IsLegacy))
		}
		if miss.Frozen {
			u.set(miss.State)
			out.add(log, events.TypeStreakFrozen, u.state, events.FreezePayload{
				StackID:      stack.ID,
				FrozenStacks: u.state.StreakFrozenStacks,
			}, now)
		}
	}
	return nil
}
