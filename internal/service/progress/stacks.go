package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/google/uuid"
)

// CreateStack creates an in-progress stack for userID together with a
// fresh mastery record for every item. Item ids must be unique and not yet
// tracked.
func (s *Service) CreateStack(ctx context.Context, userID uuid.UUID, name string, itemIDs []uuid.UUID) (StackStatus, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(itemIDs) == 0 {
		return StackStatus{}, domain.NewValidationError("item_ids", "a stack needs at least one item")
	}
	seen := make(map[uuid.UUID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		if id == uuid.Nil {
			return StackStatus{}, domain.NewValidationError("item_ids", "cannot contain an empty id")
		}
		if _, dup := seen[id]; dup {
			return StackStatus{}, domain.NewValidationError("item_ids", "cannot contain duplicates")
		}
		seen[id] = struct{}{}
	}

	var status StackStatus
	err := s.run(ctx, "stack", func(ctx context.Context, stores store.Stores, out *outbox) error {
		now := s.now()
		u, err := s.materialize(ctx, log, stores, userID, now, out)
		if err != nil {
			return err
		}

		stack, err := domain.NewStack(userID, name, len(itemIDs), now)
		if err != nil {
			return err
		}
		if err := stores.Stacks.Create(ctx, stack); err != nil {
			return fmt.Errorf("failed to create stack: %w", err)
		}

		records := make([]*domain.ItemMasteryRecord, 0, len(itemIDs))
		for _, id := range itemIDs {
			rec, err := domain.NewItemMasteryRecord(id, userID, stack.ID, now)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		if err := stores.Items.CreateMultiple(ctx, records); err != nil {
			return fmt.Errorf("failed to create item records: %w", err)
		}

		if err := u.flush(ctx, stores); err != nil {
			return err
		}
		status = s.stackStatus(stack, nil, now)
		return nil
	})
	if err != nil {
		log.Warn("failed to create stack",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return StackStatus{}, err
	}

	log.Info("created stack",
		slog.String("user_id", userID.String()),
		slog.String("stack_id", status.StackID.String()),
		slog.Int("total_cards", status.TotalCards))
	return status, nil
}

// GetStackStatus returns a stack's lifecycle status. Like every read it
// materializes and persists the owning user's pending transitions first, so
// a locked stack is always reflected in the user's frozen set.
func (s *Service) GetStackStatus(ctx context.Context, stackID uuid.UUID) (StackStatus, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// The owning user is needed to take the first lock.
	existing, err := s.tx.Stores().Stacks.Get(ctx, stackID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to get stack",
				slog.String("error", err.Error()),
				slog.String("stack_id", stackID.String()))
		}
		return StackStatus{}, err
	}

	var status StackStatus
	err = s.run(ctx, "stack", func(ctx context.Context, stores store.Stores, out *outbox) error {
		now := s.now()
		u, err := s.materialize(ctx, log, stores, existing.UserID, now, out)
		if err != nil {
			return err
		}
		if err := u.flush(ctx, stores); err != nil {
			return err
		}

		stack, err := stores.Stacks.Get(ctx, stackID)
		if err != nil {
			return fmt.Errorf("failed to get stack: %w", err)
		}
		var check *domain.ComprehensionCheck
		if stack.Status != domain.StackStatusInProgress {
			check, err = stores.Checks.LatestForStack(ctx, stack.ID)
			if err != nil && !store.IsNotFoundError(err) {
				return fmt.Errorf("failed to get check: %w", err)
			}
		}
		status = s.stackStatus(stack, check, now)
		return nil
	})
	if err != nil {
		return StackStatus{}, err
	}
	return status, nil
}
