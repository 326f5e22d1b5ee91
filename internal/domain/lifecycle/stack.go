package lifecycle

import (
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
)

// StackManager drives a stack through in_progress → pending_test →
// completed. A pending_test stack whose check deadline and grace elapsed is
// reported as locked; locked is derived, never stored.
type StackManager struct {
	deadlines *DeadlineManager
}

// NewStackManager creates a StackManager backed by deadlines.
func NewStackManager(deadlines *DeadlineManager) *StackManager {
	if deadlines == nil {
		deadlines = NewDeadlineManager(DefaultDeadlinePolicy())
	}
	return &StackManager{deadlines: deadlines}
}

// Deadlines returns the DeadlineManager used for checks.
func (m *StackManager) Deadlines() *DeadlineManager {
	return m.deadlines
}

// RecordItemMastered counts one item of stack as having crossed the mastery
// threshold for the first time and reports whether every item is now
// mastered.
func (m *StackManager) RecordItemMastered(stack *domain.Stack, now time.Time) (*domain.Stack, bool, error) {
	if stack == nil {
		return nil, false, domain.NewValidationError("stack", "cannot be nil")
	}
	if stack.Status != domain.StackStatusInProgress {
		return nil, false, domain.NewStateError("stack", "record mastery for", string(stack.Status))
	}
	if stack.CardsMastered >= stack.TotalCards {
		return nil, false, domain.NewStateError("stack", "record mastery for", "fully mastered")
	}

	next := stack.Clone()
	next.CardsMastered++
	next.UpdatedAt = now.UTC()
	return next, next.CardsMastered == next.TotalCards, nil
}

// OnAllItemsMastered moves a fully mastered stack to pending_test and opens
// its comprehension check. outstanding are the user's unresolved checks. On
// a PolicyLimitError neither the stack nor a check is produced.
func (m *StackManager) OnAllItemsMastered(
	stack *domain.Stack,
	outstanding []*domain.ComprehensionCheck,
	now time.Time,
) (*domain.Stack, *domain.ComprehensionCheck, error) {
	if stack == nil {
		return nil, nil, domain.NewValidationError("stack", "cannot be nil")
	}
	if stack.Status != domain.StackStatusInProgress {
		return nil, nil, domain.NewStateError("stack", "start test for", string(stack.Status))
	}
	if stack.CardsMastered != stack.TotalCards {
		return nil, nil, domain.NewStateError("stack", "start test for", "partially mastered")
	}

	check, err := m.deadlines.CreateCheck(stack.UserID, stack, outstanding, now)
	if err != nil {
		return nil, nil, err
	}

	now = now.UTC()
	next := stack.Clone()
	next.Status = domain.StackStatusPendingTest
	next.MasteryReachedAt = now
	next.TestDeadline = check.Deadline
	next.UpdatedAt = now
	if err := next.Validate(); err != nil {
		return nil, nil, err
	}
	return next, check, nil
}

// IsLocked reports whether stack is pending_test past its deadline and
// grace. check is the stack's latest check and may be nil; legacy or passed
// checks never lock.
func (m *StackManager) IsLocked(stack *domain.Stack, check *domain.ComprehensionCheck, now time.Time) bool {
	if stack == nil || stack.Status != domain.StackStatusPendingTest || stack.TestDeadline.IsZero() {
		return false
	}
	if check != nil && (check.IsLegacy || check.Outcome == domain.CheckOutcomePassed) {
		return false
	}
	return now.After(stack.TestDeadline.Add(m.deadlines.policy.Grace))
}

// OnCheckPassed completes stack and releases it from the user's frozen
// stacks, marking it as having contributed to the streak. Neither input is
// modified.
func (m *StackManager) OnCheckPassed(
	stack *domain.Stack,
	state *domain.UserStreakState,
	now time.Time,
) (*domain.Stack, *domain.UserStreakState, error) {
	if stack == nil || state == nil {
		return nil, nil, domain.NewValidationError("stack", "stack and state are required")
	}
	if stack.Status != domain.StackStatusPendingTest {
		return nil, nil, domain.NewStateError("stack", "complete", string(stack.Status))
	}
	if stack.UserID != state.UserID {
		return nil, nil, domain.NewValidationError("user_id", "stack belongs to a different user")
	}

	now = now.UTC()
	nextStack := stack.Clone()
	nextStack.Status = domain.StackStatusCompleted
	nextStack.CompletedAt = now
	nextStack.UpdatedAt = now
	nextStack.ContributedToStreak = true

	nextState := state.Clone()
	if nextState.ReleaseStack(stack.ID) {
		nextState.UpdatedAt = now
	}
	return nextStack, nextState, nil
}
