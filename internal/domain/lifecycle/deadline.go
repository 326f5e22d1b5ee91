// Package lifecycle manages the stack lifecycle and the comprehension
// checks that gate stack completion.
package lifecycle

import (
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/google/uuid"
)

// Defaults for DeadlinePolicy.
const (
	DefaultTestWindow     = 72 * time.Hour
	DefaultCheckGrace     = 24 * time.Hour
	DefaultMaxOutstanding = 3
)

// DeadlinePolicy holds the comprehension-check tunables.
type DeadlinePolicy struct {
	// TestWindow is the time a user has to pass a check once it is opened.
	TestWindow time.Duration
	// Grace is how long past the deadline a lapse is still forgiven.
	Grace time.Duration
	// MaxOutstanding caps the number of unresolved checks per user.
	MaxOutstanding int
}

// DefaultDeadlinePolicy returns the default check policy.
func DefaultDeadlinePolicy() DeadlinePolicy {
	return DeadlinePolicy{
		TestWindow:     DefaultTestWindow,
		Grace:          DefaultCheckGrace,
		MaxOutstanding: DefaultMaxOutstanding,
	}
}

// DeadlineManager creates and resolves comprehension checks and decides
// when a missed deadline freezes the streak.
type DeadlineManager struct {
	policy DeadlinePolicy
}

// NewDeadlineManager creates a DeadlineManager. Non-positive policy values
// fall back to defaults.
func NewDeadlineManager(policy DeadlinePolicy) *DeadlineManager {
	if policy.TestWindow <= 0 {
		policy.TestWindow = DefaultTestWindow
	}
	if policy.Grace < 0 {
		policy.Grace = DefaultCheckGrace
	}
	if policy.MaxOutstanding <= 0 {
		policy.MaxOutstanding = DefaultMaxOutstanding
	}
	return &DeadlineManager{policy: policy}
}

// Policy returns the active policy.
func (m *DeadlineManager) Policy() DeadlinePolicy {
	return m.policy
}

// CountUnresolved returns how many of checks still count against the
// outstanding-check limit.
func CountUnresolved(checks []*domain.ComprehensionCheck) int {
	n := 0
	for _, c := range checks {
		if c != nil && c.IsUnresolved() {
			n++
		}
	}
	return n
}

// CreateCheck opens a check for stack. outstanding must hold the user's
// unresolved checks; when they already reach the cap a PolicyLimitError is
// returned and nothing is created.
func (m *DeadlineManager) CreateCheck(
	userID uuid.UUID,
	stack *domain.Stack,
	outstanding []*domain.ComprehensionCheck,
	now time.Time,
) (*domain.ComprehensionCheck, error) {
	if stack == nil {
		return nil, domain.NewValidationError("stack", "cannot be nil")
	}
	if stack.UserID != userID {
		return nil, domain.NewValidationError("user_id", "stack belongs to a different user")
	}

	if n := CountUnresolved(outstanding); n >= m.policy.MaxOutstanding {
		return nil, domain.NewPolicyLimitError("max outstanding comprehension checks", m.policy.MaxOutstanding, n)
	}

	now = now.UTC()
	check := &domain.ComprehensionCheck{
		ID:        uuid.New(),
		UserID:    userID,
		StackID:   stack.ID,
		Deadline:  now.Add(m.policy.TestWindow),
		IsLegacy:  false,
		Outcome:   domain.CheckOutcomePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := check.Validate(); err != nil {
		return nil, err
	}
	return check, nil
}

// GraceEnds returns the instant after which a lapse has consequences.
func (m *DeadlineManager) GraceEnds(check *domain.ComprehensionCheck) time.Time {
	return check.Deadline.Add(m.policy.Grace)
}

// CanUnfreeze reports whether check does not (or no longer) justify a
// freeze: it passed, or now is still within the grace period.
func (m *DeadlineManager) CanUnfreeze(check *domain.ComprehensionCheck, now time.Time) bool {
	if check == nil {
		return false
	}
	if check.Outcome == domain.CheckOutcomePassed {
		return true
	}
	return !now.After(m.GraceEnds(check))
}

// MissResult is the result of OnDeadlineMissed.
type MissResult struct {
	Check *domain.ComprehensionCheck
	State *domain.UserStreakState
	// Expired is set when the check transitioned to expired.
	Expired bool
	// Frozen is set when the stack was added to the frozen set.
	Frozen bool
}

// OnDeadlineMissed applies the consequence of a missed check. Within the
// grace period it is a no-op. Past it the check expires and, unless it is a
// legacy check, stackID is added to the user's frozen stacks. It is
// idempotent. Neither input is modified.
func (m *DeadlineManager) OnDeadlineMissed(
	check *domain.ComprehensionCheck,
	state *domain.UserStreakState,
	stackID uuid.UUID,
	now time.Time,
) (MissResult, error) {
	if check == nil || state == nil {
		return MissResult{}, domain.NewValidationError("check", "check and state are required")
	}
	if check.StackID != stackID {
		return MissResult{}, domain.NewValidationError("stack_id", "check belongs to a different stack")
	}
	if check.UserID != state.UserID {
		return MissResult{}, domain.NewValidationError("user_id", "check belongs to a different user")
	}

	result := MissResult{Check: check.Clone(), State: state.Clone()}
	if m.CanUnfreeze(check, now) {
		return result, nil
	}

	now = now.UTC()
	if result.Check.Outcome == domain.CheckOutcomePending {
		result.Check.Outcome = domain.CheckOutcomeExpired
		result.Check.ResolvedAt = now
		result.Check.UpdatedAt = now
		result.Expired = true
	}

	if result.Check.IsLegacy {
		return result, nil
	}
	if result.State.FreezeStack(stackID) {
		result.State.UpdatedAt = now
		result.Frozen = true
	}
	return result, nil
}

// MarkPassed resolves check as passed. Expired checks may still be passed
// late, which is what lifts a freeze. Passing twice is a StateError.
func (m *DeadlineManager) MarkPassed(check *domain.ComprehensionCheck, now time.Time) (*domain.ComprehensionCheck, error) {
	if check == nil {
		return nil, domain.NewValidationError("check", "cannot be nil")
	}
	if check.Outcome == domain.CheckOutcomePassed {
		return nil, domain.NewStateError("comprehension check", "pass", string(check.Outcome))
	}

	now = now.UTC()
	next := check.Clone()
	next.Outcome = domain.CheckOutcomePassed
	next.ResolvedAt = now
	next.UpdatedAt = now
	return next, nil
}
