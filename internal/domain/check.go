package domain

import (
	"time"

	"github.com/google/uuid"
)

// CheckOutcome is the resolution state of a comprehension check.
type CheckOutcome string

// Comprehension check outcomes.
const (
	CheckOutcomePending CheckOutcome = "pending"
	CheckOutcomePassed  CheckOutcome = "passed"
	CheckOutcomeExpired CheckOutcome = "expired"
)

// IsValid reports whether o is a known outcome.
func (o CheckOutcome) IsValid() bool {
	switch o {
	case CheckOutcomePending, CheckOutcomePassed, CheckOutcomeExpired:
		return true
	default:
		return false
	}
}

// ComprehensionCheck is one test attempt for a fully mastered stack.
type ComprehensionCheck struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	StackID  uuid.UUID `json:"stack_id"`
	Deadline time.Time `json:"deadline"`
	// IsLegacy grandfathers checks created before deadlines had consequences.
	// Legacy checks may expire without locking the stack or freezing the streak.
	IsLegacy   bool         `json:"is_legacy"`
	Outcome    CheckOutcome `json:"outcome"`
	ResolvedAt time.Time    `json:"resolved_at"`
	Version    int64        `json:"version"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Validate rejects unknown outcomes and passed/expired checks without a
// resolution time.
func (c *ComprehensionCheck) Validate() error {
	if c.ID == uuid.Nil {
		return NewValidationError("check_id", "cannot be empty")
	}
	if c.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty")
	}
	if c.StackID == uuid.Nil {
		return NewValidationError("stack_id", "cannot be empty")
	}
	if c.Deadline.IsZero() {
		return NewValidationError("deadline", "cannot be empty")
	}
	if !c.Outcome.IsValid() {
		return NewValidationError("outcome", "unknown check outcome")
	}
	if c.Outcome == CheckOutcomePending && !c.ResolvedAt.IsZero() {
		return NewValidationError("resolved_at", "pending check cannot be resolved")
	}
	if c.Outcome != CheckOutcomePending && c.ResolvedAt.IsZero() {
		return NewValidationError("resolved_at", "resolved check requires resolved_at")
	}
	return nil
}

// IsUnresolved reports whether the check still counts against the
// outstanding-check limit. Expired legacy checks carry no consequence and
// therefore do not count.
func (c *ComprehensionCheck) IsUnresolved() bool {
	switch c.Outcome {
	case CheckOutcomePending:
		return true
	case CheckOutcomeExpired:
		return !c.IsLegacy
	default:
		return false
	}
}

// Clone returns a copy of the check.
func (c *ComprehensionCheck) Clone() *ComprehensionCheck {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
