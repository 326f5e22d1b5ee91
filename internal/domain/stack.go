package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StackStatus is the lifecycle state of a stack. "Locked" is not a status:
// it is derived from a pending_test stack whose deadline and grace elapsed.
type StackStatus string

// Stack lifecycle states.
const (
	StackStatusInProgress  StackStatus = "in_progress"
	StackStatusPendingTest StackStatus = "pending_test"
	StackStatusCompleted   StackStatus = "completed"
)

// IsValid reports whether s is a known status.
func (s StackStatus) IsValid() bool {
	switch s {
	case StackStatusInProgress, StackStatusPendingTest, StackStatusCompleted:
		return true
	default:
		return false
	}
}

// Stack is a named collection of items that, once fully mastered, must pass
// a comprehension check before it is completed.
type Stack struct {
	ID                  uuid.UUID   `json:"id"`
	UserID              uuid.UUID   `json:"user_id"`
	Name                string      `json:"name"`
	Status              StackStatus `json:"status"`
	TotalCards          int         `json:"total_cards"`
	CardsMastered       int         `json:"cards_mastered"`
	MasteryReachedAt    time.Time   `json:"mastery_reached_at"`
	TestDeadline        time.Time   `json:"test_deadline"`
	ContributedToStreak bool        `json:"contributed_to_streak"`
	CompletedAt         time.Time   `json:"completed_at"`
	Version             int64       `json:"version"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// NewStack creates an in-progress stack holding totalCards items.
func NewStack(userID uuid.UUID, name string, totalCards int, now time.Time) (*Stack, error) {
	now = now.UTC()
	stack := &Stack{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       strings.TrimSpace(name),
		Status:     StackStatusInProgress,
		TotalCards: totalCards,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := stack.Validate(); err != nil {
		return nil, err
	}
	return stack, nil
}

// Validate rejects illegal combinations of status and lifecycle fields.
func (s *Stack) Validate() error {
	if s.ID == uuid.Nil {
		return NewValidationError("stack_id", "cannot be empty")
	}
	if s.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty")
	}
	if s.Name == "" {
		return NewValidationError("name", "cannot be empty")
	}
	if s.TotalCards < 1 {
		return NewValidationError("total_cards", "must be >= 1")
	}
	if s.CardsMastered < 0 || s.CardsMastered > s.TotalCards {
		return NewValidationError("cards_mastered", "must be between 0 and total_cards")
	}

	switch s.Status {
	case StackStatusInProgress:
		if !s.TestDeadline.IsZero() || !s.CompletedAt.IsZero() {
			return NewValidationError("status", "in_progress stack cannot carry a deadline or completion")
		}
	case StackStatusPendingTest:
		if s.CardsMastered != s.TotalCards {
			return NewValidationError("status", "pending_test requires every item mastered")
		}
		if s.MasteryReachedAt.IsZero() || s.TestDeadline.IsZero() {
			return NewValidationError("status", "pending_test requires mastery_reached_at and test_deadline")
		}
		if !s.CompletedAt.IsZero() {
			return NewValidationError("status", "pending_test stack cannot be completed")
		}
	case StackStatusCompleted:
		if s.CompletedAt.IsZero() {
			return NewValidationError("status", "completed stack requires completed_at")
		}
	default:
		return NewValidationError("status", "unknown stack status")
	}
	return nil
}

// Clone returns a copy of the stack.
func (s *Stack) Clone() *Stack {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
