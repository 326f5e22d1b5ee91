package domain

import (
	"time"

	"github.com/google/uuid"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// RatingEvent is emitted by collaborators when a user rates an item.
// Timestamp must come from the server's authoritative clock.
type RatingEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	ItemID    uuid.UUID `json:"item_id"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the event fields.
func (e RatingEvent) Validate() error {
	if e.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty")
	}
	if e.ItemID == uuid.Nil {
		return NewValidationError("item_id", "cannot be empty")
	}
	return ValidateRating(e.Rating)
}

// ValidateRating rejects ratings outside 1..5.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return NewValidationError("rating", "must be between 1 and 5")
	}
	return nil
}

// CheckOutcomeEvent reports the result of a comprehension check.
type CheckOutcomeEvent struct {
	CheckID   uuid.UUID    `json:"check_id"`
	Outcome   CheckOutcome `json:"outcome"`
	Timestamp time.Time    `json:"timestamp"`
}

// Validate checks the event fields. Only terminal outcomes can be reported.
func (e CheckOutcomeEvent) Validate() error {
	if e.CheckID == uuid.Nil {
		return NewValidationError("check_id", "cannot be empty")
	}
	if e.Outcome != CheckOutcomePassed && e.Outcome != CheckOutcomeExpired {
		return NewValidationError("outcome", "must be passed or expired")
	}
	return nil
}
