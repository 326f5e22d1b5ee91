package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Initial scheduling values for a never-reviewed item.
const (
	InitialEaseFactor   = 2.5
	InitialIntervalDays = 1
	MinEaseFactor       = 1.3
)

// ItemMasteryRecord tracks spaced-repetition scheduling and mastery for a
// single learning item. It is created with its item and mutated on every
// rating.
type ItemMasteryRecord struct {
	ItemID         uuid.UUID `json:"item_id"`
	UserID         uuid.UUID `json:"user_id"`
	StackID        uuid.UUID `json:"stack_id"` // uuid.Nil when the item belongs to no stack
	MasteryLevel   int       `json:"mastery_level"`
	EaseFactor     float64   `json:"ease_factor"`
	IntervalDays   int       `json:"interval_days"`
	NextReviewDate time.Time `json:"next_review_date"`
	ReviewCount    int       `json:"review_count"`
	LastReviewedAt time.Time `json:"last_reviewed_at"`
	// ContributedToStreakDate is the local day this item last counted towards
	// cards_mastered_today. Zero means never.
	ContributedToStreakDate civil.Date `json:"contributed_to_streak_date"`
	// MasteredAt is when the item first crossed the mastery threshold.
	MasteredAt time.Time `json:"mastered_at"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewItemMasteryRecord creates a record for a new item, due immediately.
func NewItemMasteryRecord(itemID, userID, stackID uuid.UUID, now time.Time) (*ItemMasteryRecord, error) {
	now = now.UTC()
	rec := &ItemMasteryRecord{
		ItemID:         itemID,
		UserID:         userID,
		StackID:        stackID,
		EaseFactor:     InitialEaseFactor,
		IntervalDays:   InitialIntervalDays,
		NextReviewDate: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate checks the record's bounds.
func (r *ItemMasteryRecord) Validate() error {
	if r.ItemID == uuid.Nil {
		return NewValidationError("item_id", "cannot be empty")
	}
	if r.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty")
	}
	if r.MasteryLevel < 0 {
		return NewValidationError("mastery_level", "must be >= 0")
	}
	if r.EaseFactor < MinEaseFactor {
		return NewValidationError("ease_factor", "must be >= 1.3")
	}
	if r.IntervalDays < 1 {
		return NewValidationError("interval_days", "must be >= 1")
	}
	if r.ReviewCount < 0 {
		return NewValidationError("review_count", "must be >= 0")
	}
	return nil
}

// Clone returns a copy of the record.
func (r *ItemMasteryRecord) Clone() *ItemMasteryRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// IsMastered reports whether the item has ever crossed the mastery threshold.
func (r *ItemMasteryRecord) IsMastered() bool {
	return !r.MasteredAt.IsZero()
}
