package domain

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"
)

// WeeklyCardEntry is an archived weekly total.
type WeeklyCardEntry struct {
	WeekID     string    `json:"week_id"` // ISO week, e.g. "2026-W42"
	Count      int       `json:"count"`
	ArchivedAt time.Time `json:"archived_at"`
}

// WeeklyStats holds the running count for the current ISO week plus the
// rotating history of archived weeks.
type WeeklyStats struct {
	CurrentWeekStart civil.Date        `json:"current_week_start"` // Monday, local date
	CurrentWeekCards int               `json:"current_week_cards"`
	History          []WeeklyCardEntry `json:"weekly_cards_history"`
}

// Validate checks that counters are non-negative.
func (w WeeklyStats) Validate() error {
	if w.CurrentWeekCards < 0 {
		return NewValidationError("current_week_cards", "must be >= 0")
	}
	for _, e := range w.History {
		if e.Count < 0 {
			return NewValidationError("weekly_cards_history", "counts must be >= 0")
		}
	}
	return nil
}

// Clone returns a copy with its own history slice.
func (w WeeklyStats) Clone() WeeklyStats {
	w.History = slices.Clone(w.History)
	return w
}
