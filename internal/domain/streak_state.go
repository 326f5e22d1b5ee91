package domain

import (
	"bytes"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// DefaultTimezone is used when a user has not chosen one.
const DefaultTimezone = "UTC"

// UserStreakState is the per-user daily counter, streak and freeze
// aggregate. It is created at account creation and never deleted.
//
// Local dates are stored as the calendar date the user saw when the value
// was written; instants are always UTC.
type UserStreakState struct {
	UserID             uuid.UUID  `json:"user_id"`
	Timezone           string     `json:"timezone"`
	CardsMasteredToday int        `json:"cards_mastered_today"`
	LastMasteryDate    civil.Date `json:"last_mastery_date"`
	// LastStreakDate is the local date on which the streak was last awarded.
	LastStreakDate        civil.Date  `json:"last_streak_date"`
	CurrentStreak         int         `json:"current_streak"`
	LongestStreak         int         `json:"longest_streak"`
	StreakDeadline        time.Time   `json:"streak_deadline"`
	DisplayDeadline       time.Time   `json:"display_deadline"`
	StreakCountdownStarts time.Time   `json:"streak_countdown_starts"`
	StreakAwardedToday    bool        `json:"streak_awarded_today"`
	StreakFrozen          bool        `json:"streak_frozen"`
	StreakFrozenStacks    []uuid.UUID `json:"streak_frozen_stacks"`
	Weekly                WeeklyStats `json:"weekly"`
	Version               int64       `json:"version"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// NewUserStreakState creates the initial state for a user. An empty
// timezone defaults to UTC; the caller is expected to have validated a
// non-empty one through the clock package.
func NewUserStreakState(userID uuid.UUID, timezone string, now time.Time) (*UserStreakState, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	now = now.UTC()
	state := &UserStreakState{
		UserID:    userID,
		Timezone:  timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return state, nil
}

// Validate checks the aggregate invariants.
func (s *UserStreakState) Validate() error {
	if s.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty")
	}
	if s.Timezone == "" {
		return NewValidationError("timezone", "cannot be empty")
	}
	if s.CardsMasteredToday < 0 {
		return NewValidationError("cards_mastered_today", "must be >= 0")
	}
	if s.CurrentStreak < 0 || s.LongestStreak < 0 {
		return NewValidationError("current_streak", "streak counters must be >= 0")
	}
	if s.LongestStreak < s.CurrentStreak {
		return NewValidationError("longest_streak", "must be >= current_streak")
	}
	if s.StreakFrozen != (len(s.StreakFrozenStacks) > 0) {
		return NewValidationError("streak_frozen", "must be set iff frozen stacks exist")
	}
	return s.Weekly.Validate()
}

// Clone returns a deep copy so pure functions can return a new snapshot
// without aliasing the caller's slices.
func (s *UserStreakState) Clone() *UserStreakState {
	if s == nil {
		return nil
	}
	c := *s
	c.StreakFrozenStacks = slices.Clone(s.StreakFrozenStacks)
	c.Weekly = s.Weekly.Clone()
	return &c
}

// IsStackFrozen reports whether stackID currently freezes the streak.
func (s *UserStreakState) IsStackFrozen(stackID uuid.UUID) bool {
	_, found := slices.BinarySearchFunc(s.StreakFrozenStacks, stackID, compareUUID)
	return found
}

// FreezeStack adds stackID to the frozen set and recomputes StreakFrozen.
// It reports whether the set changed.
func (s *UserStreakState) FreezeStack(stackID uuid.UUID) bool {
	i, found := slices.BinarySearchFunc(s.StreakFrozenStacks, stackID, compareUUID)
	if found {
		return false
	}
	s.StreakFrozenStacks = slices.Insert(s.StreakFrozenStacks, i, stackID)
	s.StreakFrozen = true
	return true
}

// ReleaseStack removes stackID from the frozen set and recomputes
// StreakFrozen. It reports whether the set changed.
func (s *UserStreakState) ReleaseStack(stackID uuid.UUID) bool {
	i, found := slices.BinarySearchFunc(s.StreakFrozenStacks, stackID, compareUUID)
	if !found {
		return false
	}
	s.StreakFrozenStacks = slices.Delete(s.StreakFrozenStacks, i, i+1)
	if len(s.StreakFrozenStacks) == 0 {
		s.StreakFrozenStacks = nil
	}
	s.StreakFrozen = len(s.StreakFrozenStacks) > 0
	return true
}

// NormalizeFrozenStacks sorts and deduplicates the frozen set, e.g. after
// loading it from storage, and re-derives StreakFrozen.
func (s *UserStreakState) NormalizeFrozenStacks() {
	slices.SortFunc(s.StreakFrozenStacks, compareUUID)
	s.StreakFrozenStacks = slices.Compact(s.StreakFrozenStacks)
	if len(s.StreakFrozenStacks) == 0 {
		s.StreakFrozenStacks = nil
	}
	s.StreakFrozen = len(s.StreakFrozenStacks) > 0
}

func compareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
