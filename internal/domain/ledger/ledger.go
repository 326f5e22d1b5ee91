// Package ledger implements per-user daily mastery counting and streak
// accrual.
//
// There is no background job: day rollover and streak loss are detected
// lazily by Normalize, which every state-mutating entry point and every
// status read runs first.
package ledger

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain/clock"
)

// Defaults for Policy.
const (
	DefaultDailyRequirement = 5
	DefaultStreakGrace      = 2 * time.Hour
)

// Policy holds the streak tunables.
type Policy struct {
	// DailyRequirement is the number of distinct items that must be
	// mastered in one local day to extend the streak.
	DailyRequirement int
	// StreakGrace extends each day's deadline past local midnight.
	StreakGrace time.Duration
}

// DefaultPolicy returns the default streak policy.
func DefaultPolicy() Policy {
	return Policy{
		DailyRequirement: DefaultDailyRequirement,
		StreakGrace:      DefaultStreakGrace,
	}
}

// Ledger applies mastery events to UserStreakState snapshots. It holds no
// mutable state and is safe for concurrent use.
type Ledger struct {
	policy Policy
}

// New creates a Ledger. Non-positive policy values fall back to defaults.
func New(policy Policy) *Ledger {
	if policy.DailyRequirement <= 0 {
		policy.DailyRequirement = DefaultDailyRequirement
	}
	if policy.StreakGrace < 0 {
		policy.StreakGrace = DefaultStreakGrace
	}
	return &Ledger{policy: policy}
}

// Policy returns the active policy.
func (l *Ledger) Policy() Policy {
	return l.policy
}

// Normalized is the result of Normalize.
type Normalized struct {
	State *domain.UserStreakState
	// RolledOver is set when the daily counters were reset for a new day.
	RolledOver bool
	// Lost is set when the streak was reset because a qualifying day passed
	// without meeting the requirement.
	Lost bool
	// Today is the qualifying day at now, see QualifyingDay.
	Today civil.Date
}

// Changed reports whether normalization modified the snapshot.
func (n Normalized) Changed() bool {
	return n.RolledOver || n.Lost
}

// Normalize brings state up to date with now: daily counters are reset when
// a new qualifying day started, and an alive, unfrozen streak is reset once
// the day after its last award ended, grace included. The input is not
// modified.
func (l *Ledger) Normalize(state *domain.UserStreakState, now time.Time) (Normalized, error) {
	if state == nil {
		return Normalized{}, domain.NewValidationError("state", "cannot be nil")
	}
	today, err := l.QualifyingDay(state, now)
	if err != nil {
		return Normalized{}, err
	}

	next := state.Clone()
	result := Normalized{State: next, Today: today}

	if next.LastMasteryDate != today && (next.CardsMasteredToday != 0 || next.StreakAwardedToday) {
		next.CardsMasteredToday = 0
		next.StreakAwardedToday = false
		result.RolledOver = true
	}

	if next.CurrentStreak > 0 && !next.StreakFrozen && next.LastStreakDate.IsValid() &&
		next.LastStreakDate.Before(today.AddDays(-1)) {
		next.CurrentStreak = 0
		next.StreakDeadline = time.Time{}
		next.DisplayDeadline = time.Time{}
		next.StreakCountdownStarts = time.Time{}
		result.Lost = true
	}

	if result.Changed() {
		next.UpdatedAt = now.UTC()
	}
	return result, nil
}

// QualifyingDay returns the local date that mastery events at now count
// toward. It is the user's calendar date, except during the first
// StreakGrace of a day that follows an unmet day of an alive streak: those
// events still count toward the unmet day.
func (l *Ledger) QualifyingDay(state *domain.UserStreakState, now time.Time) (civil.Date, error) {
	today, err := clock.LocalDate(now, state.Timezone)
	if err != nil {
		return civil.Date{}, err
	}
	if state.CurrentStreak == 0 || state.StreakFrozen || !state.LastStreakDate.IsValid() {
		return today, nil
	}
	yesterday := today.AddDays(-1)
	if state.LastStreakDate != yesterday.AddDays(-1) {
		return today, nil
	}
	deadline, err := clock.ComputeDeadline(yesterday, state.Timezone, l.policy.StreakGrace)
	if err != nil {
		return civil.Date{}, err
	}
	if now.After(deadline.Hard) {
		return today, nil
	}
	return yesterday, nil
}

// Outcome is the result of OnItemMastered.
type Outcome struct {
	State  *domain.UserStreakState
	Record *domain.ItemMasteryRecord
	// Counted is set when the item incremented cards_mastered_today.
	Counted bool
	// Awarded is set when this event extended the streak.
	Awarded bool
	// Lost is set when normalization reset the streak first.
	Lost bool
	// Today is the local date the event was attributed to.
	Today civil.Date
}

// OnItemMastered records a mastery event for record. The item counts at most
// once per local day, and the streak grows at most once per local day. A
// frozen streak still counts items but is not extended. Neither input is
// modified.
func (l *Ledger) OnItemMastered(
	state *domain.UserStreakState,
	record *domain.ItemMasteryRecord,
	now time.Time,
) (Outcome, error) {
	if record == nil {
		return Outcome{}, domain.NewValidationError("record", "cannot be nil")
	}
	norm, err := l.Normalize(state, now)
	if err != nil {
		return Outcome{}, err
	}
	if record.UserID != state.UserID {
		return Outcome{}, domain.NewValidationError("user_id", "record belongs to a different user")
	}

	next := norm.State
	today := norm.Today
	out := Outcome{
		State:  next,
		Record: record.Clone(),
		Lost:   norm.Lost,
		Today:  today,
	}

	if record.ContributedToStreakDate == today {
		return out, nil
	}

	now = now.UTC()
	next.CardsMasteredToday++
	next.LastMasteryDate = today
	next.UpdatedAt = now
	out.Record.ContributedToStreakDate = today
	out.Record.UpdatedAt = now
	out.Counted = true

	if next.CardsMasteredToday < l.policy.DailyRequirement || next.StreakAwardedToday || next.StreakFrozen {
		return out, nil
	}
	// Guards against a second award on the same date after a timezone change
	// moved the user back across midnight.
	if next.LastStreakDate.IsValid() && !next.LastStreakDate.Before(today) {
		return out, nil
	}

	if err := l.award(next, today); err != nil {
		return Outcome{}, err
	}
	out.Awarded = true
	return out, nil
}

func (l *Ledger) award(state *domain.UserStreakState, today civil.Date) error {
	loc, err := clock.LoadLocation(state.Timezone)
	if err != nil {
		return err
	}
	deadline, err := clock.ComputeDeadline(today, state.Timezone, l.policy.StreakGrace)
	if err != nil {
		return err
	}

	state.CurrentStreak++
	if state.CurrentStreak > state.LongestStreak {
		state.LongestStreak = state.CurrentStreak
	}
	state.StreakAwardedToday = true
	state.LastStreakDate = today
	state.StreakCountdownStarts = clock.StartOfDay(today, loc)
	state.StreakDeadline = deadline.Hard
	state.DisplayDeadline = deadline.Display
	return nil
}

// Resumed is the result of ResumeAfterUnfreeze.
type Resumed struct {
	State *domain.UserStreakState
	// Awarded is set when the day's requirement, met while frozen, extended
	// the streak on release.
	Awarded bool
}

// ResumeAfterUnfreeze resumes a streak that was suspended while stacks were
// frozen. The last award is rebased to yesterday so the user keeps today to
// qualify, and a requirement already met today is awarded now. It is a
// no-op while any stack is still frozen. The input is not modified.
func (l *Ledger) ResumeAfterUnfreeze(state *domain.UserStreakState, now time.Time) (Resumed, error) {
	if state == nil {
		return Resumed{}, domain.NewValidationError("state", "cannot be nil")
	}
	next := state.Clone()
	out := Resumed{State: next}
	if next.StreakFrozen {
		return out, nil
	}

	today, err := clock.LocalDate(now, next.Timezone)
	if err != nil {
		return Resumed{}, err
	}
	yesterday := today.AddDays(-1)
	if next.CurrentStreak > 0 && next.LastStreakDate.IsValid() && next.LastStreakDate.Before(yesterday) {
		deadline, err := clock.ComputeDeadline(yesterday, next.Timezone, l.policy.StreakGrace)
		if err != nil {
			return Resumed{}, err
		}
		next.LastStreakDate = yesterday
		next.StreakDeadline = deadline.Hard
		next.DisplayDeadline = deadline.Display
		next.UpdatedAt = now.UTC()
	}

	if next.LastMasteryDate == today && next.CardsMasteredToday >= l.policy.DailyRequirement &&
		!next.StreakAwardedToday && (!next.LastStreakDate.IsValid() || next.LastStreakDate.Before(today)) {
		if err := l.award(next, today); err != nil {
			return Resumed{}, err
		}
		next.UpdatedAt = now.UTC()
		out.Awarded = true
	}
	return out, nil
}

// LossDeadline returns the instant at which an alive streak is lost if the
// requirement is not met, or the zero time when the streak is not at risk.
func (l *Ledger) LossDeadline(state *domain.UserStreakState) (time.Time, error) {
	if state == nil || state.CurrentStreak == 0 || state.StreakFrozen || !state.LastStreakDate.IsValid() {
		return time.Time{}, nil
	}
	deadline, err := clock.ComputeDeadline(state.LastStreakDate.AddDays(1), state.Timezone, l.policy.StreakGrace)
	if err != nil {
		return time.Time{}, err
	}
	return deadline.Hard, nil
}
