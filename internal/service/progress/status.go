package progress

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/google/uuid"
)

// StreakStatus is the user-facing view of a UserStreakState.
type StreakStatus struct {
	UserID             uuid.UUID  `json:"user_id"`
	Timezone           string     `json:"timezone"`
	CurrentStreak      int        `json:"current_streak"`
	LongestStreak      int        `json:"longest_streak"`
	CardsMasteredToday int        `json:"cards_mastered_today"`
	DailyRequirement   int        `json:"daily_requirement"`
	StreakAwardedToday bool       `json:"streak_awarded_today"`
	LastStreakDate     civil.Date `json:"last_streak_date"`
	// StreakDeadline ends the day of the last award, including grace.
	StreakDeadline time.Time `json:"streak_deadline"`
	// DisplayDeadline is StreakDeadline without grace.
	DisplayDeadline       time.Time `json:"display_deadline"`
	StreakCountdownStarts time.Time `json:"streak_countdown_starts"`
	// LosesAt ends the day after the last award, including grace. The streak
	// is reset after it unless that day is met; zero while nothing is at risk.
	LosesAt      time.Time   `json:"loses_at"`
	StreakFrozen bool        `json:"streak_frozen"`
	FrozenStacks []uuid.UUID `json:"frozen_stacks"`
}

func (s *Service) streakStatus(state *domain.UserStreakState) (StreakStatus, error) {
	losesAt, err := s.ledger.LossDeadline(state)
	if err != nil {
		return StreakStatus{}, err
	}
	frozen := state.StreakFrozenStacks
	if frozen == nil {
		frozen = []uuid.UUID{}
	}
	return StreakStatus{
		UserID:                state.UserID,
		Timezone:              state.Timezone,
		CurrentStreak:         state.CurrentStreak,
		LongestStreak:         state.LongestStreak,
		CardsMasteredToday:    state.CardsMasteredToday,
		DailyRequirement:      s.ledger.Policy().DailyRequirement,
		StreakAwardedToday:    state.StreakAwardedToday,
		LastStreakDate:        state.LastStreakDate,
		StreakDeadline:        state.StreakDeadline,
		DisplayDeadline:       state.DisplayDeadline,
		StreakCountdownStarts: state.StreakCountdownStarts,
		LosesAt:               losesAt,
		StreakFrozen:          state.StreakFrozen,
		FrozenStacks:          append([]uuid.UUID(nil), frozen...),
	}, nil
}

// StackStatus is the user-facing view of a Stack.
type StackStatus struct {
	StackID          uuid.UUID          `json:"stack_id"`
	UserID           uuid.UUID          `json:"user_id"`
	Name             string             `json:"name"`
	Status           domain.StackStatus `json:"status"`
	TotalCards       int                `json:"total_cards"`
	CardsMastered    int                `json:"cards_mastered"`
	MasteryReachedAt time.Time          `json:"mastery_reached_at"`
	TestDeadline     time.Time          `json:"test_deadline"`
	CompletedAt      time.Time          `json:"completed_at"`
	// Locked is derived: pending_test past the check deadline and grace.
	Locked bool `json:"locked"`
	// CheckID is the stack's latest comprehension check, if any.
	CheckID uuid.UUID `json:"check_id"`
}

func (s *Service) stackStatus(stack *domain.Stack, check *domain.ComprehensionCheck, now time.Time) StackStatus {
	status := StackStatus{
		StackID:          stack.ID,
		UserID:           stack.UserID,
		Name:             stack.Name,
		Status:           stack.Status,
		TotalCards:       stack.TotalCards,
		CardsMastered:    stack.CardsMastered,
		MasteryReachedAt: stack.MasteryReachedAt,
		TestDeadline:     stack.TestDeadline,
		CompletedAt:      stack.CompletedAt,
		Locked:           s.stacks.IsLocked(stack, check, now),
	}
	if check != nil {
		status.CheckID = check.ID
	}
	return status
}

// WeeklyStatus is the user-facing view of WeeklyStats.
type WeeklyStatus struct {
	UserID           uuid.UUID                `json:"user_id"`
	CurrentWeekStart civil.Date               `json:"current_week_start"`
	CurrentWeekCards int                      `json:"current_week_cards"`
	WeeklyAverage    float64                  `json:"weekly_average"`
	IsAtCap          bool                     `json:"is_at_cap"`
	Cap              int                      `json:"cap"`
	History          []domain.WeeklyCardEntry `json:"history"`
}

func (s *Service) weeklyStatus(userID uuid.UUID, stats domain.WeeklyStats) WeeklyStatus {
	history := stats.History
	if history == nil {
		history = []domain.WeeklyCardEntry{}
	}
	return WeeklyStatus{
		UserID:           userID,
		CurrentWeekStart: stats.CurrentWeekStart,
		CurrentWeekCards: stats.CurrentWeekCards,
		WeeklyAverage:    s.weekly.WeeklyAverage(stats.History),
		IsAtCap:          s.weekly.IsAtCap(stats),
		Cap:              s.weekly.Cap,
		History:          append([]domain.WeeklyCardEntry(nil), history...),
	}
}

// RatingResult reports everything a rating changed.
type RatingResult struct {
	Record *domain.ItemMasteryRecord `json:"record"`
	// MasteryEvent is set when the rating counts towards the goal.
	MasteryEvent bool `json:"mastery_event"`
	// Counted is set when the item incremented today's counter.
	Counted bool `json:"counted"`
	// Awarded is set when this rating extended the streak.
	Awarded bool `json:"awarded"`
	// WeeklyIncremented is false when the weekly cap swallowed the count.
	WeeklyIncremented bool         `json:"weekly_incremented"`
	Streak            StreakStatus `json:"streak"`
	// Stack is set when the rated item belongs to a stack whose progress
	// changed.
	Stack *StackStatus `json:"stack,omitempty"`
	// Check is the comprehension check opened by this rating, if any.
	Check *domain.ComprehensionCheck `json:"check,omitempty"`
}

// CheckResult reports the effect of a check outcome.
type CheckResult struct {
	Check  *domain.ComprehensionCheck `json:"check"`
	Stack  StackStatus                `json:"stack"`
	Streak StreakStatus               `json:"streak"`
	// Unfrozen is set when this outcome released the last frozen stack.
	Unfrozen bool `json:"unfrozen"`
	// Awarded is set when the release extended the streak for today.
	Awarded bool `json:"awarded"`
}
