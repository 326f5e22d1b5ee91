package mocks

import (
	"context"
	"sync"

	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/service/progress"
	"github.com/google/uuid"
)

// MockProgressService implements api.ProgressService for testing. Each
// method delegates to its Fn field when set and otherwise returns the zero
// result together with Err.
type MockProgressService struct {
	RegisterUserFn       func(ctx context.Context, userID uuid.UUID, timezone string) (progress.StreakStatus, error)
	SetTimezoneFn        func(ctx context.Context, userID uuid.UUID, timezone string) (progress.StreakStatus, error)
	CreateStackFn        func(ctx context.Context, userID uuid.UUID, name string, itemIDs []uuid.UUID) (progress.StackStatus, error)
	SubmitRatingFn       func(ctx context.Context, event domain.RatingEvent) (progress.RatingResult, error)
	RecordCheckOutcomeFn func(ctx context.Context, event domain.CheckOutcomeEvent) (progress.CheckResult, error)
	GetStreakStatusFn    func(ctx context.Context, userID uuid.UUID) (progress.StreakStatus, error)
	GetStackStatusFn     func(ctx context.Context, stackID uuid.UUID) (progress.StackStatus, error)
	GetWeeklyStatsFn     func(ctx context.Context, userID uuid.UUID) (progress.WeeklyStatus, error)

	// Err is returned by methods without an Fn.
	Err error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockProgressService) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how often method was invoked.
func (m *MockProgressService) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// RegisterUser implements api.ProgressService.
func (m *MockProgressService) RegisterUser(ctx context.Context, userID uuid.UUID, timezone string) (progress.StreakStatus, error) {
	m.record("RegisterUser")
	if m.RegisterUserFn != nil {
		return m.RegisterUserFn(ctx, userID, timezone)
	}
	return progress.StreakStatus{}, m.Err
}

// SetTimezone implements api.ProgressService.
func (m *MockProgressService) SetTimezone(ctx context.Context, userID uuid.UUID, timezone string) (progress.StreakStatus, error) {
	m.record("SetTimezone")
	if m.SetTimezoneFn != nil {
		return m.SetTimezoneFn(ctx, userID, timezone)
	}
	return progress.StreakStatus{}, m.Err
}

// CreateStack implements api.ProgressService.
func (m *MockProgressService) CreateStack(
	ctx context.Context,
	userID uuid.UUID,
	name string,
	itemIDs []uuid.UUID,
) (progress.StackStatus, error) {
	m.record("CreateStack")
	if m.CreateStackFn != nil {
		return m.CreateStackFn(ctx, userID, name, itemIDs)
	}
	return progress.StackStatus{}, m.Err
}

// SubmitRating implements api.ProgressService.
func (m *MockProgressService) SubmitRating(ctx context.Context, event domain.RatingEvent) (progress.RatingResult, error) {
	m.record("SubmitRating")
	if m.SubmitRatingFn != nil {
		return m.SubmitRatingFn(ctx, event)
	}
	return progress.RatingResult{}, m.Err
}

// RecordCheckOutcome implements api.ProgressService.
func (m *MockProgressService) RecordCheckOutcome(
	ctx context.Context,
	event domain.CheckOutcomeEvent,
) (progress.CheckResult, error) {
	m.record("RecordCheckOutcome")
	if m.RecordCheckOutcomeFn != nil {
		return m.RecordCheckOutcomeFn(ctx, event)
	}
	return progress.CheckResult{}, m.Err
}

// GetStreakStatus implements api.ProgressService.
func (m *MockProgressService) GetStreakStatus(ctx context.Context, userID uuid.UUID) (progress.StreakStatus, error) {
	m.record("GetStreakStatus")
	if m.GetStreakStatusFn != nil {
		return m.GetStreakStatusFn(ctx, userID)
	}
	return progress.StreakStatus{}, m.Err
}

// GetStackStatus implements api.ProgressService.
func (m *MockProgressService) GetStackStatus(ctx context.Context, stackID uuid.UUID) (progress.StackStatus, error) {
	m.record("GetStackStatus")
	if m.GetStackStatusFn != nil {
		return m.GetStackStatusFn(ctx, stackID)
	}
	return progress.StackStatus{}, m.Err
}

// GetWeeklyStats implements api.ProgressService.
func (m *MockProgressService) GetWeeklyStats(ctx context.Context, userID uuid.UUID) (progress.WeeklyStatus, error) {
	m.record("GetWeeklyStats")
	if m.GetWeeklyStatsFn != nil {
		return m.GetWeeklyStatsFn(ctx, userID)
	}
	return progress.WeeklyStatus{}, m.Err
}
