package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/api/middleware"
	"github.com/AtlasTheChosen/lockn-sub001/internal/config"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/service/progress"
	"github.com/AtlasTheChosen/lockn-sub001/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "debug", ShutdownTimeoutSeconds: 1},
		Database: config.DatabaseConfig{URL: "postgres://localhost:5432/lockn", MaxOpenConns: 2},
		Streak:   config.StreakConfig{DailyRequirement: 5, GraceHours: 2},
		Checks:   config.ChecksConfig{TestWindowHours: 72, GraceHours: 24, MaxOutstanding: 3},
		Weekly:   config.WeeklyConfig{Cap: 500},
		Retry:    config.RetryConfig{MaxRetries: 3, BaseDelayMS: 1},
	}
}

type testServer struct {
	t      *testing.T
	clk    *testutils.Clock
	router http.Handler
}

func newTestServer(t *testing.T, start time.Time) *testServer {
	t.Helper()
	clk := testutils.NewClock(start)
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	app := newApplicationWithTransactor(testConfig(), log, testutils.NewMemoryStore(), clk.Now)
	return &testServer{t: t, clk: clk, router: app.setupRouter()}
}

func (s *testServer) do(method, path string, body interface{}, out interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, path, &buf))
	if out != nil && w.Code < 300 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, time.Now())

	w := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.TraceHeader))
}

// A New York user masters a five-item stack late in the evening, earns the
// streak, misses the comprehension check and recovers with a late pass.
func TestProgressLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	// 2026-10-14 23:00 in New York (EDT).
	start := time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)
	s := newTestServer(t, start)
	userID := uuid.New()

	var streak progress.StreakStatus
	w := s.do(http.MethodPost, "/api/users",
		map[string]string{"user_id": userID.String(), "timezone": "America/New_York"}, &streak)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "America/New_York", streak.Timezone)

	items := make([]uuid.UUID, 5)
	for i := range items {
		items[i] = uuid.New()
	}
	var stack progress.StackStatus
	w = s.do(http.MethodPost, "/api/users/"+userID.String()+"/stacks",
		map[string]interface{}{"name": "French numbers", "item_ids": items}, &stack)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, domain.StackStatusInProgress, stack.Status)

	var rating progress.RatingResult
	for _, id := range items {
		w = s.do(http.MethodPost, "/api/ratings",
			map[string]interface{}{"user_id": userID, "item_id": id, "rating": 5}, &rating)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.True(t, rating.Awarded)
	assert.Equal(t, 5, rating.Streak.CardsMasteredToday)
	assert.Equal(t, 1, rating.Streak.CurrentStreak)
	// Next New York midnight (04:00 UTC on the 15th) plus two hours of grace.
	assert.True(t, rating.Streak.StreakDeadline.Equal(time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)),
		"got %s", rating.Streak.StreakDeadline)
	require.NotNil(t, rating.Check)
	require.NotNil(t, rating.Stack)
	assert.Equal(t, domain.StackStatusPendingTest, rating.Stack.Status)
	checkID := rating.Check.ID

	var weekly progress.WeeklyStatus
	w = s.do(http.MethodGet, "/api/users/"+userID.String()+"/weekly", nil, &weekly)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, weekly.CurrentWeekCards)
	assert.False(t, weekly.IsAtCap)

	// Past the 72h window and the 24h grace.
	s.clk.Advance(97 * time.Hour)

	w = s.do(http.MethodGet, "/api/stacks/"+stack.StackID.String(), nil, &stack)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, stack.Locked)

	w = s.do(http.MethodGet, "/api/users/"+userID.String()+"/streak", nil, &streak)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, streak.StreakFrozen)
	assert.Equal(t, []uuid.UUID{stack.StackID}, streak.FrozenStacks)

	var checkResult progress.CheckResult
	w = s.do(http.MethodPost, "/api/checks/"+checkID.String()+"/outcome",
		map[string]string{"outcome": "passed"}, &checkResult)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, checkResult.Unfrozen)
	assert.Equal(t, domain.StackStatusCompleted, checkResult.Stack.Status)
	assert.False(t, checkResult.Streak.StreakFrozen)
	assert.Empty(t, checkResult.Streak.FrozenStacks)

	// A second pass is a lifecycle error.
	w = s.do(http.MethodPost, "/api/checks/"+checkID.String()+"/outcome",
		map[string]string{"outcome": "passed"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRatingValidationOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC))

	w := s.do(http.MethodPost, "/api/ratings",
		map[string]interface{}{"user_id": uuid.New(), "item_id": uuid.New(), "rating": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/ratings",
		map[string]interface{}{"user_id": uuid.New(), "item_id": uuid.New(), "rating": 3}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
