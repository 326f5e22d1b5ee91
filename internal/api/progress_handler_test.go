package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AtlasTheChosen/lockn-sub001/internal/api/shared"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/mocks"
	"github.com/AtlasTheChosen/lockn-sub001/internal/service/progress"
	"github.com/AtlasTheChosen/lockn-sub001/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc ProgressService) http.Handler {
	h := NewProgressHandler(svc, nil)
	r := chi.NewRouter()
	r.Post("/api/users", h.RegisterUser)
	r.Put("/api/users/{id}/timezone", h.SetTimezone)
	r.Post("/api/users/{id}/stacks", h.CreateStack)
	r.Get("/api/users/{id}/streak", h.GetStreakStatus)
	r.Get("/api/users/{id}/weekly", h.GetWeeklyStats)
	r.Post("/api/ratings", h.SubmitRating)
	r.Post("/api/checks/{id}/outcome", h.RecordCheckOutcome)
	r.Get("/api/stacks/{id}", h.GetStackStatus)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(shared.WithTraceID(req.Context(), "trace-123"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestNewProgressHandler_NilService(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewProgressHandler(nil, nil) })
}

func TestRegisterUser(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	tests := []struct {
		name       string
		body       interface{}
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			body:       map[string]string{"user_id": userID.String(), "timezone": "America/New_York"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "default timezone",
			body:       map[string]string{"user_id": userID.String()},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing user id",
			body:       map[string]string{"timezone": "UTC"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid user_id: required field",
		},
		{
			name:       "unknown timezone",
			body:       map[string]string{"user_id": userID.String(), "timezone": "Mars/Olympus"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid timezone: unknown timezone",
		},
		{
			name:       "unknown field",
			body:       `{"user_id":"` + userID.String() + `","email":"a@b.c"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "empty body",
			body:       nil,
			wantStatus: http.StatusBadRequest,
			wantError:  "Request body is required",
		},
		{
			name:       "already registered",
			body:       map[string]string{"user_id": userID.String()},
			serviceErr: store.ErrUserExists,
			wantStatus: http.StatusConflict,
			wantError:  "User already exists",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := &mocks.MockProgressService{
				RegisterUserFn: func(_ context.Context, id uuid.UUID, tz string) (progress.StreakStatus, error) {
					if tc.serviceErr != nil {
						return progress.StreakStatus{}, tc.serviceErr
					}
					if tz == "" {
						tz = domain.DefaultTimezone
					}
					return progress.StreakStatus{UserID: id, Timezone: tz}, nil
				},
			}

			w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/users", tc.body)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantError != "" {
				resp := decodeError(t, w)
				assert.Equal(t, tc.wantError, resp.Error)
				assert.Equal(t, "trace-123", resp.TraceID)
				return
			}
			var status progress.StreakStatus
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
			assert.Equal(t, userID, status.UserID)
			assert.NotEmpty(t, status.Timezone)
		})
	}
}

func TestSubmitRating(t *testing.T) {
	t.Parallel()
	userID, itemID := uuid.New(), uuid.New()

	tests := []struct {
		name       string
		body       interface{}
		serviceErr error
		wantStatus int
		wantError  string
		wantCalls  int
	}{
		{
			name:       "success",
			body:       map[string]interface{}{"user_id": userID, "item_id": itemID, "rating": 4},
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name: "client timestamp ignored",
			body: map[string]interface{}{
				"user_id": userID, "item_id": itemID, "rating": 5,
				"timestamp": "1999-01-01T00:00:00Z",
			},
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "rating too large",
			body:       map[string]interface{}{"user_id": userID, "item_id": itemID, "rating": 6},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid rating: too large",
		},
		{
			name:       "rating missing",
			body:       map[string]interface{}{"user_id": userID, "item_id": itemID},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid rating: required field",
		},
		{
			name:       "item not found",
			body:       map[string]interface{}{"user_id": userID, "item_id": itemID, "rating": 4},
			serviceErr: fmt.Errorf("failed to lock item record: %w", store.ErrItemNotFound),
			wantStatus: http.StatusNotFound,
			wantError:  "Item not found",
			wantCalls:  1,
		},
		{
			name:       "outstanding check limit",
			body:       map[string]interface{}{"user_id": userID, "item_id": itemID, "rating": 5},
			serviceErr: domain.NewPolicyLimitError("max outstanding checks", 3, 3),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "Too many outstanding comprehension checks: resolve an existing check first",
			wantCalls:  1,
		},
		{
			name:       "conflict exhausted",
			body:       map[string]interface{}{"user_id": userID, "item_id": itemID, "rating": 5},
			serviceErr: domain.NewConflictError("item mastery record", 4, store.ErrVersionConflict),
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "The request conflicted with a concurrent update, please retry",
			wantCalls:  1,
		},
		{
			name:       "internal error is not leaked",
			body:       map[string]interface{}{"user_id": userID, "item_id": itemID, "rating": 5},
			serviceErr: fmt.Errorf("dial tcp db.internal:5432: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to submit rating",
			wantCalls:  1,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got domain.RatingEvent
			svc := &mocks.MockProgressService{
				SubmitRatingFn: func(_ context.Context, event domain.RatingEvent) (progress.RatingResult, error) {
					got = event
					if tc.serviceErr != nil {
						return progress.RatingResult{}, tc.serviceErr
					}
					return progress.RatingResult{MasteryEvent: event.Rating >= 4, Counted: true}, nil
				},
			}

			w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/ratings", tc.body)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantCalls, svc.Calls("SubmitRating"))
			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, decodeError(t, w).Error)
				return
			}
			assert.Equal(t, userID, got.UserID)
			assert.Equal(t, itemID, got.ItemID)
			assert.True(t, got.Timestamp.IsZero(), "client timestamps never reach the service")

			var result progress.RatingResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.True(t, result.MasteryEvent)
		})
	}
}

func TestRecordCheckOutcome(t *testing.T) {
	t.Parallel()
	checkID := uuid.New()

	tests := []struct {
		name       string
		path       string
		body       interface{}
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{
			name:       "passed",
			path:       "/api/checks/" + checkID.String() + "/outcome",
			body:       map[string]string{"outcome": "passed"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid outcome",
			path:       "/api/checks/" + checkID.String() + "/outcome",
			body:       map[string]string{"outcome": "pending"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid outcome: invalid value",
		},
		{
			name:       "malformed check id",
			path:       "/api/checks/not-a-uuid/outcome",
			body:       map[string]string{"outcome": "passed"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid id: has invalid format",
		},
		{
			name:       "already passed",
			path:       "/api/checks/" + checkID.String() + "/outcome",
			body:       map[string]string{"outcome": "passed"},
			serviceErr: domain.NewStateError("comprehension check", "pass", "passed"),
			wantStatus: http.StatusConflict,
			wantError:  "Cannot pass comprehension check in state passed",
		},
		{
			name:       "unknown check",
			path:       "/api/checks/" + checkID.String() + "/outcome",
			body:       map[string]string{"outcome": "expired"},
			serviceErr: store.ErrCheckNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "Comprehension check not found",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc := &mocks.MockProgressService{
				RecordCheckOutcomeFn: func(_ context.Context, event domain.CheckOutcomeEvent) (progress.CheckResult, error) {
					if tc.serviceErr != nil {
						return progress.CheckResult{}, tc.serviceErr
					}
					return progress.CheckResult{
						Check: &domain.ComprehensionCheck{ID: event.CheckID, Outcome: event.Outcome},
						Stack: progress.StackStatus{Status: domain.StackStatusCompleted},
					}, nil
				},
			}

			w := doRequest(t, newTestRouter(svc), http.MethodPost, tc.path, tc.body)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, decodeError(t, w).Error)
				return
			}
			var result progress.CheckResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			assert.Equal(t, checkID, result.Check.ID)
			assert.Equal(t, domain.StackStatusCompleted, result.Stack.Status)
		})
	}
}

func TestCreateStack(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	a, b := uuid.New(), uuid.New()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		svc := &mocks.MockProgressService{
			CreateStackFn: func(_ context.Context, uid uuid.UUID, name string, items []uuid.UUID) (progress.StackStatus, error) {
				return progress.StackStatus{
					StackID:    uuid.New(),
					UserID:     uid,
					Name:       name,
					Status:     domain.StackStatusInProgress,
					TotalCards: len(items),
				}, nil
			},
		}
		w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/users/"+userID.String()+"/stacks",
			map[string]interface{}{"name": "Spanish verbs", "item_ids": []uuid.UUID{a, b}})

		require.Equal(t, http.StatusCreated, w.Code)
		var status progress.StackStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, userID, status.UserID)
		assert.Equal(t, 2, status.TotalCards)
	})

	t.Run("duplicate items", func(t *testing.T) {
		t.Parallel()
		svc := &mocks.MockProgressService{}
		w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/users/"+userID.String()+"/stacks",
			map[string]interface{}{"name": "dups", "item_ids": []uuid.UUID{a, a}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid item_ids: contains invalid or duplicate entries", decodeError(t, w).Error)
		assert.Zero(t, svc.Calls("CreateStack"))
	})

	t.Run("empty items", func(t *testing.T) {
		t.Parallel()
		svc := &mocks.MockProgressService{}
		w := doRequest(t, newTestRouter(svc), http.MethodPost, "/api/users/"+userID.String()+"/stacks",
			map[string]interface{}{"name": "empty", "item_ids": []uuid.UUID{}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, svc.Calls("CreateStack"))
	})
}

func TestReadEndpoints(t *testing.T) {
	t.Parallel()
	userID := uuid.New()
	stackID := uuid.New()
	deadline := time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)

	svc := &mocks.MockProgressService{
		GetStreakStatusFn: func(_ context.Context, id uuid.UUID) (progress.StreakStatus, error) {
			if id != userID {
				return progress.StreakStatus{}, store.ErrStreakStateNotFound
			}
			return progress.StreakStatus{
				UserID:         id,
				CurrentStreak:  3,
				LongestStreak:  7,
				StreakDeadline: deadline,
				StreakFrozen:   true,
				FrozenStacks:   []uuid.UUID{stackID},
			}, nil
		},
		GetWeeklyStatsFn: func(_ context.Context, id uuid.UUID) (progress.WeeklyStatus, error) {
			return progress.WeeklyStatus{UserID: id, CurrentWeekCards: 500, IsAtCap: true, Cap: 500}, nil
		},
		GetStackStatusFn: func(_ context.Context, id uuid.UUID) (progress.StackStatus, error) {
			return progress.StackStatus{StackID: id, Status: domain.StackStatusPendingTest, Locked: true}, nil
		},
	}
	router := newTestRouter(svc)

	t.Run("streak", func(t *testing.T) {
		t.Parallel()
		w := doRequest(t, router, http.MethodGet, "/api/users/"+userID.String()+"/streak", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var status progress.StreakStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, 3, status.CurrentStreak)
		assert.True(t, status.StreakDeadline.Equal(deadline))
		assert.Equal(t, []uuid.UUID{stackID}, status.FrozenStacks)
	})

	t.Run("streak of unknown user", func(t *testing.T) {
		t.Parallel()
		w := doRequest(t, router, http.MethodGet, "/api/users/"+uuid.New().String()+"/streak", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "User not found", decodeError(t, w).Error)
	})

	t.Run("weekly", func(t *testing.T) {
		t.Parallel()
		w := doRequest(t, router, http.MethodGet, "/api/users/"+userID.String()+"/weekly", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var status progress.WeeklyStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.True(t, status.IsAtCap)
	})

	t.Run("stack", func(t *testing.T) {
		t.Parallel()
		w := doRequest(t, router, http.MethodGet, "/api/stacks/"+stackID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var status progress.StackStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.True(t, status.Locked)
		assert.Equal(t, domain.StackStatusPendingTest, status.Status)
	})
}

func TestSetTimezone(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	svc := &mocks.MockProgressService{
		SetTimezoneFn: func(_ context.Context, id uuid.UUID, tz string) (progress.StreakStatus, error) {
			return progress.StreakStatus{UserID: id, Timezone: tz}, nil
		},
	}
	router := newTestRouter(svc)

	w := doRequest(t, router, http.MethodPut, "/api/users/"+userID.String()+"/timezone",
		map[string]string{"timezone": "Asia/Tokyo"})
	require.Equal(t, http.StatusOK, w.Code)
	var status progress.StreakStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "Asia/Tokyo", status.Timezone)

	w = doRequest(t, router, http.MethodPut, "/api/users/"+userID.String()+"/timezone",
		map[string]string{"timezone": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, svc.Calls("SetTimezone"))
}
