package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/AtlasTheChosen/lockn-sub001/internal/api/shared"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/platform/logger"
	"github.com/AtlasTheChosen/lockn-sub001/internal/service/progress"
	"github.com/google/uuid"
)

// ProgressService is the part of progress.Service the HTTP layer uses.
type ProgressService interface {
	RegisterUser(ctx context.Context, userID uuid.UUID, timezone string) (progress.StreakStatus, error)
	SetTimezone(ctx context.Context, userID uuid.UUID, timezone string) (progress.StreakStatus, error)
	CreateStack(ctx context.Context, userID uuid.UUID, name string, itemIDs []uuid.UUID) (progress.StackStatus, error)
	SubmitRating(ctx context.Context, event domain.RatingEvent) (progress.RatingResult, error)
	RecordCheckOutcome(ctx context.Context, event domain.CheckOutcomeEvent) (progress.CheckResult, error)
	GetStreakStatus(ctx context.Context, userID uuid.UUID) (progress.StreakStatus, error)
	GetStackStatus(ctx context.Context, stackID uuid.UUID) (progress.StackStatus, error)
	GetWeeklyStats(ctx context.Context, userID uuid.UUID) (progress.WeeklyStatus, error)
}

// Ensure progress.Service implements ProgressService interface
var _ ProgressService = (*progress.Service)(nil)

// ProgressHandler handles streak, stack, rating and check requests.
//
// User ids arrive as trusted values from the gateway in front of this
// service, which owns authentication.
type ProgressHandler struct {
	service ProgressService
	logger  *slog.Logger
}

// NewProgressHandler creates a new ProgressHandler
func NewProgressHandler(service ProgressService, log *slog.Logger) *ProgressHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("service cannot be nil for ProgressHandler")
	}
	if log == nil {
		log = slog.Default()
	}
	return &ProgressHandler{
		service: service,
		logger:  log.With(slog.String("component", "progress_handler")),
	}
}

// RegisterUser handles POST /api/users.
func (h *ProgressHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RegisterUserRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	status, err := h.service.RegisterUser(r.Context(), req.UserID, req.Timezone)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to register user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, status)
}

// SetTimezone handles PUT /api/users/{id}/timezone.
func (h *ProgressHandler) SetTimezone(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req SetTimezoneRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	status, err := h.service.SetTimezone(r.Context(), userID, req.Timezone)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to change timezone")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// CreateStack handles POST /api/users/{id}/stacks.
func (h *ProgressHandler) CreateStack(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req CreateStackRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	status, err := h.service.CreateStack(r.Context(), userID, req.Name, req.ItemIDs)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create stack")
		return
	}

	log.Debug("created stack",
		slog.String("user_id", userID.String()),
		slog.String("stack_id", status.StackID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, status)
}

// SubmitRating handles POST /api/ratings.
func (h *ProgressHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req SubmitRatingRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	result, err := h.service.SubmitRating(r.Context(), domain.RatingEvent{
		UserID: req.UserID,
		ItemID: req.ItemID,
		Rating: req.Rating,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit rating")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// RecordCheckOutcome handles POST /api/checks/{id}/outcome.
func (h *ProgressHandler) RecordCheckOutcome(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	checkID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req CheckOutcomeRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	result, err := h.service.RecordCheckOutcome(r.Context(), domain.CheckOutcomeEvent{
		CheckID: checkID,
		Outcome: domain.CheckOutcome(req.Outcome),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record check outcome")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// GetStreakStatus handles GET /api/users/{id}/streak.
func (h *ProgressHandler) GetStreakStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status, err := h.service.GetStreakStatus(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get streak status")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// GetWeeklyStats handles GET /api/users/{id}/weekly.
func (h *ProgressHandler) GetWeeklyStats(w http.ResponseWriter, r *http.Request) {
	userID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status, err := h.service.GetWeeklyStats(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get weekly stats")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// GetStackStatus handles GET /api/stacks/{id}.
func (h *ProgressHandler) GetStackStatus(w http.ResponseWriter, r *http.Request) {
	stackID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status, err := h.service.GetStackStatus(r.Context(), stackID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get stack status")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}
