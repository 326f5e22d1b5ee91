package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AtlasTheChosen/lockn-sub001/internal/api/shared"
	"github.com/AtlasTheChosen/lockn-sub001/internal/domain"
	"github.com/AtlasTheChosen/lockn-sub001/internal/redact"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// getPathUUID extracts a UUID from the URL path parameters.
//
// Returns a domain.ValidationError if the parameter is missing or malformed.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required")
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format")
	}

	return id, nil
}

// decodeAndValidate decodes the JSON body into req and validates it. On
// failure it writes a 400 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}, log *slog.Logger) bool {
	if err := shared.DecodeJSON(r, req); err != nil {
		log.Debug("invalid request format", slog.String("error", redact.Error(err)))
		if errors.Is(err, shared.ErrEmptyBody) {
			shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
			return false
		}
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return false
	}

	if err := shared.ValidateRequest(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
			return false
		}
		HandleAPIError(w, r, err, "")
		return false
	}
	return true
}

// HandleAPIError writes the response for a service error. The status comes
// from MapErrorToStatusCode; fallback replaces the generic message of
// internal errors when non-empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	// A state error means a collaborator drove a lifecycle out of order.
	if errors.Is(err, domain.ErrInvalidState) {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
