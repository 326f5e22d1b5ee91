package api

import (
	"github.com/google/uuid"
)

// RegisterUserRequest defines the payload for POST /api/users.
type RegisterUserRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	// Timezone is an IANA name; empty means UTC.
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

// SetTimezoneRequest defines the payload for PUT /api/users/{id}/timezone.
type SetTimezoneRequest struct {
	Timezone string `json:"timezone" validate:"required,timezone"`
}

// CreateStackRequest defines the payload for POST /api/users/{id}/stacks.
type CreateStackRequest struct {
	Name    string      `json:"name"     validate:"required,max=200"`
	ItemIDs []uuid.UUID `json:"item_ids" validate:"required,min=1,max=500,unique"`
}

// SubmitRatingRequest defines the payload for POST /api/ratings.
//
// Clients may send a timestamp for their own bookkeeping; it is ignored and
// the server clock decides which day the rating belongs to.
type SubmitRatingRequest struct {
	UserID    uuid.UUID `json:"user_id"   validate:"required"`
	ItemID    uuid.UUID `json:"item_id"   validate:"required"`
	Rating    int       `json:"rating"    validate:"required,gte=1,lte=5"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// CheckOutcomeRequest defines the payload for POST /api/checks/{id}/outcome.
type CheckOutcomeRequest struct {
	Outcome   string `json:"outcome"   validate:"required,oneof=passed expired"`
	Timestamp string `json:"timestamp,omitempty"`
}
