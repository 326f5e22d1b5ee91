package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Progress event types.
const (
	TypeStreakAwarded    = "streak.awarded"
	TypeStreakLost       = "streak.lost"
	TypeStreakFrozen     = "streak.frozen"
	TypeStreakUnfrozen   = "streak.unfrozen"
	TypeStackPendingTest = "stack.pending_test"
	TypeStackCompleted   = "stack.completed"
)

// ProgressEvent announces a committed change in a user's progress. It is
// published only after the transaction that caused it committed.
type ProgressEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// UserID is the user whose progress changed
	UserID uuid.UUID `json:"user_id"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the server time of the change
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *ProgressEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewProgressEvent creates a ProgressEvent with the given type and payload.
func NewProgressEvent(eventType string, userID uuid.UUID, payload interface{}, at time.Time) (*ProgressEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &ProgressEvent{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Payload:   payloadBytes,
		CreatedAt: at.UTC(),
	}, nil
}

// StreakPayload accompanies streak.awarded and streak.lost.
type StreakPayload struct {
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
	// PreviousStreak is the streak length before a loss.
	PreviousStreak int `json:"previous_streak,omitempty"`
}

// FreezePayload accompanies streak.frozen and streak.unfrozen.
type FreezePayload struct {
	StackID      uuid.UUID   `json:"stack_id"`
	FrozenStacks []uuid.UUID `json:"frozen_stacks"`
}

// StackPayload accompanies stack.pending_test and stack.completed.
type StackPayload struct {
	StackID      uuid.UUID `json:"stack_id"`
	CheckID      uuid.UUID `json:"check_id"`
	TestDeadline time.Time `json:"test_deadline"`
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *ProgressEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *ProgressEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *ProgressEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *ProgressEvent) error
}
