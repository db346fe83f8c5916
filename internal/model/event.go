// Package model defines the core domain types shared by the event, user and
// request services.
package model

import (
	"fmt"
	"time"
)

// EventState is the lifecycle state of an event.
type EventState string

const (
	EventPending   EventState = "PENDING"
	EventPublished EventState = "PUBLISHED"
	EventCanceled  EventState = "CANCELED"
)

// StateAction is an admin action that moves an event between states.
type StateAction string

const (
	ActionPublishEvent StateAction = "PUBLISH_EVENT"
	ActionRejectEvent  StateAction = "REJECT_EVENT"
)

// eventTransitions lists every legal admin transition. Anything missing is rejected.
var eventTransitions = map[EventState]map[StateAction]EventState{
	EventPending: {
		ActionPublishEvent: EventPublished,
		ActionRejectEvent:  EventCanceled,
	},
}

// Valid reports whether a is a known admin action.
func (a StateAction) Valid() bool {
	return a == ActionPublishEvent || a == ActionRejectEvent
}

// Apply returns the state reached by applying action a to s.
func (s EventState) Apply(a StateAction) (EventState, error) {
	if !a.Valid() {
		return s, fmt.Errorf("%w: %q", ErrInvalidStateAction, a)
	}
	next, ok := eventTransitions[s][a]
	if !ok {
		return s, fmt.Errorf("%w: %s from %s", ErrEventStateTransition, a, s)
	}
	return next, nil
}

// Event represents an event owned by the event service.
type Event struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Annotation        string     `json:"annotation"`
	Description       string     `json:"description"`
	InitiatorID       int64      `json:"initiator"`
	State             EventState `json:"state"`
	ParticipantLimit  int        `json:"participantLimit"`
	RequestModeration bool       `json:"requestModeration"`
	ConfirmedRequests int        `json:"confirmedRequests"`
	CreatedOn         time.Time  `json:"createdOn"`
	PublishedOn       *time.Time `json:"publishedOn,omitempty"`
}

// Snapshot returns a value copy of the capacity-relevant fields.
func (e *Event) Snapshot() EventSnapshot {
	return EventSnapshot{
		ID:                e.ID,
		State:             e.State,
		ParticipantLimit:  e.ParticipantLimit,
		RequestModeration: e.RequestModeration,
		ConfirmedRequests: e.ConfirmedRequests,
		InitiatorID:       e.InitiatorID,
	}
}

// EventSnapshot is a point-in-time, read-only copy of an event's capacity
// state. It is passed by value and never written back.
type EventSnapshot struct {
	ID                int64      `json:"id"`
	State             EventState `json:"state"`
	ParticipantLimit  int        `json:"participantLimit"`
	RequestModeration bool       `json:"requestModeration"`
	ConfirmedRequests int        `json:"confirmedRequests"`
	InitiatorID       int64      `json:"initiator"`
}

// Unlimited reports whether the event has no participant limit.
func (s EventSnapshot) Unlimited() bool {
	return s.ParticipantLimit == 0
}

// Full returns true when a limited event has no remaining slots.
func (s EventSnapshot) Full() bool {
	return !s.Unlimited() && s.ConfirmedRequests >= s.ParticipantLimit
}

// Available returns the number of free slots; it is meaningless for unlimited events.
func (s EventSnapshot) Available() int {
	if n := s.ParticipantLimit - s.ConfirmedRequests; n > 0 {
		return n
	}
	return 0
}

// NewEventRequest is the payload for creating a new event.
type NewEventRequest struct {
	Title             string `json:"title"`
	Annotation        string `json:"annotation"`
	Description       string `json:"description"`
	ParticipantLimit  int    `json:"participantLimit"`
	RequestModeration *bool  `json:"requestModeration"`
}

// UpdateEventAdminRequest is the admin payload for changing an event's state.
type UpdateEventAdminRequest struct {
	StateAction StateAction `json:"stateAction"`
}

// AdjustConfirmedRequest is the payload of the counter-adjustment call.
type AdjustConfirmedRequest struct {
	Delta int `json:"delta"`
}

// AdjustConfirmedResponse carries the counter value after an adjustment.
type AdjustConfirmedResponse struct {
	ConfirmedRequests int `json:"confirmedRequests"`
}
