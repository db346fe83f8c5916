package model

import "time"

// User is a platform user. Other services only ever need its id.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateUserRequest is the payload for registering a user.
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OutboxEventType names a request-service domain event.
type OutboxEventType string

const (
	// OutboxSlotFreed is written when a confirmed request is canceled.
	OutboxSlotFreed OutboxEventType = "slot_freed"
	// OutboxCounterReconcile is written when the request store and the event
	// counter may have diverged.
	OutboxCounterReconcile OutboxEventType = "counter_reconcile"
)

// OutboxMessage is a domain event waiting to be relayed to the stream.
type OutboxMessage struct {
	ID          int64           `json:"id"`
	MessageID   string          `json:"message_id"`
	AggregateID string          `json:"aggregate_id"`
	EventType   OutboxEventType `json:"event_type"`
	Payload     []byte          `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at"`
}

// SlotFreedEvent is the payload of OutboxSlotFreed.
type SlotFreedEvent struct {
	EventID   int64 `json:"event_id"`
	RequestID int64 `json:"request_id"`
}

// CounterReconcileEvent is the payload of OutboxCounterReconcile. Delta is
// the adjustment that should have been applied to the event counter.
type CounterReconcileEvent struct {
	EventID    int64   `json:"event_id"`
	Delta      int     `json:"delta"`
	RequestIDs []int64 `json:"request_ids"`
	Reason     string  `json:"reason"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
