// Package repository implements the PostgreSQL persistence of events, users,
// participation requests and the request outbox. It uses pgx directly (no ORM).
package repository

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// EventRepository defines methods for event data access.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	// UpdateState moves the event from one state to another. It fails with
	// model.ErrEventStateTransition when the stored state is no longer from.
	UpdateState(ctx context.Context, id int64, from, to model.EventState, publishedOn *time.Time) (*model.Event, error)
	// AdjustConfirmed applies delta to the confirmed counter atomically and
	// only when the result stays within [0, participantLimit]. It returns the
	// new counter value.
	AdjustConfirmed(ctx context.Context, id int64, delta int) (int, error)
}

// UserRepository defines methods for user data access.
type UserRepository interface {
	Create(ctx context.Context, params model.CreateUserRequest) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Delete(ctx context.Context, id int64) error
}

// RequestRepository defines methods for participation request data access.
type RequestRepository interface {
	// Create inserts a request. A second live request for the same requester
	// and event fails with model.ErrDuplicateRequest.
	Create(ctx context.Context, req *model.Request) (*model.Request, error)
	GetByID(ctx context.Context, id int64) (*model.Request, error)
	// ListByIDs returns the requests that exist among ids, in no defined order.
	ListByIDs(ctx context.Context, ids []int64) ([]model.Request, error)
	ListByRequester(ctx context.Context, requesterID int64) ([]model.Request, error)
	ListByEvent(ctx context.Context, eventID int64) ([]model.Request, error)
	// HasActive reports whether a non-canceled request exists for the pair.
	HasActive(ctx context.Context, requesterID, eventID int64) (bool, error)
	// ApplyTransitions applies every status change and records every outbox
	// message in one atomic unit. If any request no longer has its expected
	// prior status nothing is written and model.ErrStatusChanged is returned.
	// The updated requests come back in the order of transitions.
	ApplyTransitions(ctx context.Context, transitions []model.Transition, outbox []model.OutboxMessage) ([]model.Request, error)
}

// OutboxRepository defines methods for outbox message data access.
type OutboxRepository interface {
	Create(ctx context.Context, msg model.OutboxMessage) (*model.OutboxMessage, error)
	GetUnpublished(ctx context.Context, limit int) ([]model.OutboxMessage, error)
	MarkAsPublished(ctx context.Context, id int64) error
}
