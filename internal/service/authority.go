// Package service implements business logic, validation and orchestration
// between HTTP handlers, the repository layer and remote authorities.
package service

import (
	"context"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// EventAuthority is the Request Authority's view of the event service.
// Implementations surface transport failures as model.ErrAuthorityUnavailable.
type EventAuthority interface {
	Snapshot(ctx context.Context, eventID int64) (model.EventSnapshot, error)
	// AdjustConfirmed applies delta to the event's confirmed counter. It fails
	// with a model.ErrConflict when the result would leave [0, limit].
	AdjustConfirmed(ctx context.Context, eventID int64, delta int) (int, error)
}

// UserAuthority checks that a user exists.
type UserAuthority interface {
	GetUser(ctx context.Context, userID int64) (*model.User, error)
}
