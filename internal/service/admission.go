package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// decideInitialStatus is the admission policy for a request that passed
// every precondition.
func decideInitialStatus(event model.EventSnapshot) model.RequestStatus {
	switch {
	case event.Unlimited():
		return model.RequestConfirmed
	case !event.RequestModeration && event.ConfirmedRequests < event.ParticipantLimit:
		return model.RequestConfirmed
	case event.ConfirmedRequests >= event.ParticipantLimit:
		return model.RequestRejected
	default:
		return model.RequestPending
	}
}

// CreateParticipationRequest admits userID to eventID.
//
// A CONFIRMED decision reserves its slot with the event authority before the
// request row is written: the conditional counter update is the only gate on
// capacity, so a caller that loses the race for the last slot is REJECTED
// instead of over-filling the event. An unreachable authority aborts before
// any local write.
func (s *RequestService) CreateParticipationRequest(ctx context.Context, userID, eventID int64) (*model.Request, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	event, err := s.events.Snapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateCreation(ctx, userID, event); err != nil {
		return nil, err
	}

	status := decideInitialStatus(event)
	reserved := false
	if status == model.RequestConfirmed {
		_, err := s.events.AdjustConfirmed(ctx, eventID, 1)
		switch {
		case err == nil:
			reserved = true
		case errors.Is(err, model.ErrConflict):
			slog.InfoContext(ctx, "slot taken before reservation, rejecting request",
				slog.Int64("event_id", eventID),
				slog.Int64("user_id", userID),
			)
			status = model.RequestRejected
		default:
			if errors.Is(err, model.ErrAuthorityUnavailable) {
				s.flagUncertainReservation(ctx, eventID, 1, nil, err)
			}
			return nil, fmt.Errorf("reserve slot of event %d: %w", eventID, err)
		}
	}

	req, err := s.requests.Create(ctx, &model.Request{
		RequesterID: userID,
		EventID:     eventID,
		Status:      status,
		Created:     s.now().UTC(),
	})
	if err != nil {
		if reserved {
			s.releaseSlots(ctx, eventID, 1, nil, err)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "participation request created",
		slog.Int64("request_id", req.ID),
		slog.Int64("event_id", eventID),
		slog.Int64("user_id", userID),
		slog.String("status", string(req.Status)),
	)
	return req, nil
}
