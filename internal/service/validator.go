package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

// RequestValidator holds the admission and approval preconditions. Every
// check runs before anything is persisted.
type RequestValidator struct {
	requests repository.RequestRepository
}

// NewRequestValidator constructs a RequestValidator.
func NewRequestValidator(requests repository.RequestRepository) *RequestValidator {
	return &RequestValidator{requests: requests}
}

// ValidateCreation checks, in order: published, not own event, no live
// duplicate, and free capacity.
func (v *RequestValidator) ValidateCreation(ctx context.Context, userID int64, event model.EventSnapshot) error {
	if event.State != model.EventPublished {
		return fmt.Errorf("%w: event %d is %s", model.ErrEventNotPublished, event.ID, event.State)
	}
	if event.InitiatorID == userID {
		return model.ErrOwnEvent
	}
	dup, err := v.requests.HasActive(ctx, userID, event.ID)
	if err != nil {
		return err
	}
	if dup {
		return fmt.Errorf("%w: user %d already requested event %d", model.ErrDuplicateRequest, userID, event.ID)
	}
	if event.Full() {
		return fmt.Errorf("%w: event %d has no free slots", model.ErrEventFull, event.ID)
	}
	return nil
}

// ValidateOwnership checks that userID made the request.
func (v *RequestValidator) ValidateOwnership(userID int64, req *model.Request) error {
	if req.RequesterID != userID {
		return fmt.Errorf("%w: user %d, request %d", model.ErrNotRequester, userID, req.ID)
	}
	return nil
}

// ValidateInitiator checks that userID owns the event.
func (v *RequestValidator) ValidateInitiator(event model.EventSnapshot, userID int64) error {
	if event.InitiatorID != userID {
		return fmt.Errorf("%w: user %d, event %d", model.ErrNotInitiator, userID, event.ID)
	}
	return nil
}

// ValidateStatusUpdate checks the shape of a bulk update.
func (v *RequestValidator) ValidateStatusUpdate(upd model.StatusUpdateRequest) error {
	if upd.Status != model.RequestConfirmed && upd.Status != model.RequestRejected {
		return fmt.Errorf("%w: got %q", model.ErrInvalidTargetStatus, upd.Status)
	}
	if len(upd.RequestIDs) == 0 {
		return model.ErrEmptyRequestIDs
	}
	seen := make(map[int64]struct{}, len(upd.RequestIDs))
	for _, id := range upd.RequestIDs {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %d", model.ErrDuplicateRequestIDs, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ValidateBelongToEvent checks that every request targets eventID.
func (v *RequestValidator) ValidateBelongToEvent(reqs []model.Request, eventID int64) error {
	for _, r := range reqs {
		if r.EventID != eventID {
			return fmt.Errorf("%w: request %d targets event %d", model.ErrForeignRequests, r.ID, r.EventID)
		}
	}
	return nil
}

// ValidateParticipantLimit fails when a limited event is already full.
func (v *RequestValidator) ValidateParticipantLimit(event model.EventSnapshot) error {
	if event.Full() {
		return fmt.Errorf("%w: %d of %d", model.ErrCapacityExhausted, event.ConfirmedRequests, event.ParticipantLimit)
	}
	return nil
}

// ValidateNoConfirmed fails when any request already holds a slot.
func (v *RequestValidator) ValidateNoConfirmed(reqs []model.Request) error {
	for _, r := range reqs {
		if r.Status == model.RequestConfirmed {
			return fmt.Errorf("%w: request %d", model.ErrRejectConfirmed, r.ID)
		}
	}
	return nil
}

// ValidateAllPending fails when any request is not PENDING; err is the
// condition reported.
func (v *RequestValidator) ValidateAllPending(reqs []model.Request, err error) error {
	for _, r := range reqs {
		if r.Status != model.RequestPending {
			return fmt.Errorf("%w: request %d is %s", err, r.ID, r.Status)
		}
	}
	return nil
}
