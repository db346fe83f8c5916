package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// maxReserveAttempts bounds how often a bulk confirmation re-reads the event
// after losing a reservation race.
const maxReserveAttempts = 3

// Allocate splits items into the prefix that receives a slot and the rest.
// Items are served strictly in the order given; that order is the only
// fairness rule, and callers control it. An unlimited event confirms all.
func Allocate[T any](items []T, available int, unlimited bool) (confirmed, rejected []T) {
	if unlimited {
		return items, nil
	}
	k := min(max(available, 0), len(items))
	return items[:k], items[k:]
}

// ApproveRequests confirms or rejects a batch of requests for an event the
// caller initiated.
//
// With status CONFIRMED, available slots go to the first ids of
// upd.RequestIDs in the order supplied and the remainder is REJECTED. The
// counter is adjusted once for the whole batch.
func (s *RequestService) ApproveRequests(
	ctx context.Context, userID, eventID int64, upd model.StatusUpdateRequest,
) (*model.StatusUpdateResult, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	event, err := s.events.Snapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateInitiator(event, userID); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateStatusUpdate(upd); err != nil {
		return nil, err
	}
	reqs, err := s.loadBatch(ctx, eventID, upd.RequestIDs)
	if err != nil {
		return nil, err
	}

	if upd.Status == model.RequestRejected {
		return s.rejectBatch(ctx, eventID, reqs)
	}
	return s.confirmBatch(ctx, event, reqs)
}

// loadBatch returns the requests in the order of ids. Unknown ids count as
// not belonging to the event.
func (s *RequestService) loadBatch(ctx context.Context, eventID int64, ids []int64) ([]model.Request, error) {
	found, err := s.requests.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.Request, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}

	reqs := make([]model.Request, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: request %d not found", model.ErrForeignRequests, id)
		}
		reqs = append(reqs, r)
	}
	if err := s.validator.ValidateBelongToEvent(reqs, eventID); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *RequestService) rejectBatch(ctx context.Context, eventID int64, reqs []model.Request) (*model.StatusUpdateResult, error) {
	if err := s.validator.ValidateNoConfirmed(reqs); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateAllPending(reqs, model.ErrStatusAlreadySet); err != nil {
		return nil, err
	}

	updated, err := s.requests.ApplyTransitions(ctx, transitionsTo(reqs, model.RequestRejected), nil)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "participation requests rejected",
		slog.Int64("event_id", eventID),
		slog.Int("rejected", len(updated)),
	)
	return &model.StatusUpdateResult{
		ConfirmedRequests: []model.Request{},
		RejectedRequests:  updated,
	}, nil
}

func (s *RequestService) confirmBatch(ctx context.Context, event model.EventSnapshot, reqs []model.Request) (*model.StatusUpdateResult, error) {
	if err := s.validator.ValidateParticipantLimit(event); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateAllPending(reqs, model.ErrRequestsNotPending); err != nil {
		return nil, err
	}

	confirmed, rejected, err := s.reserveBatch(ctx, event, reqs)
	if err != nil {
		return nil, err
	}

	transitions := append(transitionsTo(confirmed, model.RequestConfirmed), transitionsTo(rejected, model.RequestRejected)...)
	updated, err := s.requests.ApplyTransitions(ctx, transitions, nil)
	if err != nil {
		if len(confirmed) > 0 {
			s.releaseSlots(ctx, event.ID, len(confirmed), requestIDs(confirmed), err)
		}
		return nil, err
	}

	result := &model.StatusUpdateResult{
		ConfirmedRequests: updated[:len(confirmed)],
		RejectedRequests:  updated[len(confirmed):],
	}
	slog.InfoContext(ctx, "participation requests confirmed",
		slog.Int64("event_id", event.ID),
		slog.Int("confirmed", len(result.ConfirmedRequests)),
		slog.Int("rejected", len(result.RejectedRequests)),
	)
	return result, nil
}

// reserveBatch allocates against event and reserves the confirmed share with
// one counter adjustment. When another caller took slots in the meantime the
// event is re-read and the split recomputed.
func (s *RequestService) reserveBatch(
	ctx context.Context, event model.EventSnapshot, reqs []model.Request,
) (confirmed, rejected []model.Request, err error) {
	for attempt := 1; ; attempt++ {
		confirmed, rejected = Allocate(reqs, event.Available(), event.Unlimited())
		if len(confirmed) == 0 {
			return confirmed, rejected, nil
		}

		_, err = s.events.AdjustConfirmed(ctx, event.ID, len(confirmed))
		if err == nil {
			return confirmed, rejected, nil
		}
		if errors.Is(err, model.ErrAuthorityUnavailable) {
			s.flagUncertainReservation(ctx, event.ID, len(confirmed), requestIDs(confirmed), err)
		}
		if !errors.Is(err, model.ErrConflict) || attempt == maxReserveAttempts {
			return nil, nil, fmt.Errorf("reserve %d slots of event %d: %w", len(confirmed), event.ID, err)
		}

		slog.InfoContext(ctx, "slot reservation lost a race, re-reading event",
			slog.Int64("event_id", event.ID),
			slog.Int("attempt", attempt),
		)
		if event, err = s.events.Snapshot(ctx, event.ID); err != nil {
			return nil, nil, err
		}
		if err = s.validator.ValidateParticipantLimit(event); err != nil {
			return nil, nil, err
		}
	}
}

func transitionsTo(reqs []model.Request, to model.RequestStatus) []model.Transition {
	ts := make([]model.Transition, 0, len(reqs))
	for _, r := range reqs {
		ts = append(ts, model.Transition{RequestID: r.ID, From: r.Status, To: to})
	}
	return ts
}

func requestIDs(reqs []model.Request) []int64 {
	ids := make([]int64, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.ID)
	}
	return ids
}
