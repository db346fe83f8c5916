package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

// RequestService is the Request Authority. It never writes the confirmed
// counter itself; every change goes through EventAuthority.AdjustConfirmed.
type RequestService struct {
	requests  repository.RequestRepository
	outbox    repository.OutboxRepository
	events    EventAuthority
	users     UserAuthority
	validator *RequestValidator
	now       func() time.Time
}

// NewRequestService constructs a RequestService with its dependencies.
func NewRequestService(
	requests repository.RequestRepository,
	outbox repository.OutboxRepository,
	events EventAuthority,
	users UserAuthority,
) *RequestService {
	return &RequestService{
		requests:  requests,
		outbox:    outbox,
		events:    events,
		users:     users,
		validator: NewRequestValidator(requests),
		now:       time.Now,
	}
}

// ListUserRequests returns every request made by userID.
func (s *RequestService) ListUserRequests(ctx context.Context, userID int64) ([]model.Request, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	reqs, err := s.requests.ListByRequester(ctx, userID)
	if err != nil {
		return nil, err
	}
	return nonNil(reqs), nil
}

// ListEventRequests returns every request for eventID. Only the initiator may list them.
func (s *RequestService) ListEventRequests(ctx context.Context, userID, eventID int64) ([]model.Request, error) {
	event, err := s.events.Snapshot(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateInitiator(event, userID); err != nil {
		return nil, err
	}
	reqs, err := s.requests.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return nonNil(reqs), nil
}

// CancelParticipationRequest cancels the caller's own request. Cancelling an
// already canceled request returns it unchanged with no counter effect; a
// confirmed request frees its slot.
func (s *RequestService) CancelParticipationRequest(ctx context.Context, userID, requestID int64) (*model.Request, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.ValidateOwnership(userID, req); err != nil {
		return nil, err
	}
	if req.Status == model.RequestCanceled {
		return req, nil
	}
	if !req.Status.CanTransition(model.RequestCanceled) {
		return nil, fmt.Errorf("%w: request %d is %s", model.ErrStatusAlreadySet, req.ID, req.Status)
	}

	heldSlot := req.Status == model.RequestConfirmed
	var outbox []model.OutboxMessage
	if heldSlot {
		msg, err := newOutboxMessage(model.OutboxSlotFreed, req.EventID, model.SlotFreedEvent{
			EventID:   req.EventID,
			RequestID: req.ID,
		})
		if err != nil {
			return nil, err
		}
		outbox = append(outbox, msg)
	}

	updated, err := s.requests.ApplyTransitions(ctx, []model.Transition{
		{RequestID: req.ID, From: req.Status, To: model.RequestCanceled},
	}, outbox)
	if err != nil {
		if errors.Is(err, model.ErrStatusChanged) {
			// Lost a race; a concurrent cancel still leaves the request canceled.
			if cur, getErr := s.requests.GetByID(ctx, requestID); getErr == nil && cur.Status == model.RequestCanceled {
				return cur, nil
			}
		}
		return nil, err
	}
	canceled := updated[0]

	if heldSlot {
		if _, err := s.events.AdjustConfirmed(ctx, req.EventID, -1); err != nil {
			s.flagDivergence(ctx, req.EventID, -1, []int64{req.ID}, err)
			if !errors.Is(err, model.ErrConflict) {
				return nil, fmt.Errorf("release slot of event %d: %w", req.EventID, err)
			}
			// The counter refused the release, so it was already behind the
			// request store. The cancel itself stands.
		}
	}
	slog.InfoContext(ctx, "participation request canceled",
		slog.Int64("request_id", req.ID),
		slog.Int64("event_id", req.EventID),
		slog.String("prior_status", string(req.Status)),
	)
	return &canceled, nil
}

// releaseSlots returns n reserved slots after a local write failed. If the
// release itself fails the counter is ahead of the request store.
func (s *RequestService) releaseSlots(ctx context.Context, eventID int64, n int, requestIDs []int64, cause error) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.events.AdjustConfirmed(ctx, eventID, -n); err != nil {
		s.flagDivergence(ctx, eventID, -n, requestIDs,
			fmt.Errorf("release after %v: %w", cause, err))
		return
	}
	slog.WarnContext(ctx, "reserved slots released after failed write",
		slog.Int64("event_id", eventID),
		slog.Int("slots", n),
		slog.String("cause", cause.Error()),
	)
}

// flagUncertainReservation handles a reservation of n slots that failed
// without a definite answer. The authority may have applied it before the
// reply was lost, so the counter may be n ahead of the request store. It is
// not released blindly: if the increment never landed a release would take
// slots held by other requests.
func (s *RequestService) flagUncertainReservation(ctx context.Context, eventID int64, n int, requestIDs []int64, cause error) {
	s.flagDivergence(ctx, eventID, -n, requestIDs,
		fmt.Errorf("reservation of %d slots has unknown outcome: %w", n, cause))
}

// flagDivergence records a reconciliation candidate: the confirmed counter
// of eventID is missing delta relative to the request store.
func (s *RequestService) flagDivergence(ctx context.Context, eventID int64, delta int, requestIDs []int64, cause error) {
	ctx = context.WithoutCancel(ctx)
	slog.ErrorContext(ctx, "confirmed counter diverged from request store",
		slog.Int64("event_id", eventID),
		slog.Int("delta", delta),
		slog.Any("request_ids", requestIDs),
		slog.String("error", cause.Error()),
	)

	msg, err := newOutboxMessage(model.OutboxCounterReconcile, eventID, model.CounterReconcileEvent{
		EventID:    eventID,
		Delta:      delta,
		RequestIDs: requestIDs,
		Reason:     cause.Error(),
	})
	if err == nil {
		_, err = s.outbox.Create(ctx, msg)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to record reconciliation candidate",
			slog.Int64("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}
}

func newOutboxMessage(eventType model.OutboxEventType, eventID int64, payload any) (model.OutboxMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.OutboxMessage{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return model.OutboxMessage{
		MessageID:   uuid.NewString(),
		AggregateID: fmt.Sprintf("event_%d", eventID),
		EventType:   eventType,
		Payload:     body,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func nonNil(reqs []model.Request) []model.Request {
	if reqs == nil {
		return []model.Request{}
	}
	return reqs
}
