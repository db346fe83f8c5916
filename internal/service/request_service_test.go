package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

func TestCancelParticipationRequest_Pending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest := f.addUser(t), f.addUser(t)
	eventID := f.addEvent(owner, 5, true)
	req := f.request(t, guest, eventID)

	canceled, err := f.svc.CancelParticipationRequest(ctx, guest, req.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canceled.Status != model.RequestCanceled {
		t.Errorf("expected CANCELED, got %s", canceled.Status)
	}
	if got := f.confirmed(t, eventID); got != 0 {
		t.Errorf("expected counter 0, got %d", got)
	}
	if msgs := f.outbox.Messages(); len(msgs) != 0 {
		t.Errorf("a pending request frees no slot, got %d outbox messages", len(msgs))
	}
}

func TestCancelParticipationRequest_ConfirmedFreesSlotOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest := f.addUser(t), f.addUser(t)
	eventID := f.addEvent(owner, 5, false)
	req := f.request(t, guest, eventID)
	if got := f.confirmed(t, eventID); got != 1 {
		t.Fatalf("expected counter 1, got %d", got)
	}

	for i := range 2 {
		canceled, err := f.svc.CancelParticipationRequest(ctx, guest, req.ID)
		if err != nil {
			t.Fatalf("cancel %d: %v", i, err)
		}
		if canceled.Status != model.RequestCanceled {
			t.Errorf("cancel %d: expected CANCELED, got %s", i, canceled.Status)
		}
	}
	if got := f.confirmed(t, eventID); got != 0 {
		t.Errorf("expected a single decrement to 0, got %d", got)
	}

	msgs := f.outboxOfType(model.OutboxSlotFreed)
	if len(msgs) != 1 {
		t.Fatalf("expected one slot_freed message, got %d", len(msgs))
	}
	var payload model.SlotFreedEvent
	if err := json.Unmarshal(msgs[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.EventID != eventID || payload.RequestID != req.ID {
		t.Errorf("unexpected payload %+v", payload)
	}
	if msgs[0].MessageID == "" {
		t.Error("expected a message id")
	}
}

func TestCancelParticipationRequest_Refusals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest, other := f.addUser(t), f.addUser(t), f.addUser(t)
	eventID := f.addEvent(owner, 5, true)
	req := f.request(t, guest, eventID)
	rejected := f.request(t, other, eventID)
	if _, err := f.svc.ApproveRequests(ctx, owner, eventID, model.StatusUpdateRequest{
		RequestIDs: []int64{rejected.ID},
		Status:     model.RequestRejected,
	}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	tests := []struct {
		name      string
		userID    int64
		requestID int64
		want      error
	}{
		{"unknown user", 999, req.ID, model.ErrUserNotFound},
		{"unknown request", guest, 999, model.ErrRequestNotFound},
		{"not requester", other, req.ID, model.ErrNotRequester},
		{"rejected", other, rejected.ID, model.ErrStatusAlreadySet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.CancelParticipationRequest(ctx, tt.userID, tt.requestID); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if f.status(t, req.ID) != model.RequestPending {
		t.Error("refused cancel changed the request")
	}
}

func TestCancelParticipationRequest_ReleaseUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest := f.addUser(t), f.addUser(t)
	eventID := f.addEvent(owner, 5, false)
	req := f.request(t, guest, eventID)
	f.withEvents(&scriptedEvents{EventAuthority: f.eventSvc, beforeAdjust: unavailableOnRelease})

	_, err := f.svc.CancelParticipationRequest(ctx, guest, req.ID)
	if !errors.Is(err, model.ErrAuthorityUnavailable) {
		t.Fatalf("expected ErrAuthorityUnavailable, got %v", err)
	}
	if f.status(t, req.ID) != model.RequestCanceled {
		t.Error("the request should stay canceled")
	}
	if n := len(f.outboxOfType(model.OutboxSlotFreed)); n != 1 {
		t.Errorf("expected one slot_freed message, got %d", n)
	}

	msgs := f.outboxOfType(model.OutboxCounterReconcile)
	if len(msgs) != 1 {
		t.Fatalf("expected one counter_reconcile message, got %d", len(msgs))
	}
	var payload model.CounterReconcileEvent
	if err := json.Unmarshal(msgs[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.EventID != eventID || payload.Delta != -1 || len(payload.RequestIDs) != 1 || payload.RequestIDs[0] != req.ID {
		t.Errorf("unexpected payload %+v", payload)
	}
}

func TestCancelParticipationRequest_ReleaseRefused(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest := f.addUser(t), f.addUser(t)
	eventID := f.addEvent(owner, 5, false)
	req := f.request(t, guest, eventID)
	// Counter already behind the request store.
	if _, err := f.events.AdjustConfirmed(ctx, eventID, -1); err != nil {
		t.Fatalf("drain counter: %v", err)
	}

	canceled, err := f.svc.CancelParticipationRequest(ctx, guest, req.ID)
	if err != nil {
		t.Fatalf("a committed cancel must succeed, got %v", err)
	}
	if canceled.Status != model.RequestCanceled {
		t.Errorf("expected CANCELED, got %s", canceled.Status)
	}
	if got := f.confirmed(t, eventID); got != 0 {
		t.Errorf("expected counter 0, got %d", got)
	}
	if n := len(f.reconcileDeltas(t)); n != 1 {
		t.Errorf("expected one counter_reconcile message, got %d", n)
	}
}

// Every path that changes the confirmed count moves the counter by the same amount.
func TestConfirmedCounterMatchesRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.addUser(t)
	auto := f.addEvent(owner, 10, false)
	moderated := f.addEvent(owner, 3, true)

	var autoReqs []*model.Request
	for range 4 {
		autoReqs = append(autoReqs, f.request(t, f.addUser(t), auto))
	}
	var pending []int64
	for range 4 {
		pending = append(pending, f.request(t, f.addUser(t), moderated).ID)
	}
	if _, err := f.svc.ApproveRequests(ctx, owner, moderated, model.StatusUpdateRequest{
		RequestIDs: pending,
		Status:     model.RequestConfirmed,
	}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	for _, r := range autoReqs[:2] {
		if _, err := f.svc.CancelParticipationRequest(ctx, r.RequesterID, r.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
	}

	for _, eventID := range []int64{auto, moderated} {
		want := f.requests.CountByStatus(eventID, model.RequestConfirmed)
		if got := f.confirmed(t, eventID); got != want {
			t.Errorf("event %d: counter %d, confirmed requests %d", eventID, got, want)
		}
	}
	if got := f.confirmed(t, moderated); got != 3 {
		t.Errorf("expected moderated event to be full, got %d", got)
	}
}

func TestListRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest, stranger := f.addUser(t), f.addUser(t), f.addUser(t)
	first := f.addEvent(owner, 0, false)
	second := f.addEvent(owner, 0, false)
	f.request(t, guest, first)
	f.request(t, guest, second)

	mine, err := f.svc.ListUserRequests(ctx, guest)
	if err != nil {
		t.Fatalf("list user requests: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 requests, got %d", len(mine))
	}

	none, err := f.svc.ListUserRequests(ctx, stranger)
	if err != nil {
		t.Fatalf("list user requests: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected an empty non-nil list, got %#v", none)
	}

	forEvent, err := f.svc.ListEventRequests(ctx, owner, first)
	if err != nil {
		t.Fatalf("list event requests: %v", err)
	}
	if len(forEvent) != 1 || forEvent[0].EventID != first {
		t.Errorf("unexpected event requests %+v", forEvent)
	}

	if _, err := f.svc.ListEventRequests(ctx, stranger, first); !errors.Is(err, model.ErrNotInitiator) {
		t.Errorf("expected ErrNotInitiator, got %v", err)
	}
	if _, err := f.svc.ListUserRequests(ctx, 999); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
