package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

func TestDecideInitialStatus(t *testing.T) {
	tests := []struct {
		name  string
		event model.EventSnapshot
		want  model.RequestStatus
	}{
		{"unlimited moderated", model.EventSnapshot{ParticipantLimit: 0, RequestModeration: true}, model.RequestConfirmed},
		{"unlimited unmoderated", model.EventSnapshot{ParticipantLimit: 0}, model.RequestConfirmed},
		{"unmoderated with room", model.EventSnapshot{ParticipantLimit: 3, ConfirmedRequests: 2}, model.RequestConfirmed},
		{"unmoderated full", model.EventSnapshot{ParticipantLimit: 3, ConfirmedRequests: 3}, model.RequestRejected},
		{"moderated with room", model.EventSnapshot{ParticipantLimit: 3, RequestModeration: true}, model.RequestPending},
		{"moderated full", model.EventSnapshot{ParticipantLimit: 1, ConfirmedRequests: 1, RequestModeration: true}, model.RequestRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decideInitialStatus(tt.event); got != tt.want {
				t.Errorf("decideInitialStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCreateParticipationRequest_InitialStatus(t *testing.T) {
	tests := []struct {
		name          string
		limit         int
		moderation    bool
		wantStatus    model.RequestStatus
		wantConfirmed int
	}{
		{"unlimited confirms even when moderated", 0, true, model.RequestConfirmed, 1},
		{"unmoderated confirms and reserves", 2, false, model.RequestConfirmed, 1},
		{"moderated stays pending", 2, true, model.RequestPending, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			owner, guest := f.addUser(t), f.addUser(t)
			eventID := f.addEvent(owner, tt.limit, tt.moderation)

			req := f.request(t, guest, eventID)
			if req.Status != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, req.Status)
			}
			if req.RequesterID != guest || req.EventID != eventID {
				t.Errorf("unexpected request %+v", req)
			}
			if got := f.confirmed(t, eventID); got != tt.wantConfirmed {
				t.Errorf("expected confirmed counter %d, got %d", tt.wantConfirmed, got)
			}
		})
	}
}

func TestCreateParticipationRequest_Preconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest := f.addUser(t), f.addUser(t)

	pendingEvent := f.addEvent(owner, 0, false)
	if _, err := f.events.UpdateState(ctx, pendingEvent, model.EventPublished, model.EventPending, nil); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	fullEvent := f.addEvent(owner, 1, true)
	if _, err := f.events.AdjustConfirmed(ctx, fullEvent, 1); err != nil {
		t.Fatalf("fill event: %v", err)
	}
	openEvent := f.addEvent(owner, 10, true)
	f.request(t, guest, openEvent)

	tests := []struct {
		name    string
		userID  int64
		eventID int64
		want    error
	}{
		{"unknown user", 999, openEvent, model.ErrUserNotFound},
		{"unknown event", guest, 999, model.ErrEventNotFound},
		{"not published", guest, pendingEvent, model.ErrEventNotPublished},
		{"own event", owner, openEvent, model.ErrOwnEvent},
		{"duplicate", guest, openEvent, model.ErrDuplicateRequest},
		{"full", guest, fullEvent, model.ErrEventFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.requests.Len()
			_, err := f.svc.CreateParticipationRequest(ctx, tt.userID, tt.eventID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if after := f.requests.Len(); after != before {
				t.Errorf("expected no request written, had %d now %d", before, after)
			}
		})
	}
	if got := f.confirmed(t, fullEvent); got != 1 {
		t.Errorf("full event counter changed to %d", got)
	}
}

func TestCreateParticipationRequest_LostLastSlotIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest := f.addUser(t), f.addUser(t)
	eventID := f.addEvent(owner, 1, false)

	// Another admission takes the last slot between snapshot and reservation.
	f.withEvents(&scriptedEvents{
		EventAuthority: f.eventSvc,
		beforeAdjust: func(call, _ int) error {
			if call == 1 {
				_, err := f.events.AdjustConfirmed(ctx, eventID, 1)
				return err
			}
			return nil
		},
	})

	req := f.request(t, guest, eventID)
	if req.Status != model.RequestRejected {
		t.Fatalf("expected REJECTED, got %s", req.Status)
	}
	if got := f.confirmed(t, eventID); got != 1 {
		t.Errorf("expected counter 1, got %d", got)
	}
}

func TestCreateParticipationRequest_AuthorityUnavailable(t *testing.T) {
	ctx := context.Background()

	t.Run("snapshot", func(t *testing.T) {
		f := newFixture(t)
		owner, guest := f.addUser(t), f.addUser(t)
		eventID := f.addEvent(owner, 5, false)
		f.withEvents(&scriptedEvents{EventAuthority: f.eventSvc, snapshotErr: errUnavailable})

		if _, err := f.svc.CreateParticipationRequest(ctx, guest, eventID); !errors.Is(err, model.ErrAuthorityUnavailable) {
			t.Fatalf("expected ErrAuthorityUnavailable, got %v", err)
		}
		if n := f.requests.Len(); n != 0 {
			t.Errorf("expected no request written, got %d", n)
		}
	})

	t.Run("reservation", func(t *testing.T) {
		f := newFixture(t)
		owner, guest := f.addUser(t), f.addUser(t)
		eventID := f.addEvent(owner, 5, false)
		f.withEvents(&scriptedEvents{
			EventAuthority: f.eventSvc,
			beforeAdjust:   func(int, int) error { return errUnavailable },
		})

		_, err := f.svc.CreateParticipationRequest(ctx, guest, eventID)
		if !errors.Is(err, model.ErrAuthorityUnavailable) {
			t.Fatalf("expected ErrAuthorityUnavailable, got %v", err)
		}
		if errors.Is(err, model.ErrConflict) {
			t.Error("an unreachable authority must not look like a business rejection")
		}
		if n := f.requests.Len(); n != 0 {
			t.Errorf("expected no request written, got %d", n)
		}
		if got := f.confirmed(t, eventID); got != 0 {
			t.Errorf("expected counter 0, got %d", got)
		}
		// The outcome is unknown to the caller, so it is still recorded.
		if n := len(f.reconcileDeltas(t)); n != 1 {
			t.Errorf("expected one counter_reconcile message, got %d", n)
		}
	})
}

func TestCreateParticipationRequest_ReservationReplyLost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest := f.addUser(t), f.addUser(t)
	eventID := f.addEvent(owner, 2, false)
	f.withEvents(&scriptedEvents{EventAuthority: f.eventSvc, afterAdjust: replyLostOnReserve})

	_, err := f.svc.CreateParticipationRequest(ctx, guest, eventID)
	if !errors.Is(err, model.ErrAuthorityUnavailable) {
		t.Fatalf("expected ErrAuthorityUnavailable, got %v", err)
	}
	if n := f.requests.Len(); n != 0 {
		t.Errorf("expected no request written, got %d", n)
	}

	// The counter moved without a CONFIRMED row; the gap must be on record.
	ahead := f.confirmed(t, eventID) - f.requests.CountByStatus(eventID, model.RequestConfirmed)
	if ahead != 1 {
		t.Fatalf("expected the counter to be 1 ahead, got %d", ahead)
	}
	deltas := f.reconcileDeltas(t)
	if len(deltas) != 1 {
		t.Fatalf("expected one counter_reconcile message, got %d", len(deltas))
	}
	if deltas[0].EventID != eventID || deltas[0].Delta != -ahead {
		t.Errorf("unexpected reconcile payload %+v", deltas[0])
	}
}

func TestCreateParticipationRequest_FailedWriteReleasesSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest := f.addUser(t), f.addUser(t)
	eventID := f.addEvent(owner, 5, false)
	f.withRequests(&failingRequests{RequestRepository: f.requests, createErr: errDiskFull})

	if _, err := f.svc.CreateParticipationRequest(ctx, guest, eventID); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected disk full error, got %v", err)
	}
	if got := f.confirmed(t, eventID); got != 0 {
		t.Errorf("expected reserved slot to be released, counter is %d", got)
	}
	if msgs := f.outboxOfType(model.OutboxCounterReconcile); len(msgs) != 0 {
		t.Errorf("expected no reconciliation message, got %d", len(msgs))
	}
}

func TestCreateParticipationRequest_FailedReleaseIsFlagged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner, guest := f.addUser(t), f.addUser(t)
	eventID := f.addEvent(owner, 5, false)
	f.svc = NewRequestService(
		&failingRequests{RequestRepository: f.requests, createErr: errDiskFull},
		f.outbox,
		&scriptedEvents{EventAuthority: f.eventSvc, beforeAdjust: unavailableOnRelease},
		f.userSvc,
	)

	if _, err := f.svc.CreateParticipationRequest(ctx, guest, eventID); err == nil {
		t.Fatal("expected error")
	}
	msgs := f.outboxOfType(model.OutboxCounterReconcile)
	if len(msgs) != 1 {
		t.Fatalf("expected one reconciliation message, got %d", len(msgs))
	}
	if msgs[0].AggregateID != "event_1" {
		t.Errorf("unexpected aggregate id %q", msgs[0].AggregateID)
	}
}

// The confirmed counter never exceeds the limit and always equals the number
// of CONFIRMED requests, however many callers race for the last slots.
func TestCreateParticipationRequest_ConcurrentCapacity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.addUser(t)
	const limit, callers = 5, 40
	eventID := f.addEvent(owner, limit, false)

	guests := make([]int64, callers)
	for i := range guests {
		guests[i] = f.addUser(t)
	}

	var wg sync.WaitGroup
	for _, g := range guests {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := f.svc.CreateParticipationRequest(ctx, userID, eventID)
			if err != nil && !errors.Is(err, model.ErrEventFull) {
				t.Errorf("unexpected error: %v", err)
			}
		}(g)
	}
	wg.Wait()

	confirmed := f.requests.CountByStatus(eventID, model.RequestConfirmed)
	if confirmed != limit {
		t.Errorf("expected %d confirmed requests, got %d", limit, confirmed)
	}
	if got := f.confirmed(t, eventID); got != confirmed {
		t.Errorf("counter %d does not match %d confirmed requests", got, confirmed)
	}
}
