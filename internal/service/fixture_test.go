package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository/memory"
)

// fixture runs all three authorities in-process on memory stores.
type fixture struct {
	events   *memory.EventStore
	users    *memory.UserStore
	requests *memory.RequestStore
	outbox   *memory.OutboxStore

	eventSvc *EventService
	userSvc  *UserService
	svc      *RequestService

	nextEventID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events: memory.NewEventStore(),
		users:  memory.NewUserStore(),
		outbox: memory.NewOutboxStore(),
	}
	f.requests = memory.NewRequestStore(f.outbox)
	f.userSvc = NewUserService(f.users)
	f.eventSvc = NewEventService(f.events, f.userSvc)
	f.svc = NewRequestService(f.requests, f.outbox, f.eventSvc, f.userSvc)
	return f
}

func (f *fixture) addUser(t *testing.T) int64 {
	t.Helper()
	n := len(mustList(t, f.users)) + 1
	u, err := f.users.Create(context.Background(), model.CreateUserRequest{
		Name:  fmt.Sprintf("user %d", n),
		Email: fmt.Sprintf("user%d@example.com", n),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func mustList(t *testing.T, users *memory.UserStore) []model.User {
	t.Helper()
	list, err := users.List(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	return list
}

// addEvent stores a published event owned by initiator.
func (f *fixture) addEvent(initiator int64, limit int, moderation bool) int64 {
	f.nextEventID++
	f.events.Put(model.Event{
		ID:                f.nextEventID,
		Title:             "meetup",
		InitiatorID:       initiator,
		State:             model.EventPublished,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
	})
	return f.nextEventID
}

func (f *fixture) confirmed(t *testing.T, eventID int64) int {
	t.Helper()
	e, err := f.events.GetByID(context.Background(), eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	return e.ConfirmedRequests
}

func (f *fixture) request(t *testing.T, userID, eventID int64) *model.Request {
	t.Helper()
	req, err := f.svc.CreateParticipationRequest(context.Background(), userID, eventID)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

func (f *fixture) outboxOfType(eventType model.OutboxEventType) []model.OutboxMessage {
	var msgs []model.OutboxMessage
	for _, m := range f.outbox.Messages() {
		if m.EventType == eventType {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

// withEvents swaps the event authority used by the request engines.
func (f *fixture) withEvents(events EventAuthority) {
	f.svc = NewRequestService(f.requests, f.outbox, events, f.userSvc)
}

func (f *fixture) withRequests(requests repository.RequestRepository) {
	f.svc = NewRequestService(requests, f.outbox, f.eventSvc, f.userSvc)
}

var errUnavailable = fmt.Errorf("%w: connection refused", model.ErrAuthorityUnavailable)

// scriptedEvents wraps an EventAuthority with per-call hooks. afterAdjust
// runs once the delta has been applied and an error from it replaces the reply.
type scriptedEvents struct {
	EventAuthority
	snapshotErr  error
	beforeAdjust func(call int, delta int) error
	afterAdjust  func(call int, delta int) error
	adjustCalls  atomic.Int32
}

func (s *scriptedEvents) Snapshot(ctx context.Context, eventID int64) (model.EventSnapshot, error) {
	if s.snapshotErr != nil {
		return model.EventSnapshot{}, s.snapshotErr
	}
	return s.EventAuthority.Snapshot(ctx, eventID)
}

func (s *scriptedEvents) AdjustConfirmed(ctx context.Context, eventID int64, delta int) (int, error) {
	call := int(s.adjustCalls.Add(1))
	if s.beforeAdjust != nil {
		if err := s.beforeAdjust(call, delta); err != nil {
			return 0, err
		}
	}
	n, err := s.EventAuthority.AdjustConfirmed(ctx, eventID, delta)
	if err == nil && s.afterAdjust != nil {
		if err := s.afterAdjust(call, delta); err != nil {
			return 0, err
		}
	}
	return n, err
}

// unavailableOnRelease fails every negative adjustment.
func unavailableOnRelease(_ int, delta int) error {
	if delta < 0 {
		return errUnavailable
	}
	return nil
}

// replyLostOnReserve applies every positive adjustment and then reports the
// authority as unreachable.
func replyLostOnReserve(_ int, delta int) error {
	if delta > 0 {
		return errUnavailable
	}
	return nil
}

func (f *fixture) reconcileDeltas(t *testing.T) []model.CounterReconcileEvent {
	t.Helper()
	var out []model.CounterReconcileEvent
	for _, m := range f.outboxOfType(model.OutboxCounterReconcile) {
		var ev model.CounterReconcileEvent
		if err := json.Unmarshal(m.Payload, &ev); err != nil {
			t.Fatalf("decode reconcile payload: %v", err)
		}
		out = append(out, ev)
	}
	return out
}

// failingRequests fails writes of the wrapped repository.
type failingRequests struct {
	repository.RequestRepository
	createErr error
	applyErr  error
}

func (r *failingRequests) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	return r.RequestRepository.Create(ctx, req)
}

func (r *failingRequests) ApplyTransitions(
	ctx context.Context, transitions []model.Transition, outbox []model.OutboxMessage,
) ([]model.Request, error) {
	if r.applyErr != nil {
		return nil, r.applyErr
	}
	return r.RequestRepository.ApplyTransitions(ctx, transitions, outbox)
}

var errDiskFull = errors.New("disk full")
