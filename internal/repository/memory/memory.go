// Package memory provides in-process implementations of the repository
// interfaces. Each store guards its state with a single mutex, which gives the
// same per-row atomicity the PostgreSQL implementations get from row locks.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

var (
	_ repository.EventRepository   = (*EventStore)(nil)
	_ repository.UserRepository    = (*UserStore)(nil)
	_ repository.RequestRepository = (*RequestStore)(nil)
	_ repository.OutboxRepository  = (*OutboxStore)(nil)
)

// EventStore keeps events in memory.
type EventStore struct {
	mu     sync.Mutex
	nextID int64
	events map[int64]model.Event
}

// NewEventStore returns an empty EventStore.
func NewEventStore() *EventStore {
	return &EventStore{events: make(map[int64]model.Event)}
}

// Create stores a copy of event under a new id.
func (s *EventStore) Create(_ context.Context, event *model.Event) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e := *event
	e.ID = s.nextID
	e.ConfirmedRequests = 0
	s.events[e.ID] = e
	return &e, nil
}

// Put stores event as-is, replacing any event with the same id.
func (s *EventStore) Put(event model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.ID] = event
	if event.ID > s.nextID {
		s.nextID = event.ID
	}
}

// GetByID returns a copy of the event.
func (s *EventStore) GetByID(_ context.Context, id int64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	return &e, nil
}

// UpdateState performs a compare-and-set on the event state.
func (s *EventStore) UpdateState(
	_ context.Context, id int64, from, to model.EventState, publishedOn *time.Time,
) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	if e.State != from {
		return nil, fmt.Errorf("%w: %s to %s", model.ErrEventStateTransition, from, to)
	}
	e.State = to
	if publishedOn != nil {
		t := *publishedOn
		e.PublishedOn = &t
	}
	s.events[id] = e
	return &e, nil
}

// AdjustConfirmed applies delta within [0, participantLimit].
func (s *EventStore) AdjustConfirmed(_ context.Context, id int64, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return 0, model.ErrEventNotFound
	}
	next := e.ConfirmedRequests + delta
	if next < 0 {
		return 0, model.ErrNegativeConfirmed
	}
	if e.ParticipantLimit != 0 && next > e.ParticipantLimit {
		return 0, fmt.Errorf("%w: %d confirmed of %d, delta %d",
			model.ErrCapacityExceeded, e.ConfirmedRequests, e.ParticipantLimit, delta)
	}
	e.ConfirmedRequests = next
	s.events[id] = e
	return next, nil
}

// UserStore keeps users in memory.
type UserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]model.User
}

// NewUserStore returns an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]model.User)}
}

// Create stores a user; emails are unique.
func (s *UserStore) Create(_ context.Context, params model.CreateUserRequest) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == params.Email {
			return nil, model.ErrEmailTaken
		}
	}
	s.nextID++
	u := model.User{ID: s.nextID, Name: params.Name, Email: params.Email}
	s.users[u.ID] = u
	return &u, nil
}

// GetByID returns a copy of the user.
func (s *UserStore) GetByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &u, nil
}

// List returns all users ordered by id.
func (s *UserStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b model.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

// Delete removes a user.
func (s *UserStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}
