package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// RequestStore keeps participation requests in memory. Outbox messages
// written by ApplyTransitions land in the attached OutboxStore under the same
// lock, mirroring the single PostgreSQL transaction.
type RequestStore struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]model.Request
	outbox   *OutboxStore
}

// NewRequestStore returns an empty RequestStore writing to outbox.
func NewRequestStore(outbox *OutboxStore) *RequestStore {
	return &RequestStore{requests: make(map[int64]model.Request), outbox: outbox}
}

func sortByID(reqs []model.Request) {
	slices.SortFunc(reqs, func(a, b model.Request) int { return cmp.Compare(a.ID, b.ID) })
}

func (s *RequestStore) hasActiveLocked(requesterID, eventID int64) bool {
	for _, r := range s.requests {
		if r.RequesterID == requesterID && r.EventID == eventID && r.Status != model.RequestCanceled {
			return true
		}
	}
	return false
}

// Create stores a request under a new id.
func (s *RequestStore) Create(_ context.Context, req *model.Request) (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Status != model.RequestCanceled && s.hasActiveLocked(req.RequesterID, req.EventID) {
		return nil, model.ErrDuplicateRequest
	}
	s.nextID++
	r := *req
	r.ID = s.nextID
	s.requests[r.ID] = r
	return &r, nil
}

// GetByID returns a copy of the request.
func (s *RequestStore) GetByID(_ context.Context, id int64) (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, model.ErrRequestNotFound
	}
	return &r, nil
}

// ListByIDs returns the requests that exist among ids.
func (s *RequestStore) ListByIDs(_ context.Context, ids []int64) ([]model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reqs []model.Request
	for _, id := range ids {
		if r, ok := s.requests[id]; ok {
			reqs = append(reqs, r)
		}
	}
	return reqs, nil
}

func (s *RequestStore) filter(keep func(model.Request) bool) []model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reqs []model.Request
	for _, r := range s.requests {
		if keep(r) {
			reqs = append(reqs, r)
		}
	}
	sortByID(reqs)
	return reqs
}

// ListByRequester returns every request made by a user.
func (s *RequestStore) ListByRequester(_ context.Context, requesterID int64) ([]model.Request, error) {
	return s.filter(func(r model.Request) bool { return r.RequesterID == requesterID }), nil
}

// ListByEvent returns every request made for an event.
func (s *RequestStore) ListByEvent(_ context.Context, eventID int64) ([]model.Request, error) {
	return s.filter(func(r model.Request) bool { return r.EventID == eventID }), nil
}

// HasActive reports whether the user already holds a non-canceled request.
func (s *RequestStore) HasActive(_ context.Context, requesterID, eventID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hasActiveLocked(requesterID, eventID), nil
}

// ApplyTransitions applies all changes or none.
func (s *RequestStore) ApplyTransitions(
	_ context.Context, transitions []model.Transition, outbox []model.OutboxMessage,
) ([]model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range transitions {
		r, ok := s.requests[t.RequestID]
		if !ok {
			return nil, fmt.Errorf("%w: request %d no longer exists", model.ErrStatusChanged, t.RequestID)
		}
		if r.Status != t.From {
			return nil, fmt.Errorf("%w: request %d is no longer %s", model.ErrStatusChanged, t.RequestID, t.From)
		}
	}

	updated := make([]model.Request, 0, len(transitions))
	for _, t := range transitions {
		r := s.requests[t.RequestID]
		r.Status = t.To
		s.requests[t.RequestID] = r
		updated = append(updated, r)
	}
	for _, msg := range outbox {
		s.outbox.add(msg)
	}
	return updated, nil
}

// CountByStatus returns how many requests for eventID have status.
func (s *RequestStore) CountByStatus(eventID int64, status model.RequestStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.requests {
		if r.EventID == eventID && r.Status == status {
			n++
		}
	}
	return n
}

// Len returns the number of stored requests.
func (s *RequestStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

// OutboxStore keeps outbox messages in memory.
type OutboxStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []model.OutboxMessage
}

// NewOutboxStore returns an empty OutboxStore.
func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

func (s *OutboxStore) add(msg model.OutboxMessage) model.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	msg.ID = s.nextID
	s.messages = append(s.messages, msg)
	return msg
}

// Create records a message.
func (s *OutboxStore) Create(_ context.Context, msg model.OutboxMessage) (*model.OutboxMessage, error) {
	stored := s.add(msg)
	return &stored, nil
}

// GetUnpublished returns the oldest unpublished messages, up to limit.
func (s *OutboxStore) GetUnpublished(_ context.Context, limit int) ([]model.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var msgs []model.OutboxMessage
	for _, m := range s.messages {
		if len(msgs) == limit {
			break
		}
		if m.PublishedAt == nil {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

// MarkAsPublished stamps a message as relayed.
func (s *OutboxStore) MarkAsPublished(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.messages {
		if s.messages[i].ID == id {
			now := time.Now().UTC()
			s.messages[i].PublishedAt = &now
			return nil
		}
	}
	return fmt.Errorf("outbox message %d: %w", id, model.ErrNotFound)
}

// Messages returns a copy of every stored message.
func (s *OutboxStore) Messages() []model.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.messages)
}
