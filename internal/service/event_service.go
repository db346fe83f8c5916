package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

const maxTitleLength = 120

// EventService orchestrates event-related business operations. It is the
// authority for the confirmed counter and satisfies EventAuthority so the
// request engines can run in-process against it.
type EventService struct {
	events repository.EventRepository
	users  UserAuthority
	now    func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events repository.EventRepository, users UserAuthority) *EventService {
	return &EventService{events: events, users: users, now: time.Now}
}

// CreateEvent validates the request and stores a PENDING event owned by userID.
func (s *EventService) CreateEvent(ctx context.Context, userID int64, req model.NewEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrValidation)
	}
	if len(req.Title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title cannot exceed %d characters", model.ErrValidation, maxTitleLength)
	}
	if req.ParticipantLimit < 0 {
		return nil, fmt.Errorf("%w: participantLimit cannot be negative", model.ErrValidation)
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	moderation := true
	if req.RequestModeration != nil {
		moderation = *req.RequestModeration
	}
	event, err := s.events.Create(ctx, &model.Event{
		Title:             req.Title,
		Annotation:        req.Annotation,
		Description:       req.Description,
		InitiatorID:       userID,
		State:             model.EventPending,
		ParticipantLimit:  req.ParticipantLimit,
		RequestModeration: moderation,
		CreatedOn:         s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "event created",
		slog.Int64("event_id", event.ID),
		slog.Int64("initiator_id", userID),
		slog.Int("participant_limit", event.ParticipantLimit),
	)
	return event, nil
}

// GetEvent returns a single event by id.
func (s *EventService) GetEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	return s.events.GetByID(ctx, eventID)
}

// Snapshot returns a value copy of the event's capacity state.
func (s *EventService) Snapshot(ctx context.Context, eventID int64) (model.EventSnapshot, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return model.EventSnapshot{}, err
	}
	return e.Snapshot(), nil
}

// UpdateEventByAdmin applies an admin state action. publishedOn is set only
// on the PENDING→PUBLISHED transition.
func (s *EventService) UpdateEventByAdmin(
	ctx context.Context, eventID int64, req model.UpdateEventAdminRequest,
) (*model.Event, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	next, err := e.State.Apply(req.StateAction)
	if err != nil {
		return nil, err
	}

	var publishedOn *time.Time
	if next == model.EventPublished {
		now := s.now().UTC()
		publishedOn = &now
	}
	updated, err := s.events.UpdateState(ctx, eventID, e.State, next, publishedOn)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "event state changed",
		slog.Int64("event_id", eventID),
		slog.String("action", string(req.StateAction)),
		slog.String("from", string(e.State)),
		slog.String("to", string(next)),
	)
	return updated, nil
}

// AdjustConfirmed applies a counter delta under the store's conditional update.
func (s *EventService) AdjustConfirmed(ctx context.Context, eventID int64, delta int) (int, error) {
	confirmed, err := s.events.AdjustConfirmed(ctx, eventID, delta)
	if err != nil {
		slog.WarnContext(ctx, "confirmed counter adjustment refused",
			slog.Int64("event_id", eventID),
			slog.Int("delta", delta),
			slog.String("error", err.Error()),
		)
		return 0, err
	}
	slog.DebugContext(ctx, "confirmed counter adjusted",
		slog.Int64("event_id", eventID),
		slog.Int("delta", delta),
		slog.Int("confirmed_requests", confirmed),
	)
	return confirmed, nil
}
