package service

import (
	"context"
	"log/slog"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

// StreamPublisher delivers an outbox message to the message stream.
type StreamPublisher interface {
	Publish(ctx context.Context, msg model.OutboxMessage) error
}

// OutboxService relays request-service domain events from the outbox table.
type OutboxService struct {
	outbox    repository.OutboxRepository
	publisher StreamPublisher
}

// NewOutboxService constructs an OutboxService.
func NewOutboxService(outbox repository.OutboxRepository, publisher StreamPublisher) *OutboxService {
	return &OutboxService{outbox: outbox, publisher: publisher}
}

// ProcessUnpublishedEvents publishes up to limit pending messages in id order
// and returns how many were published. A message that fails to publish stays
// pending and is retried on the next poll; delivery is at-least-once.
func (s *OutboxService) ProcessUnpublishedEvents(ctx context.Context, limit int) (int, error) {
	msgs, err := s.outbox.GetUnpublished(ctx, limit)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, msg := range msgs {
		if err := s.publisher.Publish(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "failed to publish outbox message",
				slog.Int64("id", msg.ID),
				slog.String("event_type", string(msg.EventType)),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := s.outbox.MarkAsPublished(ctx, msg.ID); err != nil {
			slog.ErrorContext(ctx, "failed to mark outbox message as published",
				slog.Int64("id", msg.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		published++
		slog.DebugContext(ctx, "published outbox message",
			slog.Int64("id", msg.ID),
			slog.String("message_id", msg.MessageID),
			slog.String("event_type", string(msg.EventType)),
		)
	}
	return published, nil
}
