// Package messaging publishes request-service domain events to Redis Streams.
package messaging

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// NewRedisClient connects to a single Redis node.
func NewRedisClient(addr string) (rueidis.Client, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis %s: %w", addr, err)
	}
	return client, nil
}

// RedisStreamPublisher appends outbox messages to a stream with XADD.
type RedisStreamPublisher struct {
	client rueidis.Client
	stream string
}

// NewRedisStreamPublisher constructs a publisher writing to stream.
func NewRedisStreamPublisher(client rueidis.Client, stream string) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream}
}

// Publish appends msg to the stream. Consumers deduplicate on message_id.
func (p *RedisStreamPublisher) Publish(ctx context.Context, msg model.OutboxMessage) error {
	cmd := p.client.B().Xadd().Key(p.stream).Id("*").FieldValue()
	for _, f := range streamFields(msg) {
		cmd = cmd.FieldValue(f[0], f[1])
	}
	if err := p.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// streamFields lists the stream entry's field/value pairs in a fixed order.
func streamFields(msg model.OutboxMessage) [][2]string {
	return [][2]string{
		{"message_id", msg.MessageID},
		{"outbox_id", strconv.FormatInt(msg.ID, 10)},
		{"event_type", string(msg.EventType)},
		{"aggregate_id", msg.AggregateID},
		{"payload", string(msg.Payload)},
	}
}
