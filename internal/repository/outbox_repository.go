package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertOutbox(ctx context.Context, q querier, msg *model.OutboxMessage) error {
	err := q.QueryRow(ctx,
		`INSERT INTO request_outbox (message_id, aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		msg.MessageID, msg.AggregateID, msg.EventType, msg.Payload, msg.CreatedAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// PostgresOutboxRepository handles persistence for outbox messages.
type PostgresOutboxRepository struct {
	db *pgxpool.Pool
}

// NewOutboxRepository constructs an OutboxRepository backed by PostgreSQL.
func NewOutboxRepository(db *pgxpool.Pool) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{db: db}
}

// Create records a message outside of any request transaction.
func (r *PostgresOutboxRepository) Create(ctx context.Context, msg model.OutboxMessage) (*model.OutboxMessage, error) {
	if err := insertOutbox(ctx, r.db, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetUnpublished returns the oldest unpublished messages, up to limit.
func (r *PostgresOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, message_id, aggregate_id, event_type, payload, created_at, published_at
		 FROM request_outbox
		 WHERE published_at IS NULL
		 ORDER BY id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list unpublished outbox messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.OutboxMessage
	for rows.Next() {
		var m model.OutboxMessage
		if err := rows.Scan(&m.ID, &m.MessageID, &m.AggregateID, &m.EventType,
			&m.Payload, &m.CreatedAt, &m.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkAsPublished stamps a message as relayed.
func (r *PostgresOutboxRepository) MarkAsPublished(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE request_outbox SET published_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox message %d published: %w", id, err)
	}
	return nil
}
