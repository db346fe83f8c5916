package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service names accepted by Migrate.
const (
	ServiceEvent   = "event"
	ServiceUser    = "user"
	ServiceRequest = "request"
)

// Migrate applies the idempotent schema owned by service.
func Migrate(ctx context.Context, pool *pgxpool.Pool, service string) error {
	stmts, err := serviceMigrations(service)
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d for %s: %w", i, service, err)
		}
	}
	slog.Info("migrations completed", slog.String("service", service), slog.Int("statements", len(stmts)))
	return nil
}

func serviceMigrations(service string) ([]string, error) {
	switch service {
	case ServiceEvent:
		return []string{
			`CREATE TABLE IF NOT EXISTS events (
				id                 BIGSERIAL PRIMARY KEY,
				title              TEXT        NOT NULL,
				annotation         TEXT        NOT NULL DEFAULT '',
				description        TEXT        NOT NULL DEFAULT '',
				initiator_id       BIGINT      NOT NULL,
				state              TEXT        NOT NULL DEFAULT 'PENDING'
				                   CHECK (state IN ('PENDING', 'PUBLISHED', 'CANCELED')),
				participant_limit  INTEGER     NOT NULL DEFAULT 0 CHECK (participant_limit >= 0),
				request_moderation BOOLEAN     NOT NULL DEFAULT TRUE,
				confirmed_requests INTEGER     NOT NULL DEFAULT 0 CHECK (confirmed_requests >= 0),
				created_on         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				published_on       TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS events_initiator_idx ON events (initiator_id)`,
		}, nil
	case ServiceUser:
		return []string{
			`CREATE TABLE IF NOT EXISTS users (
				id    BIGSERIAL PRIMARY KEY,
				name  TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE
			)`,
		}, nil
	case ServiceRequest:
		return []string{
			`CREATE TABLE IF NOT EXISTS participation_requests (
				id           BIGSERIAL PRIMARY KEY,
				requester_id BIGINT      NOT NULL,
				event_id     BIGINT      NOT NULL,
				status       TEXT        NOT NULL
				             CHECK (status IN ('PENDING', 'CONFIRMED', 'REJECTED', 'CANCELED')),
				created      TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			// At most one live request per user and event.
			`CREATE UNIQUE INDEX IF NOT EXISTS participation_requests_active_uq
				ON participation_requests (requester_id, event_id)
				WHERE status <> 'CANCELED'`,
			`CREATE INDEX IF NOT EXISTS participation_requests_event_idx ON participation_requests (event_id)`,
			`CREATE TABLE IF NOT EXISTS request_outbox (
				id           BIGSERIAL PRIMARY KEY,
				message_id   UUID        NOT NULL UNIQUE,
				aggregate_id TEXT        NOT NULL,
				event_type   TEXT        NOT NULL,
				payload      JSONB       NOT NULL,
				created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				published_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS request_outbox_unpublished_idx
				ON request_outbox (id) WHERE published_at IS NULL`,
		}, nil
	default:
		return nil, fmt.Errorf("unknown service %q", service)
	}
}
