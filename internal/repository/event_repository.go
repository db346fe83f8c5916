package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

const eventColumns = `id, title, annotation, description, initiator_id, state,
	participant_limit, request_moderation, confirmed_requests, created_on, published_on`

// PostgresEventRepository handles persistence for events.
type PostgresEventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository backed by PostgreSQL.
func NewEventRepository(db *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Annotation, &e.Description, &e.InitiatorID, &e.State,
		&e.ParticipantLimit, &e.RequestModeration, &e.ConfirmedRequests, &e.CreatedOn, &e.PublishedOn)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event and returns it with its generated id.
func (r *PostgresEventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	created, err := scanEvent(r.db.QueryRow(ctx,
		`INSERT INTO events (title, annotation, description, initiator_id, state,
			participant_limit, request_moderation, confirmed_requests, created_on)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
		 RETURNING `+eventColumns,
		event.Title, event.Annotation, event.Description, event.InitiatorID, event.State,
		event.ParticipantLimit, event.RequestModeration, event.CreatedOn,
	))
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return created, nil
}

// GetByID returns a single event or model.ErrEventNotFound.
func (r *PostgresEventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// UpdateState performs a compare-and-set on the event state. A nil
// publishedOn leaves the stored value untouched.
func (r *PostgresEventRepository) UpdateState(
	ctx context.Context, id int64, from, to model.EventState, publishedOn *time.Time,
) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`UPDATE events
		 SET state = $3, published_on = COALESCE($4, published_on)
		 WHERE id = $1 AND state = $2
		 RETURNING `+eventColumns,
		id, from, to, publishedOn,
	))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update event state: %w", err)
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s to %s", model.ErrEventStateTransition, from, to)
}

// AdjustConfirmed applies the delta in a single conditional UPDATE so that
// concurrent adjustments on the same row serialise on the row lock and the
// limit check is evaluated against the latest committed value.
func (r *PostgresEventRepository) AdjustConfirmed(ctx context.Context, id int64, delta int) (int, error) {
	if delta == 0 {
		e, err := r.GetByID(ctx, id)
		if err != nil {
			return 0, err
		}
		return e.ConfirmedRequests, nil
	}

	var confirmed int
	err := r.db.QueryRow(ctx,
		`UPDATE events
		 SET confirmed_requests = confirmed_requests + $2
		 WHERE id = $1
		   AND confirmed_requests + $2 >= 0
		   AND (participant_limit = 0 OR confirmed_requests + $2 <= participant_limit)
		 RETURNING confirmed_requests`,
		id, delta,
	).Scan(&confirmed)
	if err == nil {
		return confirmed, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("adjust confirmed requests: %w", err)
	}

	// The guard failed or the row is missing; find out which.
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if e.ConfirmedRequests+delta < 0 {
		return 0, model.ErrNegativeConfirmed
	}
	return 0, fmt.Errorf("%w: %d confirmed of %d, delta %d",
		model.ErrCapacityExceeded, e.ConfirmedRequests, e.ParticipantLimit, delta)
}
