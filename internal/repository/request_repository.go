package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

const requestColumns = `id, requester_id, event_id, status, created`

// PostgresRequestRepository handles persistence for participation requests.
type PostgresRequestRepository struct {
	db *pgxpool.Pool
}

// NewRequestRepository constructs a RequestRepository backed by PostgreSQL.
func NewRequestRepository(db *pgxpool.Pool) *PostgresRequestRepository {
	return &PostgresRequestRepository{db: db}
}

func scanRequest(row pgx.Row) (*model.Request, error) {
	var req model.Request
	if err := row.Scan(&req.ID, &req.RequesterID, &req.EventID, &req.Status, &req.Created); err != nil {
		return nil, err
	}
	return &req, nil
}

func collectRequests(rows pgx.Rows) ([]model.Request, error) {
	defer rows.Close()

	var reqs []model.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

// Create inserts a request. The partial unique index on live requests turns
// a concurrent duplicate into model.ErrDuplicateRequest.
func (r *PostgresRequestRepository) Create(ctx context.Context, req *model.Request) (*model.Request, error) {
	created, err := scanRequest(r.db.QueryRow(ctx,
		`INSERT INTO participation_requests (requester_id, event_id, status, created)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+requestColumns,
		req.RequesterID, req.EventID, req.Status, req.Created,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrDuplicateRequest
		}
		return nil, fmt.Errorf("insert request: %w", err)
	}
	return created, nil
}

// GetByID returns a single request or model.ErrRequestNotFound.
func (r *PostgresRequestRepository) GetByID(ctx context.Context, id int64) (*model.Request, error) {
	req, err := scanRequest(r.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM participation_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// ListByIDs returns the requests that exist among ids.
func (r *PostgresRequestRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.Request, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+requestColumns+` FROM participation_requests WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("list requests by id: %w", err)
	}
	return collectRequests(rows)
}

// ListByRequester returns every request made by a user.
func (r *PostgresRequestRepository) ListByRequester(ctx context.Context, requesterID int64) ([]model.Request, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+requestColumns+` FROM participation_requests WHERE requester_id = $1 ORDER BY id`,
		requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests by requester: %w", err)
	}
	return collectRequests(rows)
}

// ListByEvent returns every request made for an event.
func (r *PostgresRequestRepository) ListByEvent(ctx context.Context, eventID int64) ([]model.Request, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+requestColumns+` FROM participation_requests WHERE event_id = $1 ORDER BY id`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("list requests by event: %w", err)
	}
	return collectRequests(rows)
}

// HasActive reports whether the user already holds a non-canceled request.
func (r *PostgresRequestRepository) HasActive(ctx context.Context, requesterID, eventID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM participation_requests
			WHERE requester_id = $1 AND event_id = $2 AND status <> $3
		)`,
		requesterID, eventID, model.RequestCanceled,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return exists, nil
}

// ApplyTransitions runs every compare-and-set update and outbox insert inside
// one transaction. Each UPDATE takes the row lock, so two callers racing on
// the same request cannot both observe the prior status.
func (r *PostgresRequestRepository) ApplyTransitions(
	ctx context.Context, transitions []model.Transition, outbox []model.OutboxMessage,
) (updated []model.Request, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	updated = make([]model.Request, 0, len(transitions))
	for _, t := range transitions {
		var req *model.Request
		req, err = scanRequest(tx.QueryRow(ctx,
			`UPDATE participation_requests SET status = $3
			 WHERE id = $1 AND status = $2
			 RETURNING `+requestColumns,
			t.RequestID, t.From, t.To,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = fmt.Errorf("%w: request %d is no longer %s", model.ErrStatusChanged, t.RequestID, t.From)
				return nil, err
			}
			err = fmt.Errorf("update request %d: %w", t.RequestID, err)
			return nil, err
		}
		updated = append(updated, *req)
	}

	for _, msg := range outbox {
		if err = insertOutbox(ctx, tx, &msg); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return updated, nil
}
