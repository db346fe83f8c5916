// Package remote implements the Request Authority's synchronous clients for
// the event and user authorities over HTTP/JSON.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

const maxErrorBody = 4 << 10

type client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) client {
	return client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
	}
}

// do sends a JSON request and decodes a 2xx body into out. Transport
// failures, timeouts and 5xx answers become model.ErrAuthorityUnavailable;
// 4xx answers map back onto the domain error kinds.
func (c client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", model.ErrAuthorityUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s %s: %v", model.ErrAuthorityUnavailable, method, path, err)
		}
		return nil
	}
	return statusError(resp)
}

func statusError(resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)
	var envelope model.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		msg = envelope.Error
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", model.ErrNotFound, msg)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", model.ErrConflict, msg)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", model.ErrValidation, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", model.ErrAuthorityUnavailable, resp.StatusCode, msg)
	}
}

// EventClient talks to the event service.
type EventClient struct {
	client
}

// NewEventClient constructs an EventClient; every call is bounded by timeout.
func NewEventClient(baseURL string, timeout time.Duration) *EventClient {
	return &EventClient{client: newClient(baseURL, timeout)}
}

// Snapshot fetches the capacity state of an event.
func (c *EventClient) Snapshot(ctx context.Context, eventID int64) (model.EventSnapshot, error) {
	var snap model.EventSnapshot
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/internal/events/%d/snapshot", eventID), nil, &snap)
	if err != nil {
		return model.EventSnapshot{}, err
	}
	return snap, nil
}

// AdjustConfirmed asks the event service to apply delta to its counter.
func (c *EventClient) AdjustConfirmed(ctx context.Context, eventID int64, delta int) (int, error) {
	var resp model.AdjustConfirmedResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/internal/events/%d/confirmed", eventID),
		model.AdjustConfirmedRequest{Delta: delta}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ConfirmedRequests, nil
}

// UserClient talks to the user service.
type UserClient struct {
	client
}

// NewUserClient constructs a UserClient; every call is bounded by timeout.
func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{client: newClient(baseURL, timeout)}
}

// GetUser fetches a user by id.
func (c *UserClient) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/admin/users/%d", userID), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
