package model

import "time"

// RequestStatus is the status of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

// requestTransitions is the full status machine. REJECTED and CANCELED are
// terminal and nothing re-enters PENDING.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestConfirmed, RequestRejected, RequestCanceled},
	RequestConfirmed: {RequestCanceled},
	RequestRejected:  nil,
	RequestCanceled:  nil,
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	_, ok := requestTransitions[s]
	return ok
}

// CanTransition reports whether a request may move from s to next.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Request is a user's request to participate in an event.
type Request struct {
	ID          int64         `json:"id"`
	RequesterID int64         `json:"requester"`
	EventID     int64         `json:"event"`
	Status      RequestStatus `json:"status"`
	Created     time.Time     `json:"created"`
}

// Transition is a compare-and-set status change for one request: it applies
// only while the stored status still equals From.
type Transition struct {
	RequestID int64
	From      RequestStatus
	To        RequestStatus
}

// StatusUpdateRequest is the payload of a bulk approve/reject call.
type StatusUpdateRequest struct {
	RequestIDs []int64       `json:"requestIds"`
	Status     RequestStatus `json:"status"`
}

// StatusUpdateResult partitions the outcome of a bulk call. Both lists keep
// the order in which ids were supplied.
type StatusUpdateResult struct {
	ConfirmedRequests []Request `json:"confirmedRequests"`
	RejectedRequests  []Request `json:"rejectedRequests"`
}
