package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so callers can
// classify a failure with errors.Is without knowing the specific condition.
var (
	// ErrNotFound is returned when a referenced event, user or request does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a business rule is violated given current state.
	ErrConflict = errors.New("conflict")
	// ErrValidation is returned for structurally invalid input or a caller
	// acting on something it does not own.
	ErrValidation = errors.New("validation failed")
	// ErrAuthorityUnavailable is returned when a remote authority could not be
	// reached. It is an infrastructure fault, never a business rejection.
	ErrAuthorityUnavailable = errors.New("authority unavailable")
)

// Named conditions.
var (
	ErrEventNotFound   = fmt.Errorf("%w: event", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
	ErrRequestNotFound = fmt.Errorf("%w: request", ErrNotFound)

	ErrEventNotPublished    = fmt.Errorf("%w: event not published", ErrConflict)
	ErrOwnEvent             = fmt.Errorf("%w: cannot request own event", ErrConflict)
	ErrDuplicateRequest     = fmt.Errorf("%w: duplicate request", ErrConflict)
	ErrEventFull            = fmt.Errorf("%w: event full", ErrConflict)
	ErrCapacityExceeded     = fmt.Errorf("%w: capacity exceeded", ErrConflict)
	ErrCapacityExhausted    = fmt.Errorf("%w: participant limit reached", ErrConflict)
	ErrRejectConfirmed      = fmt.Errorf("%w: cannot reject a confirmed request", ErrConflict)
	ErrRequestsNotPending   = fmt.Errorf("%w: all requests must be pending", ErrConflict)
	ErrStatusAlreadySet     = fmt.Errorf("%w: status already set", ErrConflict)
	ErrStatusChanged        = fmt.Errorf("%w: request status changed concurrently", ErrConflict)
	ErrEventStateTransition = fmt.Errorf("%w: event state cannot change", ErrConflict)
	ErrEmailTaken           = fmt.Errorf("%w: email already exists", ErrConflict)
	ErrNegativeConfirmed    = fmt.Errorf("%w: confirmed requests cannot go below zero", ErrConflict)

	ErrNotRequester        = fmt.Errorf("%w: only the requester can cancel the request", ErrValidation)
	ErrNotInitiator        = fmt.Errorf("%w: caller is not the event initiator", ErrValidation)
	ErrForeignRequests     = fmt.Errorf("%w: requests do not belong to event", ErrValidation)
	ErrInvalidTargetStatus = fmt.Errorf("%w: status must be CONFIRMED or REJECTED", ErrValidation)
	ErrEmptyRequestIDs     = fmt.Errorf("%w: requestIds is required", ErrValidation)
	ErrDuplicateRequestIDs = fmt.Errorf("%w: requestIds contains duplicates", ErrValidation)
	ErrInvalidStateAction  = fmt.Errorf("%w: unknown state action", ErrValidation)
)
