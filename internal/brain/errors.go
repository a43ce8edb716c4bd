package brain

import (
	"context"
	"errors"
)

var (
	// ErrBackendUnavailable is returned without contacting the backend while
	// the circuit breaker is open.
	ErrBackendUnavailable = errors.New("model backend unavailable")
	// ErrRateLimited marks upstream throttling; retryable.
	ErrRateLimited = errors.New("model backend rate limited")
	// ErrBadRequest marks a malformed request; never retried.
	ErrBadRequest = errors.New("malformed model request")
	// ErrBackendAuth marks an authentication failure with the backend itself;
	// never retried.
	ErrBackendAuth = errors.New("model backend authentication failed")
)

// IsRetryable is the retry predicate shared by all adapters. Timeouts and
// throttling are retryable; malformed requests, backend auth failures, an
// open breaker, and caller cancellation are not.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrBackendAuth),
		errors.Is(err, ErrBackendUnavailable),
		errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		// Unclassified transport errors (connection resets, 5xx bodies) are
		// assumed transient.
		return true
	}
}
