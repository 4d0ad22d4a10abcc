// Error definitions for the learning loop. These work with the error
// classification in error_class.go.
package agent

import "errors"

var (
	// ErrContentUnavailable indicates retrieval returned too few chunks to
	// proceed. The session stays in its current state.
	ErrContentUnavailable = errors.New("content unavailable")

	// ErrInvalidTransition indicates advance() was called from a state with
	// no outgoing edge for the attempted transition. Caller bug, not retried.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidArgument indicates a caller-supplied parameter is out of
	// range, such as requesting fewer than one question.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSessionNotFound indicates the session ID is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNetworkError indicates a network failure calling a capability.
	ErrNetworkError = errors.New("network error")

	// ErrServiceUnavailable indicates the upstream service is temporarily
	// unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrJobTimeout indicates a long-running job exceeded its overall
	// elapsed-time budget.
	ErrJobTimeout = errors.New("job timeout")
)
