package sessions

import "errors"

var (
	// ErrNotFound is returned by stores when a session does not exist.
	ErrNotFound = errors.New("sessions: not found")

	// ErrInvalidInput marks structurally invalid input (missing images,
	// empty ids).
	ErrInvalidInput = errors.New("sessions: invalid input")

	// ErrSessionFull is returned by the atomic append when the session
	// already holds the maximum number of image sets. A concurrent append
	// can surface it even after an allowed decision.
	ErrSessionFull = errors.New("sessions: session full")

	// ErrSessionNotInProgress is returned by the atomic append when the
	// session was finished between the decision and the write.
	ErrSessionNotInProgress = errors.New("sessions: session not in progress")
)
