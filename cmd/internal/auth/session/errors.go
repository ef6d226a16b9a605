package session

import "errors"

var (
	// ErrInvalidToken is returned when an access token fails verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrAccessNotExpired is returned when refresh is attempted while the
	// presented access token is still valid.
	ErrAccessNotExpired = errors.New("access token not expired yet")

	// ErrSessionNotFound is returned when a refresh token matches no session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when the session is expired.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionRevoked is returned when the session has been revoked.
	ErrSessionRevoked = errors.New("session revoked")

	// ErrRefreshReuseDetected is returned when a rotated refresh token is
	// presented again. The store revokes all sessions for the user before
	// returning this.
	ErrRefreshReuseDetected = errors.New("refresh token reuse detected")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)
