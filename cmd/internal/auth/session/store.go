package session

import (
	"context"
	"time"
)

// Row mirrors the contour.token_sessions row.
type Row struct {
	ID                  string
	UserID              string
	RefreshTokenHash    string
	CreatedAt           time.Time
	LastUsedAt          *time.Time
	ExpiresAt           time.Time
	RevokedAt           *time.Time
	ReplacedBySessionID *string
}

// RotateResult is the outcome of an atomic refresh rotation.
type RotateResult struct {
	NewSessionID string
	UserID       string
	ExpiresAt    time.Time
}

// Store abstracts persistence for token-session state.
//
// Rotate must be atomic: implementations serialize per refresh hash
// (row lock or mutex) so two concurrent refreshes cannot both succeed.
type Store interface {
	// Create inserts a new token session and returns its id.
	Create(ctx context.Context, now time.Time, userID, refreshHash string, expiresAt time.Time) (string, error)

	// GetByID loads a session row; ErrSessionNotFound when absent.
	GetByID(ctx context.Context, sessionID string) (Row, error)

	// Rotate atomically exchanges a live refresh token for a new session:
	//   - unknown hash, or hash not owned by userID -> ErrSessionNotFound
	//   - expired session -> ErrSessionExpired
	//   - revoked-and-replaced session -> revoke all the user's sessions,
	//     then ErrRefreshReuseDetected
	//   - revoked session -> ErrSessionRevoked
	//   - otherwise create the replacement, mark the old row rotated, and
	//     return the new session.
	Rotate(ctx context.Context, now time.Time, userID, refreshHash, newRefreshHash string, newExpiresAt time.Time) (RotateResult, error)

	// Touch updates last_used_at (best effort).
	Touch(ctx context.Context, now time.Time, sessionID string) error

	// Revoke revokes a single session.
	Revoke(ctx context.Context, now time.Time, sessionID, reason string) error

	// RevokeAll revokes all sessions for a user.
	RevokeAll(ctx context.Context, now time.Time, userID, reason string) error
}
