package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore implements Store using PostgreSQL (contour.token_sessions).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed token-session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a new token-session row and returns its ULID.
func (s *PostgresStore) Create(ctx context.Context, now time.Time, userID, refreshHash string, expiresAt time.Time) (string, error) {
	id := ulid.Make().String()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO contour.token_sessions (
			id, user_id, refresh_token_hash,
			created_at, last_used_at, expires_at,
			revoked_at, replaced_by_session_id, revocation_reason
		) VALUES ($1, $2, $3, $4, $4, $5, NULL, NULL, NULL)
	`, id, userID, refreshHash, now, expiresAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetByID loads a token-session row by id.
func (s *PostgresStore) GetByID(ctx context.Context, sessionID string) (Row, error) {
	var row Row

	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, refresh_token_hash,
		       created_at, last_used_at, expires_at,
		       revoked_at, replaced_by_session_id
		FROM contour.token_sessions
		WHERE id = $1
	`, sessionID).Scan(
		&row.ID,
		&row.UserID,
		&row.RefreshTokenHash,
		&row.CreatedAt,
		&row.LastUsedAt,
		&row.ExpiresAt,
		&row.RevokedAt,
		&row.ReplacedBySessionID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrSessionNotFound
	}
	if err != nil {
		return Row{}, err
	}
	return row, nil
}

// Rotate performs refresh rotation inside a single transaction.
//
// The session row is locked by refresh hash (SELECT ... FOR UPDATE) so two
// concurrent refreshes serialize; the loser sees the rotated row and is
// treated as reuse.
func (s *PostgresStore) Rotate(ctx context.Context, now time.Time, userID, refreshHash, newRefreshHash string, newExpiresAt time.Time) (RotateResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return RotateResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var row Row
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, expires_at, revoked_at, replaced_by_session_id
		FROM contour.token_sessions
		WHERE refresh_token_hash = $1
		FOR UPDATE
	`, refreshHash).Scan(&row.ID, &row.UserID, &row.ExpiresAt, &row.RevokedAt, &row.ReplacedBySessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return RotateResult{}, ErrSessionNotFound
	}
	if err != nil {
		return RotateResult{}, err
	}

	// Indistinguishable from an unknown token to prevent probing.
	if row.UserID != userID {
		return RotateResult{}, ErrSessionNotFound
	}

	if !row.ExpiresAt.After(now) {
		return RotateResult{}, ErrSessionExpired
	}

	// Reuse detection: a rotated refresh token presented again is a security
	// incident; revoke everything this user holds.
	if row.RevokedAt != nil && row.ReplacedBySessionID != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE contour.token_sessions
			SET revoked_at = $2, revocation_reason = 'refresh_reuse'
			WHERE user_id = $1 AND revoked_at IS NULL
		`, row.UserID, now); err != nil {
			return RotateResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return RotateResult{}, err
		}
		return RotateResult{}, ErrRefreshReuseDetected
	}

	if row.RevokedAt != nil {
		return RotateResult{}, ErrSessionRevoked
	}

	newID := ulid.Make().String()
	if _, err := tx.Exec(ctx, `
		INSERT INTO contour.token_sessions (
			id, user_id, refresh_token_hash,
			created_at, last_used_at, expires_at,
			revoked_at, replaced_by_session_id, revocation_reason
		) VALUES ($1, $2, $3, $4, $4, $5, NULL, NULL, NULL)
	`, newID, row.UserID, newRefreshHash, now, newExpiresAt); err != nil {
		return RotateResult{}, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE contour.token_sessions
		SET revoked_at = $2, last_used_at = $2,
		    replaced_by_session_id = $3, revocation_reason = 'rotated'
		WHERE id = $1
	`, row.ID, now, newID); err != nil {
		return RotateResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return RotateResult{}, err
	}

	return RotateResult{NewSessionID: newID, UserID: row.UserID, ExpiresAt: newExpiresAt}, nil
}

// Touch updates last_used_at for a session.
func (s *PostgresStore) Touch(ctx context.Context, now time.Time, sessionID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE contour.token_sessions SET last_used_at = $2 WHERE id = $1
	`, sessionID, now)
	return err
}

// Revoke revokes a single session.
func (s *PostgresStore) Revoke(ctx context.Context, now time.Time, sessionID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE contour.token_sessions
		SET revoked_at = $2, revocation_reason = $3
		WHERE id = $1 AND revoked_at IS NULL
	`, sessionID, now, reason)
	return err
}

// RevokeAll revokes all sessions for a user.
func (s *PostgresStore) RevokeAll(ctx context.Context, now time.Time, userID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE contour.token_sessions
		SET revoked_at = $2, revocation_reason = $3
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID, now, reason)
	return err
}
