package session

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// InMemoryStore is a dev/test fallback when Postgres is not configured.
// A single mutex serializes rotation, matching the row-lock semantics of the
// Postgres store.
type InMemoryStore struct {
	mu     sync.Mutex
	byID   map[string]*Row
	byHash map[string]string // refresh hash -> session id
}

// NewInMemoryStore constructs an empty in-memory token-session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[string]*Row),
		byHash: make(map[string]string),
	}
}

// Create inserts a new token-session row.
func (s *InMemoryStore) Create(ctx context.Context, now time.Time, userID, refreshHash string, expiresAt time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := ulid.Make().String()
	last := now
	s.byID[id] = &Row{
		ID:               id,
		UserID:           userID,
		RefreshTokenHash: refreshHash,
		CreatedAt:        now,
		LastUsedAt:       &last,
		ExpiresAt:        expiresAt,
	}
	s.byHash[refreshHash] = id
	return id, nil
}

// GetByID loads a session row by id.
func (s *InMemoryStore) GetByID(ctx context.Context, sessionID string) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[sessionID]
	if !ok {
		return Row{}, ErrSessionNotFound
	}
	return *row, nil
}

// Rotate performs refresh rotation under the store mutex.
func (s *InMemoryStore) Rotate(ctx context.Context, now time.Time, userID, refreshHash, newRefreshHash string, newExpiresAt time.Time) (RotateResult, error) {
	if err := ctx.Err(); err != nil {
		return RotateResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byHash[refreshHash]
	if !ok {
		return RotateResult{}, ErrSessionNotFound
	}
	row := s.byID[id]

	if row.UserID != userID {
		return RotateResult{}, ErrSessionNotFound
	}
	if !row.ExpiresAt.After(now) {
		return RotateResult{}, ErrSessionExpired
	}
	if row.RevokedAt != nil && row.ReplacedBySessionID != nil {
		for _, r := range s.byID {
			if r.UserID == row.UserID && r.RevokedAt == nil {
				at := now
				r.RevokedAt = &at
			}
		}
		return RotateResult{}, ErrRefreshReuseDetected
	}
	if row.RevokedAt != nil {
		return RotateResult{}, ErrSessionRevoked
	}

	newID := ulid.Make().String()
	last := now
	s.byID[newID] = &Row{
		ID:               newID,
		UserID:           row.UserID,
		RefreshTokenHash: newRefreshHash,
		CreatedAt:        now,
		LastUsedAt:       &last,
		ExpiresAt:        newExpiresAt,
	}
	s.byHash[newRefreshHash] = newID

	at := now
	row.RevokedAt = &at
	row.LastUsedAt = &at
	row.ReplacedBySessionID = &newID

	return RotateResult{NewSessionID: newID, UserID: row.UserID, ExpiresAt: newExpiresAt}, nil
}

// Touch updates last_used_at for a session.
func (s *InMemoryStore) Touch(ctx context.Context, now time.Time, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.byID[sessionID]; ok {
		at := now
		row.LastUsedAt = &at
	}
	return nil
}

// Revoke revokes a single session.
func (s *InMemoryStore) Revoke(ctx context.Context, now time.Time, sessionID, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.byID[sessionID]; ok && row.RevokedAt == nil {
		at := now
		row.RevokedAt = &at
	}
	return nil
}

// RevokeAll revokes all sessions for a user.
func (s *InMemoryStore) RevokeAll(ctx context.Context, now time.Time, userID, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.byID {
		if row.UserID == userID && row.RevokedAt == nil {
			at := now
			row.RevokedAt = &at
		}
	}
	return nil
}
