package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// InMemoryStore is a dev/test fallback when Postgres is not configured. The
// mutex serializes every operation, which gives the same atomicity the
// Postgres store gets from row locks.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	sets     map[string][]BodyImageSet
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]Session),
		sets:     make(map[string][]BodyImageSet),
	}
}

// Seed inserts a session in an arbitrary state. Test and dev-fixture helper.
func (s *InMemoryStore) Seed(sess Session, sets ...ImageSet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess
	for i, is := range sets {
		s.sets[sess.ID] = append(s.sets[sess.ID], BodyImageSet{
			ID:        ulid.Make().String(),
			SessionID: sess.ID,
			Images:    is,
			CreatedAt: sess.CreatedAt.Add(time.Duration(i) * time.Minute),
		})
	}
}

func (s *InMemoryStore) GetByID(ctx context.Context, sessionID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *InMemoryStore) ListByClient(ctx context.Context, clientID string) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked(clientID, false), nil
}

func (s *InMemoryStore) ListInProgressByClient(ctx context.Context, clientID string) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked(clientID, true), nil
}

func (s *InMemoryStore) listLocked(clientID string, inProgressOnly bool) []Session {
	var out []Session
	for _, sess := range s.sessions {
		if sess.ClientID != clientID {
			continue
		}
		if inProgressOnly && !sess.InProgress() {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *InMemoryStore) CountImageSets(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sets[sessionID]), nil
}

func (s *InMemoryStore) CreateWithFirstImageSet(ctx context.Context, in CreateInput) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if in.ClientID == "" || !in.Images.Complete() {
		return Session{}, ErrInvalidInput
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := Session{
		ID:        ulid.Make().String(),
		ClientID:  in.ClientID,
		Status:    StatusInProgress,
		CreatedAt: now,
	}
	s.sessions[sess.ID] = sess
	s.sets[sess.ID] = []BodyImageSet{{
		ID:        ulid.Make().String(),
		SessionID: sess.ID,
		Images:    in.Images,
		CreatedAt: now,
	}}
	return sess, nil
}

func (s *InMemoryStore) AppendImageSet(ctx context.Context, in AppendInput) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if !in.Images.Complete() {
		return Session{}, ErrInvalidInput
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[in.SessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !sess.InProgress() {
		return Session{}, ErrSessionNotInProgress
	}
	if len(s.sets[sess.ID]) >= MaxBodyImageSets {
		return Session{}, ErrSessionFull
	}

	s.sets[sess.ID] = append(s.sets[sess.ID], BodyImageSet{
		ID:        ulid.Make().String(),
		SessionID: sess.ID,
		Images:    in.Images,
		CreatedAt: now,
	})
	return sess, nil
}

func (s *InMemoryStore) Finish(ctx context.Context, sessionID string, now time.Time) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	sess.Status = StatusFinished
	sess.FinishedAt = &now
	s.sessions[sessionID] = sess
	return sess, nil
}
