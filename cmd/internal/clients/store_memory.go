package clients

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// InMemoryStore is a dev/test fallback when Postgres is not configured.
type InMemoryStore struct {
	mu      sync.Mutex
	clients map[string]Client
}

// NewInMemoryStore constructs an empty in-memory client store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{clients: make(map[string]Client)}
}

// GetByID loads a client by id.
func (s *InMemoryStore) GetByID(ctx context.Context, clientID string) (Client, error) {
	if err := ctx.Err(); err != nil {
		return Client{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[clientID]
	if !ok {
		return Client{}, ErrNotFound
	}
	return c, nil
}

// ListByAccount returns one page of an account's clients, newest first.
func (s *InMemoryStore) ListByAccount(ctx context.Context, accountID string, filter ListFilter, page Page) ([]Client, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(filter.Term))

	var matched []Client
	for _, c := range s.clients {
		if c.AccountID != accountID {
			continue
		}
		if term != "" && !matchesTerm(c, term) {
			continue
		}
		matched = append(matched, c)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := page.Offset()
	if start >= total {
		return nil, total, nil
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matchesTerm(c Client, term string) bool {
	return strings.Contains(strings.ToLower(c.FirstName), term) ||
		strings.Contains(strings.ToLower(c.LastName), term) ||
		strings.Contains(strings.ToLower(c.ClientNumber), term)
}

// Create inserts a new client record.
func (s *InMemoryStore) Create(ctx context.Context, in CreateInput) (Client, error) {
	if err := ctx.Err(); err != nil {
		return Client{}, err
	}
	if in.AccountID == "" {
		return Client{}, ErrInvalidInput
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := Client{
		ID:           ulid.Make().String(),
		AccountID:    in.AccountID,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		ClientNumber: strings.TrimSpace(in.ClientNumber),
		DateOfBirth:  in.DateOfBirth,
		CreatedAt:    now,
	}
	s.clients[c.ID] = c
	return c, nil
}
