package clients

import (
	"context"
	"errors"
)

// Service wraps the store with the ownership boundary.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	return &Service{store: store}, nil
}

// OwnsClient reports whether accountID may act on clientID's data.
//
// Fails closed: an unknown client yields (false, nil), never an error, so a
// lookup miss can't be distinguished from a denial by the caller. Storage
// faults are returned as errors and must also be treated as denials.
func (s *Service) OwnsClient(ctx context.Context, accountID, clientID string) (bool, error) {
	if accountID == "" || clientID == "" {
		return false, nil
	}

	c, err := s.store.GetByID(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return c.AccountID == accountID, nil
}

// Get loads a client after verifying ownership. ErrNotFound is returned for
// both a missing client and an ownership mismatch so existence does not leak.
func (s *Service) Get(ctx context.Context, accountID, clientID string) (Client, error) {
	c, err := s.store.GetByID(ctx, clientID)
	if err != nil {
		return Client{}, err
	}
	if c.AccountID != accountID {
		return Client{}, ErrNotFound
	}
	return c, nil
}

// List returns one page of the account's clients plus the total match count.
func (s *Service) List(ctx context.Context, accountID string, filter ListFilter, page Page) ([]Client, int, error) {
	return s.store.ListByAccount(ctx, accountID, filter, page)
}

// Create inserts a new client owned by the account.
func (s *Service) Create(ctx context.Context, in CreateInput) (Client, error) {
	if in.AccountID == "" {
		return Client{}, ErrInvalidInput
	}
	return s.store.Create(ctx, in)
}
