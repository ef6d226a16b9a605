package clients

import (
	"context"
	"time"
)

// Client is a person tracked by a practitioner account.
type Client struct {
	ID           string
	AccountID    string
	FirstName    string
	LastName     string
	ClientNumber string
	DateOfBirth  *time.Time
	CreatedAt    time.Time
}

// ListFilter narrows client listings.
type ListFilter struct {
	// Term matches case-insensitively against first name, last name, and
	// client number. Empty means no filtering.
	Term string
}

// CreateInput describes a new client record.
type CreateInput struct {
	AccountID    string
	FirstName    string
	LastName     string
	ClientNumber string
	DateOfBirth  *time.Time
	Now          time.Time
}

// Store is the client persistence boundary.
type Store interface {
	// GetByID loads a client; ErrNotFound when absent.
	GetByID(ctx context.Context, clientID string) (Client, error)

	// ListByAccount returns one page of an account's clients ordered by
	// creation time descending, plus the total match count.
	ListByAccount(ctx context.Context, accountID string, filter ListFilter, page Page) ([]Client, int, error)

	// Create inserts a new client record.
	Create(ctx context.Context, in CreateInput) (Client, error)
}
