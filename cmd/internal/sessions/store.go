package sessions

import (
	"context"
	"time"
)

// CreateInput creates a session together with its first image set. The two
// writes happen in one transaction so a session never exists with zero sets.
type CreateInput struct {
	ClientID string
	Images   ImageSet

	// Now overrides the creation timestamp; zero means time.Now().UTC().
	Now time.Time
}

// AppendInput adds one image set to an existing in-progress session.
type AppendInput struct {
	SessionID string
	Images    ImageSet

	Now time.Time
}

// Store is the persistence boundary for capture sessions and their image
// sets.
type Store interface {
	// GetByID loads a session by id. ErrNotFound when absent.
	GetByID(ctx context.Context, sessionID string) (Session, error)

	// ListByClient returns all of a client's sessions, newest first.
	ListByClient(ctx context.Context, clientID string) ([]Session, error)

	// ListInProgressByClient returns the client's in-progress sessions,
	// newest first.
	ListInProgressByClient(ctx context.Context, clientID string) ([]Session, error)

	// CountImageSets returns the number of image sets stored for a session.
	CountImageSets(ctx context.Context, sessionID string) (int, error)

	// CreateWithFirstImageSet inserts a new in-progress session and its
	// first image set atomically.
	CreateWithFirstImageSet(ctx context.Context, in CreateInput) (Session, error)

	// AppendImageSet adds an image set to a session. The status and the
	// set count are re-checked under a write lock inside the same
	// transaction as the insert, so concurrent appends cannot push a
	// session past MaxBodyImageSets. Returns ErrNotFound,
	// ErrSessionNotInProgress or ErrSessionFull when the re-check fails.
	AppendImageSet(ctx context.Context, in AppendInput) (Session, error)

	// Finish marks a session finished. ErrNotFound when absent.
	Finish(ctx context.Context, sessionID string, now time.Time) (Session, error)
}
