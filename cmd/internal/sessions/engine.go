package sessions

import (
	"context"
	"errors"
)

// Engine classifies session operations against a client's persisted state.
// It only reads; mutations belong to the Service.
type Engine struct {
	store Store
}

// NewEngine creates an eligibility engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// ResolveAddableSession finds the one session of the client that may still
// receive image sets. The checks run in a fixed order and the first failing
// one decides:
//
//  1. no in-progress session
//  2. more than one in-progress session
//  3. the in-progress session is not the client's newest session
//  4. the session already holds MaxBodyImageSets image sets
//
// Ownership of the client is the caller's responsibility.
func (e *Engine) ResolveAddableSession(ctx context.Context, clientID string) (Decision, error) {
	all, err := e.store.ListByClient(ctx, clientID)
	if err != nil {
		return Decision{}, err
	}

	var open []Session
	for _, s := range all {
		if s.InProgress() {
			open = append(open, s)
		}
	}

	switch {
	case len(open) == 0:
		return deny(ReasonNoInProgressSession, msgNoInProgressSession()), nil
	case len(open) > 1:
		return deny(ReasonMultipleInProgressSession, msgMultipleInProgressAdd(len(open))), nil
	}

	target := open[0]
	if len(all) > 0 && all[0].ID != target.ID {
		return deny(ReasonInProgressNotLatest, msgInProgressNotLatest()), nil
	}

	n, err := e.store.CountImageSets(ctx, target.ID)
	if err != nil {
		return Decision{}, err
	}
	if n >= MaxBodyImageSets {
		return deny(ReasonSessionFull, msgSessionFull()), nil
	}

	return allow(&target), nil
}

// ResolveSessionForAppend checks whether an image set may be appended to the
// named session. Order:
//
//  1. session exists
//  2. session is not finished
//  3. the client has exactly one in-progress session and it is the newest
//  4. the session holds fewer than MaxBodyImageSets image sets
//
// The allowed decision is advisory; the store re-checks 2 and 4 atomically
// at write time.
func (e *Engine) ResolveSessionForAppend(ctx context.Context, sessionID string) (Decision, error) {
	s, err := e.store.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return deny(ReasonSessionNotFound, msgSessionNotFound(sessionID)), nil
		}
		return Decision{}, err
	}

	if !s.InProgress() {
		return deny(ReasonSessionFinished, msgSessionFinished()), nil
	}

	all, err := e.store.ListByClient(ctx, s.ClientID)
	if err != nil {
		return Decision{}, err
	}

	var open []Session
	for _, sess := range all {
		if sess.InProgress() {
			open = append(open, sess)
		}
	}
	if len(open) > 1 {
		return deny(ReasonMultipleInProgressSession, msgMultipleInProgressAdd(len(open))), nil
	}
	if len(open) == 1 && open[0].ID == s.ID && len(all) > 0 && all[0].ID != s.ID {
		return deny(ReasonInProgressNotLatest, msgChosenSessionNotLatest()), nil
	}

	n, err := e.store.CountImageSets(ctx, s.ID)
	if err != nil {
		return Decision{}, err
	}
	if n >= MaxBodyImageSets {
		return deny(ReasonSessionFull, msgFourthSetNotAllowed()), nil
	}

	return allow(&s), nil
}

// CanCreateSession reports whether the client may open a new session: only
// when no session of theirs is still in progress.
func (e *Engine) CanCreateSession(ctx context.Context, clientID string) (Decision, error) {
	open, err := e.store.ListInProgressByClient(ctx, clientID)
	if err != nil {
		return Decision{}, err
	}
	if len(open) > 0 {
		return deny(ReasonOpenSessionExists, msgOpenSessionExists(len(open))), nil
	}
	return allow(nil), nil
}
