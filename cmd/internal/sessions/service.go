package sessions

import (
	"context"
	"errors"
	"fmt"
)

// OwnershipChecker answers whether an account owns a client. Satisfied by
// the clients service.
type OwnershipChecker interface {
	OwnsClient(ctx context.Context, accountID, clientID string) (bool, error)
}

// Service executes session operations: every mutation runs the eligibility
// engine first and performs the write only on an allowed decision. Denials
// come back as decisions, infrastructure failures as errors.
type Service struct {
	engine *Engine
	store  Store
	owners OwnershipChecker
}

// NewService wires the executor.
func NewService(store Store, owners OwnershipChecker) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("sessions: nil store")
	}
	if owners == nil {
		return nil, fmt.Errorf("sessions: nil ownership checker")
	}
	return &Service{engine: NewEngine(store), store: store, owners: owners}, nil
}

func (s *Service) checkOwnership(ctx context.Context, accountID, clientID string) (Decision, error) {
	ok, err := s.owners.OwnsClient(ctx, accountID, clientID)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		d := deny(ReasonForbidden, msgForbidden(clientID))
		observeDenial(d)
		return d, nil
	}
	return allow(nil), nil
}

// LatestAddableSession resolves the client's session that may still receive
// image sets, for the given account.
func (s *Service) LatestAddableSession(ctx context.Context, accountID, clientID string) (Decision, error) {
	if d, err := s.checkOwnership(ctx, accountID, clientID); err != nil || !d.Allowed {
		return d, err
	}

	d, err := s.engine.ResolveAddableSession(ctx, clientID)
	if err != nil {
		return Decision{}, err
	}
	observeDenial(d)
	return d, nil
}

// CreateSession opens a new capture session for the client and stores the
// first image set with it, provided the account owns the client and no
// session of the client is still in progress.
func (s *Service) CreateSession(ctx context.Context, accountID string, in CreateInput) (Session, Decision, error) {
	if !in.Images.Complete() {
		return Session{}, Decision{}, fmt.Errorf("create session: %w", ErrInvalidInput)
	}

	if d, err := s.checkOwnership(ctx, accountID, in.ClientID); err != nil || !d.Allowed {
		return Session{}, d, err
	}

	d, err := s.engine.CanCreateSession(ctx, in.ClientID)
	if err != nil {
		return Session{}, Decision{}, err
	}
	if !d.Allowed {
		observeDenial(d)
		return Session{}, d, nil
	}

	sess, err := s.store.CreateWithFirstImageSet(ctx, in)
	if err != nil {
		return Session{}, Decision{}, fmt.Errorf("create session: %w", err)
	}

	metricSessionsCreated.Inc()
	metricImageSetsAppended.Inc()
	return sess, allow(&sess), nil
}

// AppendImageSet adds one image set to the named session. The engine decides
// eligibility; the store re-checks the session status and the set ceiling
// inside the write transaction, so a lost race surfaces as a denial rather
// than an over-full session.
func (s *Service) AppendImageSet(ctx context.Context, accountID string, in AppendInput) (Session, Decision, error) {
	if !in.Images.Complete() {
		return Session{}, Decision{}, fmt.Errorf("append image set: %w", ErrInvalidInput)
	}

	target, err := s.store.GetByID(ctx, in.SessionID)
	if errors.Is(err, ErrNotFound) {
		d := deny(ReasonSessionNotFound, msgSessionNotFound(in.SessionID))
		observeDenial(d)
		return Session{}, d, nil
	}
	if err != nil {
		return Session{}, Decision{}, err
	}

	if od, err := s.checkOwnership(ctx, accountID, target.ClientID); err != nil || !od.Allowed {
		return Session{}, od, err
	}

	d, err := s.engine.ResolveSessionForAppend(ctx, in.SessionID)
	if err != nil {
		return Session{}, Decision{}, err
	}
	if !d.Allowed {
		observeDenial(d)
		return Session{}, d, nil
	}

	sess, err := s.store.AppendImageSet(ctx, in)
	switch {
	case errors.Is(err, ErrSessionFull):
		d := deny(ReasonSessionFull, msgFourthSetNotAllowed())
		observeDenial(d)
		return Session{}, d, nil
	case errors.Is(err, ErrSessionNotInProgress):
		d := deny(ReasonSessionFinished, msgSessionFinished())
		observeDenial(d)
		return Session{}, d, nil
	case errors.Is(err, ErrNotFound):
		d := deny(ReasonSessionNotFound, msgSessionNotFound(in.SessionID))
		observeDenial(d)
		return Session{}, d, nil
	case err != nil:
		return Session{}, Decision{}, fmt.Errorf("append image set: %w", err)
	}

	metricImageSetsAppended.Inc()
	return sess, allow(&sess), nil
}
