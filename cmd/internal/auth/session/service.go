package session

import (
	"context"
	"strings"
	"time"
)

// Service implements the high-level token-session operations.
//
// It issues sessions (access + refresh), validates access tokens against the
// server-authoritative session row, and performs refresh rotation.
type Service struct {
	cfg    Config
	tokens AccessTokenManager
	store  Store
}

// Issued is the result of issuing or rotating a session.
type Issued struct {
	SessionID    string
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// NewService constructs a Service.
func NewService(cfg Config, store Store, tokens AccessTokenManager) *Service {
	return &Service{cfg: cfg, store: store, tokens: tokens}
}

// IssueSession creates a new token session and returns fresh tokens.
// Only the refresh token hash is persisted; the plain token is returned once.
func (s *Service) IssueSession(ctx context.Context, now time.Time, userID string) (Issued, error) {
	refreshPlain, refreshHash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Issued{}, err
	}

	refreshExp := now.Add(s.cfg.RefreshTTL)

	sessionID, err := s.store.Create(ctx, now, userID, refreshHash, refreshExp)
	if err != nil {
		return Issued{}, err
	}

	accessToken, accessExp, err := s.tokens.Issue(userID, sessionID, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		SessionID:    sessionID,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshPlain,
		RefreshExp:   refreshExp,
	}, nil
}

// ValidateAccessToken verifies an access token and ensures the backing
// session is still live (honors revocation and expiry server-side).
func (s *Service) ValidateAccessToken(ctx context.Context, token string, now time.Time) (AccessClaims, error) {
	claims, err := s.tokens.Verify(token, now)
	if err != nil {
		return AccessClaims{}, err
	}

	row, err := s.store.GetByID(ctx, claims.SessionID)
	if err != nil {
		return AccessClaims{}, err
	}

	if row.UserID != claims.UserID {
		return AccessClaims{}, ErrInvalidToken
	}
	if row.RevokedAt != nil || row.ReplacedBySessionID != nil {
		return AccessClaims{}, ErrSessionRevoked
	}
	if !row.ExpiresAt.After(now) {
		return AccessClaims{}, ErrSessionExpired
	}

	return claims, nil
}

// RotateRefresh exchanges an expired access token plus its refresh token for
// a fresh pair.
//
// The access token must be signature-valid but already expired; refreshing a
// live token is refused with ErrAccessNotExpired (the caller maps this to
// 204 No Content). Rotation itself is atomic inside the store, including
// reuse detection.
func (s *Service) RotateRefresh(ctx context.Context, now time.Time, accessToken, refreshTokenPlain string) (Issued, error) {
	refreshTokenPlain = strings.TrimSpace(refreshTokenPlain)
	// Sanity bounds against pathological inputs.
	if refreshTokenPlain == "" || len(refreshTokenPlain) > 4096 {
		return Issued{}, ErrSessionNotFound
	}

	claims, err := s.tokens.VerifyAllowExpired(accessToken, now)
	if err != nil {
		return Issued{}, err
	}
	if claims.ExpiresAt.After(now.Add(s.cfg.ClockSkew)) {
		return Issued{}, ErrAccessNotExpired
	}

	newRefreshPlain, newRefreshHash, err := newOpaqueRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Issued{}, err
	}

	// The store refuses rotation unless the refresh token belongs to the user
	// named by the access token.
	rot, err := s.store.Rotate(ctx, now, claims.UserID, hashRefreshTokenHex(refreshTokenPlain), newRefreshHash, now.Add(s.cfg.RefreshTTL))
	if err != nil {
		return Issued{}, err
	}

	newAccess, accessExp, err := s.tokens.Issue(rot.UserID, rot.NewSessionID, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		SessionID:    rot.NewSessionID,
		AccessToken:  newAccess,
		AccessExp:    accessExp,
		RefreshToken: newRefreshPlain,
		RefreshExp:   rot.ExpiresAt,
	}, nil
}

// RevokeSession revokes a single session (logout).
func (s *Service) RevokeSession(ctx context.Context, now time.Time, sessionID string) error {
	return s.store.Revoke(ctx, now, sessionID, "logout")
}

// RevokeAll revokes all sessions for a user.
func (s *Service) RevokeAll(ctx context.Context, now time.Time, userID string) error {
	return s.store.RevokeAll(ctx, now, userID, "logout")
}

// TouchSession updates last_used_at for a session (best effort).
func (s *Service) TouchSession(ctx context.Context, now time.Time, sessionID string) error {
	return s.store.Touch(ctx, now, sessionID)
}
