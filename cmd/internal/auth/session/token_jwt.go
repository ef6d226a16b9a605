package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the identity envelope carried by access tokens.
type AccessClaims struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Issuer    string
}

// AccessTokenManager issues and verifies short-lived access tokens.
type AccessTokenManager interface {
	Issue(userID, sessionID string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)

	// VerifyAllowExpired validates signature and issuer but tolerates an
	// expired token. Used by the refresh flow, which must accept the expired
	// access token it is replacing.
	VerifyAllowExpired(token string, now time.Time) (AccessClaims, error)
}

type jwtClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

type hs256Manager struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
	key       []byte
}

// NewJWTManager builds an AccessTokenManager using HS256 JWTs.
func NewJWTManager(cfg Config) (AccessTokenManager, error) {
	key := strings.TrimSpace(cfg.SigningKey)
	if len(key) < minSigningKeyBytes {
		return nil, ErrConfig
	}
	return &hs256Manager{
		issuer:    cfg.Issuer,
		ttl:       cfg.AccessTokenTTL,
		clockSkew: cfg.ClockSkew,
		key:       []byte(key),
	}, nil
}

func (m *hs256Manager) Issue(userID, sessionID string, now time.Time) (string, time.Time, error) {
	if userID == "" || sessionID == "" {
		return "", time.Time{}, ErrInvalidToken
	}

	exp := now.Add(m.ttl)
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		SessionID: sessionID,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (m *hs256Manager) Verify(token string, now time.Time) (AccessClaims, error) {
	claims, err := m.parse(token, now)
	if err != nil {
		return AccessClaims{}, err
	}
	if !claims.ExpiresAt.Add(m.clockSkew).After(now) {
		return AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (m *hs256Manager) VerifyAllowExpired(token string, now time.Time) (AccessClaims, error) {
	return m.parse(token, now)
}

// parse validates signature, algorithm, and issuer; expiry is checked by the
// callers so the refresh flow can accept expired tokens.
func (m *hs256Manager) parse(token string, _ time.Time) (AccessClaims, error) {
	var claims jwtClaims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.key, nil
	})
	if err != nil || !parsed.Valid {
		return AccessClaims{}, ErrInvalidToken
	}

	if claims.Issuer != m.issuer {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return AccessClaims{}, ErrInvalidToken
	}

	return AccessClaims{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
		IssuedAt:  claims.IssuedAt.Time,
		Issuer:    claims.Issuer,
	}, nil
}
