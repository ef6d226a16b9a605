package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config defines runtime configuration for the token-session subsystem.
type Config struct {
	// Issuer is the value of the "iss" claim on access tokens.
	Issuer string `env:"CONTOUR_JWT_ISSUER" envDefault:"contour"`

	// SigningKey is the HS256 secret for access tokens. Required, min 32 bytes.
	SigningKey string `env:"CONTOUR_JWT_SIGNING_KEY"`

	// AccessTokenTTL is the lifetime of access tokens.
	AccessTokenTTL time.Duration `env:"CONTOUR_JWT_ACCESS_TTL" envDefault:"15m"`

	// RefreshTTL is the lifetime of refresh tokens / token sessions.
	RefreshTTL time.Duration `env:"CONTOUR_AUTH_REFRESH_TTL" envDefault:"720h"`

	// ClockSkew is the allowed time skew during token validation.
	ClockSkew time.Duration `env:"CONTOUR_AUTH_CLOCK_SKEW" envDefault:"30s"`

	// RefreshTokenBytes is the entropy of opaque refresh tokens.
	RefreshTokenBytes int `env:"CONTOUR_AUTH_REFRESH_TOKEN_BYTES" envDefault:"32"`
}

const minSigningKeyBytes = 32

// LoadConfigFromEnv parses session configuration from the environment.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse session env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if len(strings.TrimSpace(c.SigningKey)) < minSigningKeyBytes {
		return fmt.Errorf("%w: CONTOUR_JWT_SIGNING_KEY must be at least %d bytes", ErrConfig, minSigningKeyBytes)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("%w: TTLs must be positive", ErrConfig)
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("%w: clock skew must not be negative", ErrConfig)
	}
	if c.RefreshTokenBytes < 16 {
		return fmt.Errorf("%w: refresh token entropy too small", ErrConfig)
	}
	return nil
}
