package twofactor

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrConfig is returned for invalid two-factor configuration.
var ErrConfig = errors.New("invalid twofactor config")

// Config controls TOTP provisioning and validation.
type Config struct {
	// Issuer is shown in authenticator apps.
	Issuer string `env:"CONTOUR_2FA_ISSUER" envDefault:"contour"`

	// ServerKey is mixed into every derived TOTP key. Required.
	ServerKey string `env:"CONTOUR_2FA_SERVER_KEY"`

	// Period is the TOTP step in seconds.
	Period uint `env:"CONTOUR_2FA_PERIOD" envDefault:"30"`

	// Skew is the number of adjacent periods accepted during validation.
	Skew uint `env:"CONTOUR_2FA_SKEW" envDefault:"1"`
}

// LoadConfigFromEnv parses two-factor configuration from the environment.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse twofactor env: %w", err)
	}
	if strings.TrimSpace(cfg.ServerKey) == "" {
		return Config{}, fmt.Errorf("%w: CONTOUR_2FA_SERVER_KEY is required", ErrConfig)
	}
	if cfg.Period == 0 {
		cfg.Period = 30
	}
	return cfg, nil
}

// NewPersonalSecret returns a fresh random per-user secret (hex, 32 bytes of
// entropy). It is stored on the user row and never shown to the user directly.
func NewPersonalSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SetupKey provisions an otpauth key for the given account email and personal
// secret. The returned key's URL can be rendered as a QR code by the client.
func (c Config) SetupKey(email, personalSecret string) (*otp.Key, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(personalSecret) == "" {
		return nil, ErrConfig
	}
	return totp.Generate(totp.GenerateOpts{
		Issuer:      c.Issuer,
		AccountName: email,
		Period:      c.Period,
		Secret:      c.derivedKey(personalSecret),
	})
}

// ValidateCode reports whether code is currently valid for the personal secret.
func (c Config) ValidateCode(personalSecret, code string) bool {
	return c.validateAt(personalSecret, code, time.Now().UTC())
}

func (c Config) validateAt(personalSecret, code string, now time.Time) bool {
	code = strings.TrimSpace(code)
	if code == "" || strings.TrimSpace(personalSecret) == "" {
		return false
	}
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(c.derivedKey(personalSecret))
	ok, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    c.Period,
		Skew:      c.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// derivedKey mixes the per-user secret with the server key so neither alone
// is sufficient to reconstruct the TOTP key.
func (c Config) derivedKey(personalSecret string) []byte {
	sum := sha256.Sum256([]byte(personalSecret + c.ServerKey))
	return sum[:]
}
