package twofactor

import (
	"crypto/sha256"
	"encoding/base32"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

func testConfig() Config {
	return Config{
		Issuer:    "contour-test",
		ServerKey: "server-side-pepper",
		Period:    30,
		Skew:      1,
	}
}

func codeAt(t *testing.T, cfg Config, personalSecret string, at time.Time) string {
	t.Helper()

	sum := sha256.Sum256([]byte(personalSecret + cfg.ServerKey))
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])

	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    cfg.Period,
		Skew:      cfg.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	return code
}

func TestValidateCode_AcceptsCurrentCode(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	code := codeAt(t, cfg, "personal-secret", now)
	if !cfg.validateAt("personal-secret", code, now) {
		t.Fatalf("expected current code to validate")
	}
}

func TestValidateCode_RejectsWrongSecretAndStaleCode(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	code := codeAt(t, cfg, "personal-secret", now)

	if cfg.validateAt("another-secret", code, now) {
		t.Fatalf("code must not validate against a different personal secret")
	}
	if cfg.validateAt("personal-secret", code, now.Add(10*time.Minute)) {
		t.Fatalf("code must not validate ten minutes later")
	}
	if cfg.validateAt("personal-secret", "", now) {
		t.Fatalf("empty code must not validate")
	}
}

func TestSetupKey_CarriesIssuerAndAccount(t *testing.T) {
	t.Parallel()

	cfg := testConfig()

	key, err := cfg.SetupKey("pract@example.com", "personal-secret")
	if err != nil {
		t.Fatalf("SetupKey: %v", err)
	}
	if key.Issuer() != "contour-test" {
		t.Fatalf("issuer = %q", key.Issuer())
	}
	if key.AccountName() != "pract@example.com" {
		t.Fatalf("account = %q", key.AccountName())
	}
	if !strings.HasPrefix(key.URL(), "otpauth://totp/") {
		t.Fatalf("url = %q", key.URL())
	}
}

func TestNewPersonalSecret_Unique(t *testing.T) {
	t.Parallel()

	a, err := NewPersonalSecret()
	if err != nil {
		t.Fatalf("NewPersonalSecret: %v", err)
	}
	b, err := NewPersonalSecret()
	if err != nil {
		t.Fatalf("NewPersonalSecret: %v", err)
	}
	if a == b || len(a) != 64 {
		t.Fatalf("expected unique 64-char hex secrets, got %q %q", a, b)
	}
}
