package app

import (
	"errors"

	"contour/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy.
//
// Fail-fast is intentional: a deployment that asked for HMAC refresh-token
// hashing must not silently come up with the plain-hash fallback.
func ValidateSecurityConfig(cfg Config) error {
	if !cfg.RequireTokenHMAC {
		return nil
	}

	// Minimum 32 bytes for an HMAC-SHA256 secret, measured in raw bytes.
	if _, err := token.HMACKeyFromEnv(32); err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return errors.New("security policy: CONTOUR_REQUIRE_TOKEN_HMAC=true but CONTOUR_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return errors.New("security policy: CONTOUR_REQUIRE_TOKEN_HMAC=true but CONTOUR_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if !token.HMACEnabled() {
		return errors.New("security policy: CONTOUR_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}

	return nil
}
