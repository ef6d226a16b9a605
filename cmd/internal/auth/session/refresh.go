package session

import (
	"crypto/rand"
	"encoding/base64"

	"contour/cmd/security/token"
)

func newOpaqueRefreshToken(nBytes int) (plain string, hashHex string, err error) {
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}

	// URL-safe, no padding.
	plain = base64.RawURLEncoding.EncodeToString(b)
	hashHex = token.HashRefreshTokenHex(plain)

	return plain, hashHex, nil
}

func hashRefreshTokenHex(plain string) string {
	return token.HashRefreshTokenHex(plain)
}
