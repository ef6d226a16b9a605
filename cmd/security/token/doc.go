// Package token provides server-side hashing for opaque refresh tokens.
//
// Refresh tokens are never persisted in plaintext. When CONTOUR_TOKEN_HMAC_KEY
// is configured the hash is HMAC-SHA256 keyed with it; otherwise a plain
// SHA-256 digest is used for development setups.
package token
