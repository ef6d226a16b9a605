// Package session implements Contour's token-session model.
//
// Access tokens are short-lived HS256 JWTs carrying the user id and the
// backing token-session id. Refresh tokens are opaque random strings stored
// only as hashes; refresh performs rotation with reuse detection, and
// presenting an already-rotated refresh token revokes every session of the
// user.
//
// HTTP integration is intentionally out of scope here.
package session
