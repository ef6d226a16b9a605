// Package identity implements Contour's practitioner identity foundation.
//
// A login user authenticates with email + Argon2id password (optionally TOTP)
// and is linked to exactly one practitioner account. The account, not the
// user, owns clients and their capture sessions.
package identity
