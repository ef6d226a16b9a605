// Package twofactor implements TOTP-based two-factor authentication for
// practitioner logins.
//
// Each user stores a random personal secret; the effective TOTP key is derived
// from that secret combined with a server-side key, so a database leak alone
// is not enough to generate valid codes.
package twofactor
