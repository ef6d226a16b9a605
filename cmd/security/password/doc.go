// Package password implements Argon2id password hashing for Contour.
//
// Hashes use the PHC-style encoded format
// $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<hash_b64>.
// Encoded hashes are treated as untrusted input during verification and are
// rejected when their parameters exceed reasonable bounds.
package password
