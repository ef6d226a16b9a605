// Package clients manages client records and the practitioner ownership
// boundary.
//
// Every portal operation that touches a client's data goes through
// Service.OwnsClient first. The check fails closed: a missing client or a
// storage fault never grants access.
package clients
