// Package sessions implements the capture-session lifecycle core.
//
// A capture session belongs to one client, is created in progress, gains up
// to three body image sets (four images each), and is finished elsewhere in
// the product, after which it is read-only. The eligibility engine classifies
// create/append requests against the client's persisted session state and
// returns decisions as values; the executor performs the mutation only after
// an allowed decision, re-checking the three-set ceiling atomically at write
// time.
package sessions
