// Package api exposes the practitioner portal HTTP surface: the client list
// and the capture-session operations. All routes sit behind the bearer-token
// middleware and pass the resolved account id into the services explicitly.
package api
