// Package api exposes the authentication HTTP surface: login, token refresh,
// logout, and two-factor provisioning. It also provides the bearer-token
// middleware the portal routes mount in front of their handlers.
package api
