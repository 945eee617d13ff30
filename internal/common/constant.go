// Package common contains shared constants and sentinel errors used across
// the blog client components.
package common

// AuthorizationHeaderName carries the bearer credential on outbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is prepended to the session token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "

// RequestIDHeaderName carries the per-request correlation id.
const RequestIDHeaderName = "X-Request-ID"

// DefaultPageLimit is used when neither the caller nor the config sets a limit.
const DefaultPageLimit = 10
