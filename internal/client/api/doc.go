// Package api is the single outbound HTTP surface of the client.
//
// Every request goes through Gateway.Send, which
//  1. attaches the session token as "Authorization: Bearer <token>" when one is present,
//  2. tags the request with a fresh X-Request-ID,
//  3. unwraps the service's {success, message, data} envelope into the caller's value.
//
// # Error Handling
//
// Failures come back as *HTTPError{Status, Message}. A 401 additionally clears
// the stored credential and notifies every OnUnauthorized listener before the
// error is returned, whichever component issued the request. Sentinels
// ErrUnauthorized and ErrUnavailable can be matched with errors.Is; the latter
// covers transport failures and timeouts (Status == 0).
//
// The gateway never retries.
package api
