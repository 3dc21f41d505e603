// Package client talks to the polls backend over its REST/JSON API.
//
// Client is the transport-agnostic contract used by the session store and
// the services; HTTPClient is the implementation. Every request carries an
// X-Request-ID. Requests made while a session is bound also carry the bearer
// token, and a 401 answer to such a request rejects the session (logout).
//
// Failures are reported with sentinel kinds (ErrInvalidCredentials,
// ErrNetworkFailure, ErrAlreadyVoted, ...) wrapped in AuthError, FetchError,
// VoteError or RequestError, which also carry the backend's message.
package client
