// Package errs contains sentinel errors shared across the store, cache and
// token layers for stable error mapping in the handlers.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested document or cache entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey indicates a unique index violation (username or email taken).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrTokenExpired indicates a well-formed credential past its expiry.
	// Handlers map it to a distinct response so clients refresh instead of re-login.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates a credential that failed signature or claim checks.
	ErrTokenInvalid = errors.New("token invalid")
)
