package service

import "errors"

// Common service errors - sentinel errors callers check with errors.Is().
// The API layer maps these to HTTP status codes.
var (
	// ErrNotOwned indicates a resource is owned by a different user than
	// the one making the request. Maps to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")
)
