package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthorized is returned when an operation is not permitted,
	// for example deleting a storyboard owned by another user.
	ErrUnauthorized = errors.New("unauthorized operation")

	// ErrInvalidAPIKey is returned when a supplied Gemini API key does not
	// match the expected key format.
	ErrInvalidAPIKey = errors.New("invalid API key format")
)
