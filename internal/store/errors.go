package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrStoryboardNotFound, ErrSceneNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., two scenes with the same number in one storyboard).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrDeleteFailed is returned when a delete operation fails.
	ErrDeleteFailed = errors.New("delete failed")

	// Entity-specific "not found" errors

	// ErrStoryboardNotFound indicates that the requested storyboard does not exist.
	ErrStoryboardNotFound = fmt.Errorf("%w: storyboard", ErrNotFound)

	// ErrSceneNotFound indicates that the requested scene does not exist.
	ErrSceneNotFound = fmt.Errorf("%w: scene", ErrNotFound)

	// ErrQueueJobNotFound indicates that the requested queue job does not exist.
	ErrQueueJobNotFound = fmt.Errorf("%w: queue job", ErrNotFound)

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrImageNotFound indicates that the requested image blob does not exist.
	ErrImageNotFound = fmt.Errorf("%w: image", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrSceneNumberExists indicates that the storyboard already has a scene
	// with the given scene number.
	ErrSceneNumberExists = fmt.Errorf("%w: scene number", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
