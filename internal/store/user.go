package store

import (
	"context"
	"time"

	"github.com/sketchdeck/storyboard-api/internal/domain"
)

// UserUpdate is an explicit partial update for a user's BYOK fields. Only
// non-nil fields are written. Clearing the key is expressed by setting
// pointers to zero values, not by omitting them.
type UserUpdate struct {
	HasAPIKey       *bool
	APIKeyHash      *string
	EncryptedAPIKey *[]byte
	BYOKEnabled     *bool
	APIKeyUpdatedAt *time.Time
}

// UserStore persists BYOK bookkeeping per externally-authenticated user.
type UserStore interface {
	// Get retrieves a user by external identity ID.
	// Returns ErrUserNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.User, error)

	// GetOrCreate retrieves the user, creating an empty record on first
	// contact.
	GetOrCreate(ctx context.Context, id string) (*domain.User, error)

	// Update applies the non-nil fields of the update to the user.
	// Returns ErrUserNotFound if it does not exist.
	Update(ctx context.Context, id string, update UserUpdate) error
}
