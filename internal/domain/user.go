package domain

import (
	"errors"
	"time"
)

// Common validation errors for User
var (
	ErrEmptyUserID = errors.New("user ID cannot be empty")
)

// User holds the BYOK bookkeeping for one externally-authenticated user.
// Identity itself (sign-up, sessions) lives in the external identity
// provider; the ID here is the provider's subject string.
type User struct {
	ID              string     `json:"id"`
	HasAPIKey       bool       `json:"has_api_key"`
	APIKeyHash      string     `json:"api_key_hash,omitempty"`
	EncryptedAPIKey []byte     `json:"-"`
	BYOKEnabled     bool       `json:"byok_enabled"`
	APIKeyUpdatedAt *time.Time `json:"api_key_updated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewUser creates a user record with no stored API key.
func NewUser(id string) (*User, error) {
	now := time.Now().UTC()
	u := &User{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == "" {
		return ErrEmptyUserID
	}

	return nil
}

// UsesBYOK reports whether storyboards for this user should bypass the
// shared queue and run immediately under the user's own key.
func (u *User) UsesBYOK() bool {
	return u.BYOKEnabled && u.HasAPIKey && len(u.EncryptedAPIKey) > 0
}
