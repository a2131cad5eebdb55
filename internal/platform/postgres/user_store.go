package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/platform/logger"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	db store.DBTX
}

// NewUserStore creates a new UserStore.
func NewUserStore(db store.DBTX) *UserStore {
	return &UserStore{db: db}
}

// Get retrieves a user by external identity ID.
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, has_api_key, api_key_hash, encrypted_api_key, byok_enabled,
		       api_key_updated_at, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetOrCreate retrieves the user, creating an empty record on first contact.
func (s *UserStore) GetOrCreate(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	created, err := domain.NewUser(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO users (id, has_api_key, byok_enabled, created_at, updated_at)
		VALUES ($1, false, false, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := s.db.ExecContext(ctx, query, created.ID, created.CreatedAt, created.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	// Re-read in case a concurrent request created the row first.
	return s.Get(ctx, id)
}

// Update applies the non-nil fields of the update to the user.
func (s *UserStore) Update(ctx context.Context, id string, update store.UserUpdate) error {
	sets := "updated_at = now()"
	args := []any{}
	arg := 1

	appendSet := func(column string, value any) {
		sets += fmt.Sprintf(", %s = $%d", column, arg)
		args = append(args, value)
		arg++
	}

	if update.HasAPIKey != nil {
		appendSet("has_api_key", *update.HasAPIKey)
	}
	if update.APIKeyHash != nil {
		appendSet("api_key_hash", *update.APIKeyHash)
	}
	if update.EncryptedAPIKey != nil {
		appendSet("encrypted_api_key", *update.EncryptedAPIKey)
	}
	if update.BYOKEnabled != nil {
		appendSet("byok_enabled", *update.BYOKEnabled)
	}
	if update.APIKeyUpdatedAt != nil {
		appendSet("api_key_updated_at", *update.APIKeyUpdatedAt)
	}

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", sets, arg)
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to update user",
			"user_id", id,
			"error", err)
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrUserNotFound
	}

	return nil
}

// scanUser reads one user row.
func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var hash sql.NullString
	var encrypted []byte
	var keyUpdatedAt sql.NullTime

	err := row.Scan(
		&user.ID, &user.HasAPIKey, &hash, &encrypted, &user.BYOKEnabled,
		&keyUpdatedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.APIKeyHash = hash.String
	user.EncryptedAPIKey = encrypted
	if keyUpdatedAt.Valid {
		t := keyUpdatedAt.Time
		user.APIKeyUpdatedAt = &t
	}

	return &user, nil
}
