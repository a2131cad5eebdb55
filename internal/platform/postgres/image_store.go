package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// ImageStore implements store.ImageStore using a PostgreSQL bytea table.
type ImageStore struct {
	db store.DBTX
}

// NewImageStore creates a new ImageStore.
func NewImageStore(db store.DBTX) *ImageStore {
	return &ImageStore{db: db}
}

// Store persists the blob and returns its ID.
func (s *ImageStore) Store(ctx context.Context, data []byte, contentType string) (uuid.UUID, error) {
	if len(data) == 0 {
		return uuid.Nil, fmt.Errorf("%w: image data cannot be empty", store.ErrInvalidEntity)
	}

	id := uuid.New()
	query := `
		INSERT INTO images (id, content_type, data, created_at)
		VALUES ($1, $2, $3, now())
	`

	if _, err := s.db.ExecContext(ctx, query, id, contentType, data); err != nil {
		return uuid.Nil, fmt.Errorf("failed to store image: %w", err)
	}

	return id, nil
}

// Get retrieves a blob by ID.
func (s *ImageStore) Get(ctx context.Context, id uuid.UUID) (*store.Image, error) {
	query := `SELECT id, content_type, data FROM images WHERE id = $1`

	var img store.Image
	err := s.db.QueryRowContext(ctx, query, id).Scan(&img.ID, &img.ContentType, &img.Data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return &img, nil
}

// Delete removes a blob by ID. Deleting a missing blob is a no-op.
func (s *ImageStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
