package store

import (
	"context"

	"github.com/google/uuid"
)

// Image is a stored generated-image blob.
type Image struct {
	ID          uuid.UUID
	ContentType string
	Data        []byte
}

// ImageStore persists generated image blobs. Blobs are owned by the scene
// that references them and are removed when the owning storyboard is
// deleted.
type ImageStore interface {
	// Store persists the blob and returns its ID.
	Store(ctx context.Context, data []byte, contentType string) (uuid.UUID, error)

	// Get retrieves a blob by ID.
	// Returns ErrImageNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*Image, error)

	// Delete removes a blob by ID. Deleting a missing blob is a no-op.
	Delete(ctx context.Context, id uuid.UUID) error
}
