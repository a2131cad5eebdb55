package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/sketchdeck/storyboard-api/internal/domain"
)

// SceneUpdate is an explicit partial update for a scene. Only non-nil
// fields are written.
type SceneUpdate struct {
	Status           *domain.SceneStatus
	ImagePrompt      *string
	ImageID          *uuid.UUID
	ImageContentType *string
	Cost             *float64
}

// SceneStore persists Scenes.
type SceneStore interface {
	// Create inserts a new scene. Returns ErrSceneNumberExists if the
	// storyboard already has a scene with the same number.
	Create(ctx context.Context, scene *domain.Scene) error

	// Get retrieves a scene by ID.
	// Returns ErrSceneNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Scene, error)

	// ListByStoryboard retrieves all scenes of a storyboard ordered by
	// scene number ascending.
	ListByStoryboard(ctx context.Context, storyboardID uuid.UUID) ([]*domain.Scene, error)

	// Update applies the non-nil fields of the update to the scene.
	// Returns ErrSceneNotFound if it does not exist.
	Update(ctx context.Context, id uuid.UUID, update SceneUpdate) error

	// ResetForStoryboard puts every scene of the storyboard back into the
	// given status and clears per-scene cost. Used for whole-job retries.
	ResetForStoryboard(ctx context.Context, storyboardID uuid.UUID, status domain.SceneStatus) error
}
