package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/sketchdeck/storyboard-api/internal/domain"
)

// StoryboardUpdate is an explicit partial update for a storyboard. Only
// non-nil fields are written; the rest of the row is left untouched.
type StoryboardUpdate struct {
	Status          *domain.StoryboardStatus
	CompletedScenes *int
	EstimatedCost   *float64
	ActualCost      *float64
	TextCost        *float64
	ImagesCost      *float64
}

// StoryboardStore persists Storyboard aggregates.
type StoryboardStore interface {
	// Create inserts a new storyboard.
	Create(ctx context.Context, storyboard *domain.Storyboard) error

	// Get retrieves a storyboard by ID.
	// Returns ErrStoryboardNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Storyboard, error)

	// ListByUser retrieves all storyboards owned by the given user,
	// newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Storyboard, error)

	// Update applies the non-nil fields of the update to the storyboard.
	// Returns ErrStoryboardNotFound if it does not exist.
	Update(ctx context.Context, id uuid.UUID, update StoryboardUpdate) error

	// Delete removes the storyboard row. Scene rows and their image blobs
	// cascade (enforced by the schema); queue rows for the storyboard are
	// removed by the service as part of the same operation.
	Delete(ctx context.Context, id uuid.UUID) error
}
