package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SceneStatus represents the processing state of a single scene.
type SceneStatus string

// Possible scene status values
const (
	SceneStatusPending    SceneStatus = "pending"
	SceneStatusGenerating SceneStatus = "generating"
	SceneStatusCompleted  SceneStatus = "completed"
	SceneStatusFailed     SceneStatus = "failed"
)

// Common validation errors for Scene
var (
	ErrEmptySceneID           = errors.New("scene ID cannot be empty")
	ErrEmptySceneStoryboardID = errors.New("scene storyboard ID cannot be empty")
	ErrInvalidSceneNumber     = errors.New("scene number must be positive")
	ErrEmptySceneAction       = errors.New("scene action cannot be empty")
	ErrInvalidSceneStatus     = errors.New("invalid scene status")
)

// Scene is one frame of a storyboard. It is owned exclusively by its
// Storyboard and removed when the storyboard is deleted, together with
// the stored image blob.
type Scene struct {
	ID               uuid.UUID   `json:"id"`
	StoryboardID     uuid.UUID   `json:"storyboard_id"`
	SceneNumber      int         `json:"scene_number"`
	Description      string      `json:"description"`
	Action           string      `json:"action"`
	ImagePrompt      string      `json:"image_prompt,omitempty"`
	ImageID          *uuid.UUID  `json:"image_id,omitempty"`
	ImageContentType string      `json:"image_content_type,omitempty"`
	Status           SceneStatus `json:"status"`
	Cost             float64     `json:"cost"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// NewScene creates a new pending Scene for the given storyboard.
// Returns an error if validation fails.
func NewScene(storyboardID uuid.UUID, sceneNumber int, description, action string) (*Scene, error) {
	now := time.Now().UTC()
	scene := &Scene{
		ID:           uuid.New(),
		StoryboardID: storyboardID,
		SceneNumber:  sceneNumber,
		Description:  description,
		Action:       action,
		Status:       SceneStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := scene.Validate(); err != nil {
		return nil, err
	}

	return scene, nil
}

// Validate checks if the Scene has valid data.
// Returns an error if any field fails validation.
func (s *Scene) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySceneID
	}

	if s.StoryboardID == uuid.Nil {
		return ErrEmptySceneStoryboardID
	}

	if s.SceneNumber < 1 {
		return ErrInvalidSceneNumber
	}

	if s.Action == "" {
		return ErrEmptySceneAction
	}

	if !isValidSceneStatus(s.Status) {
		return ErrInvalidSceneStatus
	}

	return nil
}

// isValidSceneStatus checks if the given status is a valid SceneStatus.
func isValidSceneStatus(status SceneStatus) bool {
	switch status {
	case SceneStatusPending, SceneStatusGenerating,
		SceneStatusCompleted, SceneStatusFailed:
		return true
	default:
		return false
	}
}
