package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// StoryboardStatus represents the overall processing state of a storyboard.
type StoryboardStatus string

// Possible storyboard status values
const (
	StoryboardStatusGenerating StoryboardStatus = "generating"
	StoryboardStatusCompleted  StoryboardStatus = "completed"
	StoryboardStatusPartial    StoryboardStatus = "partial"
	StoryboardStatusFailed     StoryboardStatus = "failed"
)

// Common validation errors for Storyboard
var (
	ErrEmptyStoryboardID        = errors.New("storyboard ID cannot be empty")
	ErrEmptyStoryboardUserID    = errors.New("storyboard user ID cannot be empty")
	ErrEmptyStoryboardTitle     = errors.New("storyboard title cannot be empty")
	ErrEmptyStoryboardPrompt    = errors.New("storyboard prompt cannot be empty")
	ErrInvalidStoryboardStatus  = errors.New("invalid storyboard status")
	ErrInvalidStoryboardScenes  = errors.New("storyboard must have at least one scene")
	ErrNegativeStoryboardScenes = errors.New("completed scene count cannot be negative")
)

// Storyboard is the aggregate root for one generated story. It owns its
// Scenes (1:N, cascade delete) and tracks completion and cost accounting
// as the processor works through the scenes.
type Storyboard struct {
	ID                 uuid.UUID        `json:"id"`
	UserID             string           `json:"user_id"`
	Title              string           `json:"title"`
	Logline            string           `json:"logline"`
	OriginalPrompt     string           `json:"original_prompt"`
	StoryAnchorContent string           `json:"story_anchor_content"`
	Status             StoryboardStatus `json:"status"`
	TotalScenes        int              `json:"total_scenes"`
	CompletedScenes    int              `json:"completed_scenes"`
	EstimatedCost      float64          `json:"estimated_cost"`
	ActualCost         float64          `json:"actual_cost"`
	TextCost           float64          `json:"text_cost"`
	ImagesCost         float64          `json:"images_cost"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewStoryboard creates a new Storyboard in the generating state with the
// given plan metadata. It generates a new UUID for the storyboard ID and
// sets the creation/update timestamps.
// Returns an error if validation fails.
func NewStoryboard(
	userID string,
	title string,
	logline string,
	originalPrompt string,
	storyAnchorContent string,
	totalScenes int,
) (*Storyboard, error) {
	now := time.Now().UTC()
	sb := &Storyboard{
		ID:                 uuid.New(),
		UserID:             userID,
		Title:              title,
		Logline:            logline,
		OriginalPrompt:     originalPrompt,
		StoryAnchorContent: storyAnchorContent,
		Status:             StoryboardStatusGenerating,
		TotalScenes:        totalScenes,
		CompletedScenes:    0,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := sb.Validate(); err != nil {
		return nil, err
	}

	return sb, nil
}

// Validate checks if the Storyboard has valid data.
// Returns an error if any field fails validation.
func (s *Storyboard) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptyStoryboardID
	}

	if s.UserID == "" {
		return ErrEmptyStoryboardUserID
	}

	if s.Title == "" {
		return ErrEmptyStoryboardTitle
	}

	if s.OriginalPrompt == "" {
		return ErrEmptyStoryboardPrompt
	}

	if !isValidStoryboardStatus(s.Status) {
		return ErrInvalidStoryboardStatus
	}

	if s.TotalScenes < 1 {
		return ErrInvalidStoryboardScenes
	}

	if s.CompletedScenes < 0 {
		return ErrNegativeStoryboardScenes
	}

	return nil
}

// isValidStoryboardStatus checks if the given status is a valid StoryboardStatus.
func isValidStoryboardStatus(status StoryboardStatus) bool {
	switch status {
	case StoryboardStatusGenerating, StoryboardStatusCompleted,
		StoryboardStatusPartial, StoryboardStatusFailed:
		return true
	default:
		return false
	}
}
