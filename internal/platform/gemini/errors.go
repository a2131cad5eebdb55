package gemini

import "errors"

// Validation errors for generator inputs
var (
	// ErrEmptyPrompt is returned when a story plan is requested for an
	// empty user prompt
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrEmptySceneAction is returned when an image is requested without
	// a scene action block
	ErrEmptySceneAction = errors.New("scene action cannot be empty")
)
