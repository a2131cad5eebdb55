package generation

import (
	"context"

	"github.com/sketchdeck/storyboard-api/internal/domain"
)

// GeneratedImage is one rendered scene image as returned by the model,
// together with the full prompt that produced it.
type GeneratedImage struct {
	Data        []byte
	ContentType string
	Prompt      string
}

// Generator defines the interface for AI story planning and image rendering.
// This interface serves as a boundary between the application core and
// external AI/LLM services, following the hexagonal architecture pattern.
type Generator interface {
	// GenerateStoryPlan turns a user prompt into a structured story plan.
	// The model chooses the narrative length; the returned plan is
	// validated so scene numbers run 1..N with no gaps.
	//
	// Returns ErrInvalidResponse if the model output cannot be parsed,
	// ErrContentBlocked if safety filters rejected the prompt, or
	// ErrGenerationFailed for other upstream failures.
	GenerateStoryPlan(ctx context.Context, prompt string) (*domain.StoryPlan, error)

	// GenerateSceneImage renders one scene as an image. The story anchor
	// carries the shared visual identity; the scene action describes what
	// this frame shows.
	//
	// Returns ErrNoImage if the response carries no inline image data and
	// ErrContentBlocked if safety filters rejected the request.
	GenerateSceneImage(ctx context.Context, storyAnchor, sceneAction string) (*GeneratedImage, error)

	// WithAPIKey returns a Generator bound to the given API key instead of
	// the server's shared key. Used for bring-your-own-key processing.
	WithAPIKey(ctx context.Context, apiKey string) (Generator, error)
}
