package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"google.golang.org/genai"

	"github.com/sketchdeck/storyboard-api/internal/config"
	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/generation"
)

// Generator implements the generation.Generator interface using Google's
// Gemini API. A Generator is bound to one API key; WithAPIKey produces a
// sibling bound to a user-supplied key for BYOK processing.
type Generator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// client is the Gemini API client for making requests
	client *genai.Client

	// storyModel is the text model used for story-structure generation
	storyModel string

	// imageModel is the model used for scene image generation
	imageModel string
}

// NewGenerator creates a Generator bound to the shared server API key.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.StoryModel == "" {
		return nil, fmt.Errorf("%w: story model cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ImageModel == "" {
		return nil, fmt.Errorf("%w: image model cannot be empty", generation.ErrInvalidConfig)
	}

	return newWithKey(ctx, logger, cfg.GeminiAPIKey, cfg.StoryModel, cfg.ImageModel)
}

func newWithKey(
	ctx context.Context,
	logger *slog.Logger,
	apiKey, storyModel, imageModel string,
) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:     logger,
		client:     client,
		storyModel: storyModel,
		imageModel: imageModel,
	}, nil
}

// WithAPIKey returns a Generator that uses the given key and the same model
// configuration. Part of the generation.Generator interface.
func (g *Generator) WithAPIKey(ctx context.Context, apiKey string) (generation.Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", generation.ErrInvalidConfig)
	}
	return newWithKey(ctx, g.logger, apiKey, g.storyModel, g.imageModel)
}

// GenerateStoryPlan asks the text model for a structured story plan and
// parses the JSON object out of its response.
func (g *Generator) GenerateStoryPlan(ctx context.Context, prompt string) (*domain.StoryPlan, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	g.logger.InfoContext(ctx, "generating story plan",
		slog.String("model", g.storyModel),
		slog.Int("prompt_length", len(prompt)))

	resp, err := g.client.Models.GenerateContent(ctx, g.storyModel, genai.Text(planPrompt(prompt)), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	plan, err := parsePlan(text)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "story plan generated",
		slog.String("title", plan.Title),
		slog.Int("scene_count", len(plan.Scenes)))

	return plan, nil
}

// parsePlan extracts and validates the story plan JSON from model output.
func parsePlan(text string) (*domain.StoryPlan, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in response", generation.ErrInvalidResponse)
	}

	var plan domain.StoryPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
			generation.ErrInvalidResponse, err)
	}

	// Models occasionally emit scenes out of order.
	sort.Slice(plan.Scenes, func(i, j int) bool {
		return plan.Scenes[i].SceneNumber < plan.Scenes[j].SceneNumber
	})

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	return &plan, nil
}

// GenerateSceneImage renders one scene with the image model and returns the
// first inline image from the response.
func (g *Generator) GenerateSceneImage(
	ctx context.Context,
	storyAnchor, sceneAction string,
) (*generation.GeneratedImage, error) {
	if sceneAction == "" {
		return nil, ErrEmptySceneAction
	}

	prompt := ScenePrompt(storyAnchor, sceneAction)

	g.logger.InfoContext(ctx, "generating scene image",
		slog.String("model", g.imageModel),
		slog.Int("prompt_length", len(prompt)))

	resp, err := g.client.Models.GenerateContent(ctx, g.imageModel, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	if err := checkCandidates(resp); err != nil {
		return nil, err
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}

		contentType := part.InlineData.MIMEType
		if contentType == "" {
			contentType = "image/png"
		}

		return &generation.GeneratedImage{
			Data:        part.InlineData.Data,
			ContentType: contentType,
			Prompt:      prompt,
		}, nil
	}

	return nil, generation.ErrNoImage
}

// checkCandidates validates the response envelope shared by both calls.
func checkCandidates(resp *genai.GenerateContentResponse) error {
	if resp == nil || len(resp.Candidates) == 0 {
		return fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}

	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	return nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if err := checkCandidates(resp); err != nil {
		return "", err
	}

	text := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			text += part.Text
		}
	}

	if text == "" {
		return "", fmt.Errorf("%w: no text in response", generation.ErrInvalidResponse)
	}

	return text, nil
}
