package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// ProcessWithUserKey runs a storyboard immediately under the owner's own
// API key and personal rate limit, bypassing the queue. There is no retry:
// on rate-limit exhaustion the loop breaks gracefully and the storyboard
// lands on partial (some scenes done) or failed (none done); any upstream
// generation error fails the storyboard outright.
func (p *Processor) ProcessWithUserKey(
	ctx context.Context,
	storyboardID uuid.UUID,
	userID string,
	apiKey string,
) error {
	gen, err := p.generator.WithAPIKey(ctx, apiKey)
	if err != nil {
		p.failStoryboard(ctx, storyboardID)
		return fmt.Errorf("binding user API key: %w", err)
	}

	storyboard, err := p.storyboards.Get(ctx, storyboardID)
	if err != nil {
		return fmt.Errorf("loading storyboard: %w", err)
	}

	scenes, err := p.scenes.ListByStoryboard(ctx, storyboardID)
	if err != nil {
		return fmt.Errorf("loading scenes: %w", err)
	}

	sourceKey := domain.UserRateSource(userID)
	completedScenes := 0
	totalCost := TextCost
	rateLimited := false

	for _, scene := range scenes {
		ok, err := p.limiter.CanProcess(ctx, sourceKey)
		if err != nil {
			p.failStoryboard(ctx, storyboardID)
			return fmt.Errorf("checking rate limit: %w", err)
		}
		if !ok {
			// No backoff here. The remaining scenes stay pending and
			// the result is terminal.
			p.logger.InfoContext(ctx, "user rate limit reached, stopping",
				slog.String("user_id", userID),
				slog.Int("completed_scenes", completedScenes))
			rateLimited = true
			break
		}

		if err := p.generateScene(ctx, gen, storyboard, scene, sourceKey); err != nil {
			p.failStoryboard(ctx, storyboardID)
			return err
		}
		completedScenes++
		totalCost += ImageCost

		if completedScenes < len(scenes) {
			if err := p.sleep(ctx, p.sceneDelay); err != nil {
				p.failStoryboard(ctx, storyboardID)
				return err
			}
		}
	}

	var status domain.StoryboardStatus
	switch {
	case completedScenes == len(scenes):
		status = domain.StoryboardStatusCompleted
	case completedScenes > 0:
		status = domain.StoryboardStatusPartial
	default:
		status = domain.StoryboardStatusFailed
	}

	textCost := TextCost
	imagesCost := totalCost - TextCost
	if err := p.storyboards.Update(ctx, storyboardID, store.StoryboardUpdate{
		Status:          &status,
		CompletedScenes: &completedScenes,
		EstimatedCost:   &totalCost,
		ActualCost:      &totalCost,
		TextCost:        &textCost,
		ImagesCost:      &imagesCost,
	}); err != nil {
		return fmt.Errorf("finalizing storyboard: %w", err)
	}

	p.logger.InfoContext(ctx, "user-key storyboard finished",
		slog.String("storyboard_id", storyboardID.String()),
		slog.String("status", string(status)),
		slog.Int("completed_scenes", completedScenes),
		slog.Bool("rate_limited", rateLimited))

	return nil
}

// failStoryboard marks the storyboard failed, logging rather than
// propagating a persistence error since a processing error is already in
// flight.
func (p *Processor) failStoryboard(ctx context.Context, storyboardID uuid.UUID) {
	status := domain.StoryboardStatusFailed
	if err := p.storyboards.Update(ctx, storyboardID, store.StoryboardUpdate{
		Status: &status,
	}); err != nil {
		p.logger.ErrorContext(ctx, "failed to mark storyboard failed",
			slog.String("storyboard_id", storyboardID.String()),
			slog.String("error", err.Error()))
	}
}
