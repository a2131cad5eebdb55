package processor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// Completion is the result of one CheckCompletion pass.
type Completion struct {
	Status          domain.StoryboardStatus
	CompletedScenes int
	FailedScenes    int
	PendingScenes   int
	ActualCost      float64

	// Finalized reports whether the storyboard was moved to a terminal
	// status by this pass. False while scenes are still pending.
	Finalized bool
}

// CheckCompletion recomputes a storyboard's progress from its current
// scene rows and finalizes its status once no scene is pending. The
// computation carries no state forward, so repeated invocations on the
// same scene state produce the same outcome.
func (p *Processor) CheckCompletion(ctx context.Context, storyboardID uuid.UUID) (Completion, error) {
	scenes, err := p.scenes.ListByStoryboard(ctx, storyboardID)
	if err != nil {
		return Completion{}, fmt.Errorf("loading scenes: %w", err)
	}

	result := Completion{ActualCost: TextCost}
	for _, scene := range scenes {
		switch scene.Status {
		case domain.SceneStatusCompleted:
			result.CompletedScenes++
			result.ActualCost += scene.Cost
		case domain.SceneStatusFailed:
			result.FailedScenes++
		default:
			// Pending and generating scenes both mean work remains.
			result.PendingScenes++
		}
	}

	if result.PendingScenes > 0 {
		result.Status = domain.StoryboardStatusGenerating
		return result, nil
	}

	switch {
	case result.CompletedScenes == len(scenes):
		result.Status = domain.StoryboardStatusCompleted
	case result.CompletedScenes > 0:
		result.Status = domain.StoryboardStatusPartial
	default:
		result.Status = domain.StoryboardStatusFailed
	}
	result.Finalized = true

	textCost := TextCost
	imagesCost := result.ActualCost - TextCost
	if err := p.storyboards.Update(ctx, storyboardID, store.StoryboardUpdate{
		Status:          &result.Status,
		CompletedScenes: &result.CompletedScenes,
		ActualCost:      &result.ActualCost,
		TextCost:        &textCost,
		ImagesCost:      &imagesCost,
	}); err != nil {
		return Completion{}, fmt.Errorf("finalizing storyboard: %w", err)
	}

	p.logger.InfoContext(ctx, "storyboard finalized",
		slog.String("storyboard_id", storyboardID.String()),
		slog.String("status", string(result.Status)),
		slog.Int("completed_scenes", result.CompletedScenes))

	return result, nil
}
