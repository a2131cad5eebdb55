package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/generation"
	"github.com/sketchdeck/storyboard-api/internal/queue"
	"github.com/sketchdeck/storyboard-api/internal/ratelimit"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// Generation cost accounting, in dollars.
const (
	// TextCost is the flat cost of the story-structure call.
	TextCost = 0.025

	// ImageCost is the cost of one scene image.
	ImageCost = 0.039
)

// DefaultSceneDelay is the pacing delay between scene generations. Ten
// requests per minute leaves six seconds per request.
const DefaultSceneDelay = 6 * time.Second

// ErrRateLimitExceeded aborts a shared-key job when the limiter still
// refuses admission after the single backoff wait.
var ErrRateLimitExceeded = errors.New("rate limit still exceeded after waiting")

// JobQueue is the slice of the queue service the processor drives.
type JobQueue interface {
	ClaimNext(ctx context.Context) (*domain.QueueJob, error)
	MarkCompleted(ctx context.Context, jobID uuid.UUID) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, message string) error
	RequeueForRetry(ctx context.Context, jobID uuid.UUID) error
}

// RateLimiter is the slice of the rate limiter the processor consumes.
type RateLimiter interface {
	CanProcess(ctx context.Context, sourceKey string) (bool, error)
	Increment(ctx context.Context, sourceKey string) (ratelimit.Result, error)
}

// Processor runs storyboard generation jobs and finalizes their outcome.
type Processor struct {
	storyboards store.StoryboardStore
	scenes      store.SceneStore
	images      store.ImageStore
	jobs        JobQueue
	limiter     RateLimiter
	generator   generation.Generator
	sceneDelay  time.Duration
	logger      *slog.Logger

	// sleep waits for the given duration or context cancellation.
	// Replaced in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Processor. sceneDelay values below zero fall back to
// DefaultSceneDelay; zero disables pacing (useful in tests).
func New(
	storyboards store.StoryboardStore,
	scenes store.SceneStore,
	images store.ImageStore,
	jobs JobQueue,
	limiter RateLimiter,
	generator generation.Generator,
	sceneDelay time.Duration,
	logger *slog.Logger,
) *Processor {
	if sceneDelay < 0 {
		sceneDelay = DefaultSceneDelay
	}
	return &Processor{
		storyboards: storyboards,
		scenes:      scenes,
		images:      images,
		jobs:        jobs,
		limiter:     limiter,
		generator:   generator,
		sceneDelay:  sceneDelay,
		logger:      logger.With(slog.String("component", "processor")),
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessNext claims the oldest queued job and runs it to an outcome. An
// empty queue is not an error. Run failures are absorbed into the job's
// state: requeued while the retry budget lasts, failed once it is spent.
// Only persistence failures during finalization are returned.
func (p *Processor) ProcessNext(ctx context.Context) error {
	job, err := p.jobs.ClaimNext(ctx)
	if errors.Is(err, store.ErrQueueJobNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("claiming job: %w", err)
	}

	totalCost, sceneCount, runErr := p.runSharedJob(ctx, job)
	if runErr == nil {
		return p.finalizeCompleted(ctx, job, sceneCount, totalCost)
	}

	p.logger.WarnContext(ctx, "job run failed",
		slog.String("job_id", job.ID.String()),
		slog.String("storyboard_id", job.StoryboardID.String()),
		slog.Int("retry_count", job.RetryCount),
		slog.String("error", runErr.Error()))

	if job.RetryCount < queue.MaxRetries {
		return p.resetForRetry(ctx, job)
	}
	return p.finalizeFailed(ctx, job, runErr)
}

// runSharedJob generates every scene of the job's storyboard under the
// shared rate limit. Returns the accumulated cost, the scene count, and
// the first error encountered.
func (p *Processor) runSharedJob(
	ctx context.Context,
	job *domain.QueueJob,
) (float64, int, error) {
	storyboard, err := p.storyboards.Get(ctx, job.StoryboardID)
	if err != nil {
		return 0, 0, fmt.Errorf("loading storyboard: %w", err)
	}

	scenes, err := p.scenes.ListByStoryboard(ctx, job.StoryboardID)
	if err != nil {
		return 0, 0, fmt.Errorf("loading scenes: %w", err)
	}

	totalCost := TextCost

	for i, scene := range scenes {
		if err := p.admit(ctx, domain.SharedRateSource); err != nil {
			return totalCost, len(scenes), err
		}

		if err := p.generateScene(ctx, p.generator, storyboard, scene, domain.SharedRateSource); err != nil {
			return totalCost, len(scenes), err
		}
		totalCost += ImageCost

		if i < len(scenes)-1 {
			if err := p.sleep(ctx, p.sceneDelay); err != nil {
				return totalCost, len(scenes), err
			}
		}
	}

	return totalCost, len(scenes), nil
}

// admit checks the rate limiter and, when denied, waits one pacing tick
// and re-checks exactly once.
func (p *Processor) admit(ctx context.Context, sourceKey string) error {
	ok, err := p.limiter.CanProcess(ctx, sourceKey)
	if err != nil {
		return fmt.Errorf("checking rate limit: %w", err)
	}
	if ok {
		return nil
	}

	p.logger.InfoContext(ctx, "rate limit reached, waiting", slog.String("source", sourceKey))
	if err := p.sleep(ctx, p.sceneDelay); err != nil {
		return err
	}

	ok, err = p.limiter.CanProcess(ctx, sourceKey)
	if err != nil {
		return fmt.Errorf("checking rate limit: %w", err)
	}
	if !ok {
		return ErrRateLimitExceeded
	}
	return nil
}

// generateScene runs one scene through the generator and persists the
// result: image blob, prompt, cost, and completed status.
func (p *Processor) generateScene(
	ctx context.Context,
	gen generation.Generator,
	storyboard *domain.Storyboard,
	scene *domain.Scene,
	sourceKey string,
) error {
	generating := domain.SceneStatusGenerating
	if err := p.scenes.Update(ctx, scene.ID, store.SceneUpdate{Status: &generating}); err != nil {
		return fmt.Errorf("marking scene %d generating: %w", scene.SceneNumber, err)
	}

	if _, err := p.limiter.Increment(ctx, sourceKey); err != nil {
		return fmt.Errorf("incrementing rate limit: %w", err)
	}

	image, err := gen.GenerateSceneImage(ctx, storyboard.StoryAnchorContent, scene.Action)
	if err != nil {
		return fmt.Errorf("generating image for scene %d: %w", scene.SceneNumber, err)
	}

	imageID, err := p.images.Store(ctx, image.Data, image.ContentType)
	if err != nil {
		return fmt.Errorf("storing image for scene %d: %w", scene.SceneNumber, err)
	}

	completed := domain.SceneStatusCompleted
	cost := ImageCost
	if err := p.scenes.Update(ctx, scene.ID, store.SceneUpdate{
		Status:           &completed,
		ImageID:          &imageID,
		ImageContentType: &image.ContentType,
		ImagePrompt:      &image.Prompt,
		Cost:             &cost,
	}); err != nil {
		return fmt.Errorf("completing scene %d: %w", scene.SceneNumber, err)
	}

	p.logger.InfoContext(ctx, "scene completed",
		slog.String("storyboard_id", storyboard.ID.String()),
		slog.Int("scene_number", scene.SceneNumber))

	return nil
}

func (p *Processor) finalizeCompleted(
	ctx context.Context,
	job *domain.QueueJob,
	sceneCount int,
	totalCost float64,
) error {
	if err := p.jobs.MarkCompleted(ctx, job.ID); err != nil {
		return err
	}

	status := domain.StoryboardStatusCompleted
	textCost := TextCost
	imagesCost := totalCost - TextCost
	if err := p.storyboards.Update(ctx, job.StoryboardID, store.StoryboardUpdate{
		Status:          &status,
		CompletedScenes: &sceneCount,
		EstimatedCost:   &totalCost,
		ActualCost:      &totalCost,
		TextCost:        &textCost,
		ImagesCost:      &imagesCost,
	}); err != nil {
		return fmt.Errorf("finalizing storyboard: %w", err)
	}

	p.logger.InfoContext(ctx, "storyboard completed",
		slog.String("storyboard_id", job.StoryboardID.String()),
		slog.Int("scenes", sceneCount),
		slog.Float64("total_cost", totalCost))

	return nil
}

// resetForRetry puts the whole job back at the start: the job returns to
// queued with a bumped retry count, the storyboard returns to generating
// with zero completed scenes, and every scene goes back to pending. The
// next trigger re-attempts from scene one.
func (p *Processor) resetForRetry(ctx context.Context, job *domain.QueueJob) error {
	if err := p.jobs.RequeueForRetry(ctx, job.ID); err != nil {
		return err
	}

	status := domain.StoryboardStatusGenerating
	zero := 0
	if err := p.storyboards.Update(ctx, job.StoryboardID, store.StoryboardUpdate{
		Status:          &status,
		CompletedScenes: &zero,
	}); err != nil {
		return fmt.Errorf("resetting storyboard: %w", err)
	}

	if err := p.scenes.ResetForStoryboard(ctx, job.StoryboardID, domain.SceneStatusPending); err != nil {
		return fmt.Errorf("resetting scenes: %w", err)
	}

	return nil
}

func (p *Processor) finalizeFailed(ctx context.Context, job *domain.QueueJob, runErr error) error {
	if err := p.jobs.MarkFailed(ctx, job.ID, runErr.Error()); err != nil {
		return err
	}

	status := domain.StoryboardStatusFailed
	if err := p.storyboards.Update(ctx, job.StoryboardID, store.StoryboardUpdate{
		Status: &status,
	}); err != nil {
		return fmt.Errorf("failing storyboard: %w", err)
	}

	return nil
}
