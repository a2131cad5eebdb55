package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/generation"
	"github.com/sketchdeck/storyboard-api/internal/queue"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// WorkQueue is the slice of the queue service the storyboard service uses.
type WorkQueue interface {
	Enqueue(ctx context.Context, storyboardID uuid.UUID, userID string) (*domain.QueueJob, error)
	StatusFor(ctx context.Context, storyboardID uuid.UUID) (queue.Status, error)
	Stats(ctx context.Context) (queue.Stats, error)
	DeleteForStoryboard(ctx context.Context, storyboardID uuid.UUID) error
}

// BYOKRunner runs a storyboard immediately under a user-supplied key.
// Implemented by the processor.
type BYOKRunner interface {
	ProcessWithUserKey(ctx context.Context, storyboardID uuid.UUID, userID, apiKey string) error
}

// CreateResult is the outcome of storyboard submission: either the
// storyboard was queued for shared-key processing (with its position and a
// wait estimate) or BYOK processing started immediately.
type CreateResult struct {
	Storyboard           *domain.Storyboard `json:"storyboard"`
	Queued               bool               `json:"queued"`
	QueuePosition        int                `json:"queue_position,omitempty"`
	EstimatedWaitMinutes int                `json:"estimated_wait_minutes,omitempty"`
	Processing           bool               `json:"processing"`
}

// StoryboardDetail is a storyboard with its scenes and, when one exists,
// its queue status.
type StoryboardDetail struct {
	Storyboard *domain.Storyboard `json:"storyboard"`
	Scenes     []*domain.Scene    `json:"scenes"`
	Queue      *queue.Status      `json:"queue,omitempty"`
}

// StoryboardService implements storyboard creation and lifecycle
// management.
type StoryboardService struct {
	storyboards store.StoryboardStore
	scenes      store.SceneStore
	images      store.ImageStore
	users       store.UserStore
	workQueue   WorkQueue
	keys        *APIKeyService
	generator   generation.Generator
	runner      BYOKRunner
	logger      *slog.Logger
}

// NewStoryboardService creates a StoryboardService.
func NewStoryboardService(
	storyboards store.StoryboardStore,
	scenes store.SceneStore,
	images store.ImageStore,
	users store.UserStore,
	workQueue WorkQueue,
	keys *APIKeyService,
	generator generation.Generator,
	runner BYOKRunner,
	logger *slog.Logger,
) *StoryboardService {
	return &StoryboardService{
		storyboards: storyboards,
		scenes:      scenes,
		images:      images,
		users:       users,
		workQueue:   workQueue,
		keys:        keys,
		generator:   generator,
		runner:      runner,
		logger:      logger.With(slog.String("component", "storyboard_service")),
	}
}

// CreateFromPrompt plans a story from the user's prompt, persists the
// storyboard with its pending scenes, and routes it: BYOK users get
// immediate processing under their own key, everyone else is enqueued for
// the shared-key processor.
func (s *StoryboardService) CreateFromPrompt(
	ctx context.Context,
	userID, prompt string,
) (*CreateResult, error) {
	plan, err := s.generator.GenerateStoryPlan(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("planning story: %w", err)
	}

	storyboard, err := domain.NewStoryboard(
		userID, plan.Title, plan.Logline, prompt, plan.StoryAnchorContent, len(plan.Scenes))
	if err != nil {
		return nil, fmt.Errorf("creating storyboard: %w", err)
	}

	if err := s.storyboards.Create(ctx, storyboard); err != nil {
		return nil, fmt.Errorf("storing storyboard: %w", err)
	}

	for _, planned := range plan.Scenes {
		scene, err := domain.NewScene(storyboard.ID, planned.SceneNumber, planned.Description, planned.Action)
		if err != nil {
			return nil, fmt.Errorf("creating scene %d: %w", planned.SceneNumber, err)
		}
		if err := s.scenes.Create(ctx, scene); err != nil {
			return nil, fmt.Errorf("storing scene %d: %w", planned.SceneNumber, err)
		}
	}

	s.logger.InfoContext(ctx, "storyboard created",
		slog.String("storyboard_id", storyboard.ID.String()),
		slog.String("user_id", userID),
		slog.Int("total_scenes", storyboard.TotalScenes))

	user, err := s.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if user.UsesBYOK() {
		if result, ok := s.startBYOK(ctx, storyboard, userID); ok {
			return result, nil
		}
		// Key retrieval failed: fall through to the shared queue rather
		// than losing the storyboard.
	}

	if _, err := s.workQueue.Enqueue(ctx, storyboard.ID, userID); err != nil {
		return nil, fmt.Errorf("enqueueing storyboard: %w", err)
	}

	result := &CreateResult{Storyboard: storyboard, Queued: true}
	if status, err := s.workQueue.StatusFor(ctx, storyboard.ID); err == nil {
		result.QueuePosition = status.Position
	}
	if stats, err := s.workQueue.Stats(ctx); err == nil {
		result.EstimatedWaitMinutes = stats.EstimatedWaitMinutes
	}
	return result, nil
}

// startBYOK decrypts the user's key and kicks off immediate processing in
// the background. Reports false if the key could not be retrieved.
func (s *StoryboardService) startBYOK(
	ctx context.Context,
	storyboard *domain.Storyboard,
	userID string,
) (*CreateResult, bool) {
	apiKey, err := s.keys.DecryptedKey(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "BYOK key unavailable, falling back to queue",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil, false
	}

	go func() {
		// The request context ends with the HTTP response; processing
		// continues past it.
		runCtx := context.Background()
		if err := s.runner.ProcessWithUserKey(runCtx, storyboard.ID, userID, apiKey); err != nil {
			s.logger.Error("BYOK processing failed",
				slog.String("storyboard_id", storyboard.ID.String()),
				slog.String("error", err.Error()))
		}
	}()

	return &CreateResult{Storyboard: storyboard, Processing: true}, true
}

// Get returns the storyboard with its scenes and queue status. Returns
// ErrNotOwned if the requester is not the owner.
func (s *StoryboardService) Get(
	ctx context.Context,
	userID string,
	storyboardID uuid.UUID,
) (*StoryboardDetail, error) {
	storyboard, err := s.ownedStoryboard(ctx, userID, storyboardID)
	if err != nil {
		return nil, err
	}

	scenes, err := s.scenes.ListByStoryboard(ctx, storyboardID)
	if err != nil {
		return nil, fmt.Errorf("loading scenes: %w", err)
	}

	detail := &StoryboardDetail{Storyboard: storyboard, Scenes: scenes}

	status, err := s.workQueue.StatusFor(ctx, storyboardID)
	switch {
	case err == nil:
		detail.Queue = &status
	case errors.Is(err, store.ErrQueueJobNotFound):
		// BYOK storyboards never have a queue job.
	default:
		return nil, fmt.Errorf("loading queue status: %w", err)
	}

	return detail, nil
}

// QueueStatus returns the storyboard's queue job status. BYOK storyboards
// have no queue job, so store.ErrQueueJobNotFound passes through.
func (s *StoryboardService) QueueStatus(
	ctx context.Context,
	userID string,
	storyboardID uuid.UUID,
) (*queue.Status, error) {
	if _, err := s.ownedStoryboard(ctx, userID, storyboardID); err != nil {
		return nil, err
	}

	status, err := s.workQueue.StatusFor(ctx, storyboardID)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// ListForUser returns the user's storyboards, newest first.
func (s *StoryboardService) ListForUser(ctx context.Context, userID string) ([]*domain.Storyboard, error) {
	return s.storyboards.ListByUser(ctx, userID)
}

// SceneImage returns the stored image blob for a scene, with an ownership
// check against the requesting user.
func (s *StoryboardService) SceneImage(
	ctx context.Context,
	userID string,
	sceneID uuid.UUID,
) (*store.Image, error) {
	scene, err := s.scenes.Get(ctx, sceneID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ownedStoryboard(ctx, userID, scene.StoryboardID); err != nil {
		return nil, err
	}

	if scene.ImageID == nil {
		return nil, store.ErrImageNotFound
	}
	return s.images.Get(ctx, *scene.ImageID)
}

// Delete removes the storyboard, its scenes, their image blobs, and any
// queue rows. Returns ErrNotOwned if the requester is not the owner.
func (s *StoryboardService) Delete(ctx context.Context, userID string, storyboardID uuid.UUID) error {
	if _, err := s.ownedStoryboard(ctx, userID, storyboardID); err != nil {
		return err
	}

	scenes, err := s.scenes.ListByStoryboard(ctx, storyboardID)
	if err != nil {
		return fmt.Errorf("loading scenes: %w", err)
	}

	// Blobs first: scene rows cascade with the storyboard, but blobs are
	// only referenced, not owned, by the schema.
	for _, scene := range scenes {
		if scene.ImageID == nil {
			continue
		}
		if err := s.images.Delete(ctx, *scene.ImageID); err != nil {
			return fmt.Errorf("deleting image for scene %d: %w", scene.SceneNumber, err)
		}
	}

	if err := s.workQueue.DeleteForStoryboard(ctx, storyboardID); err != nil {
		return err
	}

	if err := s.storyboards.Delete(ctx, storyboardID); err != nil {
		return fmt.Errorf("deleting storyboard: %w", err)
	}

	s.logger.InfoContext(ctx, "storyboard deleted",
		slog.String("storyboard_id", storyboardID.String()),
		slog.String("user_id", userID))

	return nil
}

// ownedStoryboard loads the storyboard and verifies ownership.
func (s *StoryboardService) ownedStoryboard(
	ctx context.Context,
	userID string,
	storyboardID uuid.UUID,
) (*domain.Storyboard, error) {
	storyboard, err := s.storyboards.Get(ctx, storyboardID)
	if err != nil {
		return nil, err
	}

	if storyboard.UserID != userID {
		return nil, ErrNotOwned
	}
	return storyboard, nil
}
