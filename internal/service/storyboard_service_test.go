package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

type serviceFixture struct {
	svc         *StoryboardService
	keys        *APIKeyService
	storyboards *memStoryboards
	scenes      *memScenes
	images      *memImages
	users       *fakeUserStore
	workQueue   *stubWorkQueue
	planner     *stubPlanner
	runner      *stubRunner
}

func testPlan() *domain.StoryPlan {
	return &domain.StoryPlan{
		Title:              "The Lighthouse Keeper",
		Logline:            "A keeper confronts the storm that took his brother.",
		StoryAnchorContent: "--SCENE CONTENT--\nanchor",
		Scenes: []domain.PlannedScene{
			{SceneNumber: 1, Description: "d1", Action: "--SCENE ACTION--\na1"},
			{SceneNumber: 2, Description: "d2", Action: "--SCENE ACTION--\na2"},
			{SceneNumber: 3, Description: "d3", Action: "--SCENE ACTION--\na3"},
		},
	}
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		storyboards: newMemStoryboards(),
		scenes:      newMemScenes(),
		images:      newMemImages(),
		users:       newFakeUserStore(),
		workQueue:   newStubWorkQueue(),
		planner:     &stubPlanner{plan: testPlan()},
		runner:      newStubRunner(),
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	keys, err := NewAPIKeyService(f.users, testEncryptionKey, logger)
	require.NoError(t, err)
	f.keys = keys

	f.svc = NewStoryboardService(
		f.storyboards, f.scenes, f.images, f.users,
		f.workQueue, keys, f.planner, f.runner, logger)

	return f
}

func TestCreateFromPromptQueuesSharedKeyUsers(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	f.workQueue.stats.EstimatedWaitMinutes = 2

	result, err := f.svc.CreateFromPrompt(ctx, "user_2x91", "a lighthouse story")
	require.NoError(t, err)

	assert.True(t, result.Queued)
	assert.False(t, result.Processing)
	assert.Equal(t, 1, result.QueuePosition)
	assert.Equal(t, 2, result.EstimatedWaitMinutes)

	sb := result.Storyboard
	assert.Equal(t, "The Lighthouse Keeper", sb.Title)
	assert.Equal(t, "a lighthouse story", sb.OriginalPrompt)
	assert.Equal(t, domain.StoryboardStatusGenerating, sb.Status)
	assert.Equal(t, 3, sb.TotalScenes)

	scenes, err := f.scenes.ListByStoryboard(ctx, sb.ID)
	require.NoError(t, err)
	require.Len(t, scenes, 3)
	for i, scene := range scenes {
		assert.Equal(t, i+1, scene.SceneNumber)
		assert.Equal(t, domain.SceneStatusPending, scene.Status)
	}

	require.Len(t, f.workQueue.enqueued, 1)
	assert.Equal(t, sb.ID, f.workQueue.enqueued[0])
	assert.Empty(t, f.runner.runs)
}

func TestCreateFromPromptRunsBYOKImmediately(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.keys.SetKey(ctx, "user_2x91", testAPIKey))

	result, err := f.svc.CreateFromPrompt(ctx, "user_2x91", "a lighthouse story")
	require.NoError(t, err)

	assert.True(t, result.Processing)
	assert.False(t, result.Queued)
	assert.Empty(t, f.workQueue.enqueued)

	select {
	case run := <-f.runner.runCh:
		assert.Equal(t, result.Storyboard.ID, run.storyboardID)
		assert.Equal(t, "user_2x91", run.userID)
		assert.Equal(t, testAPIKey, run.apiKey)
	case <-time.After(time.Second):
		t.Fatal("BYOK run was not started")
	}
}

func TestCreateFromPromptFallsBackWhenKeyUnreadable(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.keys.SetKey(ctx, "user_2x91", testAPIKey))

	// Corrupt the ciphertext so decryption fails at submission time.
	f.users.mu.Lock()
	f.users.users["user_2x91"].EncryptedAPIKey[10] ^= 0xff
	f.users.mu.Unlock()

	result, err := f.svc.CreateFromPrompt(ctx, "user_2x91", "a lighthouse story")
	require.NoError(t, err)

	assert.True(t, result.Queued)
	assert.Len(t, f.workQueue.enqueued, 1)
	assert.Empty(t, f.runner.runs)
}

func TestCreateFromPromptPropagatesPlannerError(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.planner.planErr = assert.AnError

	_, err := f.svc.CreateFromPrompt(context.Background(), "user_2x91", "a lighthouse story")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, f.workQueue.enqueued)
}

func TestGetEnforcesOwnership(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	result, err := f.svc.CreateFromPrompt(ctx, "user_2x91", "a lighthouse story")
	require.NoError(t, err)

	detail, err := f.svc.Get(ctx, "user_2x91", result.Storyboard.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Scenes, 3)
	require.NotNil(t, detail.Queue)
	assert.Equal(t, 1, detail.Queue.Position)

	_, err = f.svc.Get(ctx, "user_other", result.Storyboard.ID)
	assert.ErrorIs(t, err, ErrNotOwned)

	_, err = f.svc.Get(ctx, "user_2x91", uuid.New())
	assert.ErrorIs(t, err, store.ErrStoryboardNotFound)
}

func TestQueueStatus(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	result, err := f.svc.CreateFromPrompt(ctx, "user_2x91", "a lighthouse story")
	require.NoError(t, err)

	status, err := f.svc.QueueStatus(ctx, "user_2x91", result.Storyboard.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueJobStatusQueued, status.Status)
	assert.Equal(t, 1, status.Position)

	_, err = f.svc.QueueStatus(ctx, "user_other", result.Storyboard.ID)
	assert.ErrorIs(t, err, ErrNotOwned)
}

func TestDeleteCascades(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	result, err := f.svc.CreateFromPrompt(ctx, "user_2x91", "a lighthouse story")
	require.NoError(t, err)
	sbID := result.Storyboard.ID

	// Simulate a completed scene with a stored blob.
	scenes, err := f.scenes.ListByStoryboard(ctx, sbID)
	require.NoError(t, err)
	imageID, err := f.images.Store(ctx, []byte("charcoal-sketch"), "image/png")
	require.NoError(t, err)
	require.NoError(t, f.scenes.Update(ctx, scenes[0].ID, store.SceneUpdate{ImageID: &imageID}))

	// A different user cannot delete it.
	assert.ErrorIs(t, f.svc.Delete(ctx, "user_other", sbID), ErrNotOwned)

	require.NoError(t, f.svc.Delete(ctx, "user_2x91", sbID))

	_, err = f.storyboards.Get(ctx, sbID)
	assert.ErrorIs(t, err, store.ErrStoryboardNotFound)

	_, err = f.images.Get(ctx, imageID)
	assert.ErrorIs(t, err, store.ErrImageNotFound)

	assert.Equal(t, []uuid.UUID{sbID}, f.workQueue.deleted)
}

func TestSceneImage(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	result, err := f.svc.CreateFromPrompt(ctx, "user_2x91", "a lighthouse story")
	require.NoError(t, err)

	scenes, err := f.scenes.ListByStoryboard(ctx, result.Storyboard.ID)
	require.NoError(t, err)

	// No image stored yet.
	_, err = f.svc.SceneImage(ctx, "user_2x91", scenes[0].ID)
	assert.ErrorIs(t, err, store.ErrImageNotFound)

	imageID, err := f.images.Store(ctx, []byte("charcoal-sketch"), "image/png")
	require.NoError(t, err)
	require.NoError(t, f.scenes.Update(ctx, scenes[0].ID, store.SceneUpdate{ImageID: &imageID}))

	image, err := f.svc.SceneImage(ctx, "user_2x91", scenes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", image.ContentType)
	assert.Equal(t, []byte("charcoal-sketch"), image.Data)

	_, err = f.svc.SceneImage(ctx, "user_other", scenes[0].ID)
	assert.ErrorIs(t, err, ErrNotOwned)
}
