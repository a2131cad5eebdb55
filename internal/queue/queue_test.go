package queue

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// memoryJobStore is an in-memory store.QueueJobStore for tests.
type memoryJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.QueueJob
}

func newMemoryJobStore() *memoryJobStore {
	return &memoryJobStore{jobs: make(map[uuid.UUID]*domain.QueueJob)}
}

func (m *memoryJobStore) Create(_ context.Context, job *domain.QueueJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memoryJobStore) Get(_ context.Context, id uuid.UUID) (*domain.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, store.ErrQueueJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memoryJobStore) GetByStoryboard(
	_ context.Context,
	storyboardID uuid.UUID,
) (*domain.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.StoryboardID == storyboardID {
			copied := *job
			return &copied, nil
		}
	}
	return nil, store.ErrQueueJobNotFound
}

func (m *memoryJobStore) ClaimNext(_ context.Context) (*domain.QueueJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldest := m.oldestQueuedLocked()
	if oldest == nil {
		return nil, store.ErrQueueJobNotFound
	}

	startedAt := time.Now().UTC()
	oldest.Status = domain.QueueJobStatusProcessing
	oldest.StartedAt = &startedAt

	copied := *oldest
	return &copied, nil
}

func (m *memoryJobStore) Update(_ context.Context, id uuid.UUID, update store.QueueJobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrQueueJobNotFound
	}
	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.StartedAt != nil {
		job.StartedAt = update.StartedAt
	}
	if update.CompletedAt != nil {
		job.CompletedAt = update.CompletedAt
	}
	if update.Error != nil {
		job.Error = *update.Error
	}
	return nil
}

func (m *memoryJobStore) IncrementRetry(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return store.ErrQueueJobNotFound
	}
	job.RetryCount++
	job.Status = domain.QueueJobStatusQueued
	return nil
}

func (m *memoryJobStore) PositionOf(_ context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != domain.QueueJobStatusQueued {
		return 0, nil
	}
	position := 0
	for _, other := range m.jobs {
		if other.Status == domain.QueueJobStatusQueued && !other.QueuedAt.After(job.QueuedAt) {
			position++
		}
	}
	return position, nil
}

func (m *memoryJobStore) Counts(_ context.Context) (store.QueueCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var counts store.QueueCounts
	for _, job := range m.jobs {
		switch job.Status {
		case domain.QueueJobStatusQueued:
			counts.Queued++
		case domain.QueueJobStatusProcessing:
			counts.Processing++
		case domain.QueueJobStatusCompleted:
			counts.Completed++
		case domain.QueueJobStatusFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

func (m *memoryJobStore) DeleteTerminalOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, job := range m.jobs {
		if job.IsTerminal() && job.QueuedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed, nil
}

func (m *memoryJobStore) DeleteByStoryboard(_ context.Context, storyboardID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, job := range m.jobs {
		if job.StoryboardID == storyboardID {
			delete(m.jobs, id)
		}
	}
	return nil
}

func (m *memoryJobStore) oldestQueuedLocked() *domain.QueueJob {
	queued := make([]*domain.QueueJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		if job.Status == domain.QueueJobStatusQueued {
			queued = append(queued, job)
		}
	}
	if len(queued) == 0 {
		return nil
	}
	sort.Slice(queued, func(i, j int) bool {
		return queued[i].QueuedAt.Before(queued[j].QueuedAt)
	})
	return queued[0]
}

func newTestService(t *testing.T) (*Service, *memoryJobStore) {
	t.Helper()
	jobs := newMemoryJobStore()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewService(jobs, DefaultSecondsPerJob, logger), jobs
}

// seedJob inserts a queued job with an explicit queuedAt for ordering tests.
func seedJob(t *testing.T, jobs *memoryJobStore, queuedAt time.Time) *domain.QueueJob {
	t.Helper()
	job, err := domain.NewQueueJob(uuid.New(), "user_"+uuid.NewString()[:8])
	require.NoError(t, err)
	job.QueuedAt = queuedAt
	require.NoError(t, jobs.Create(context.Background(), job))
	return job
}

func TestEnqueue(t *testing.T) {
	t.Parallel()
	service, _ := newTestService(t)
	ctx := context.Background()

	storyboardID := uuid.New()
	job, err := service.Enqueue(ctx, storyboardID, "user_2x91")
	require.NoError(t, err)
	assert.Equal(t, domain.QueueJobStatusQueued, job.Status)
	assert.Equal(t, storyboardID, job.StoryboardID)
	assert.Zero(t, job.RetryCount)

	// A second enqueue for the same storyboard returns the active job.
	duplicate, err := service.Enqueue(ctx, storyboardID, "user_2x91")
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	require.NotNil(t, duplicate)
	assert.Equal(t, job.ID, duplicate.ID)
}

func TestClaimNextIsFIFO(t *testing.T) {
	t.Parallel()
	service, jobs := newTestService(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	third := seedJob(t, jobs, base.Add(2*time.Minute))
	first := seedJob(t, jobs, base)
	second := seedJob(t, jobs, base.Add(time.Minute))

	for _, want := range []*domain.QueueJob{first, second, third} {
		claimed, err := service.ClaimNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, want.ID, claimed.ID)
		assert.Equal(t, domain.QueueJobStatusProcessing, claimed.Status)
		require.NotNil(t, claimed.StartedAt)
	}

	_, err := service.ClaimNext(ctx)
	assert.ErrorIs(t, err, store.ErrQueueJobNotFound)
}

func TestMarkCompletedAndFailed(t *testing.T) {
	t.Parallel()
	service, jobs := newTestService(t)
	ctx := context.Background()

	job := seedJob(t, jobs, time.Now().UTC())

	require.NoError(t, service.MarkCompleted(ctx, job.ID))
	stored, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueJobStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	other := seedJob(t, jobs, time.Now().UTC())
	require.NoError(t, service.MarkFailed(ctx, other.ID, "generation failed"))
	stored, err = jobs.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueJobStatusFailed, stored.Status)
	assert.Equal(t, "generation failed", stored.Error)
}

func TestRequeueForRetry(t *testing.T) {
	t.Parallel()
	service, jobs := newTestService(t)
	ctx := context.Background()

	job := seedJob(t, jobs, time.Now().UTC())
	claimed, err := service.ClaimNext(ctx)
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)

	require.NoError(t, service.RequeueForRetry(ctx, job.ID))

	stored, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueJobStatusQueued, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()
	service, jobs := newTestService(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	first := seedJob(t, jobs, base)
	second := seedJob(t, jobs, base.Add(time.Minute))

	status, err := service.StatusFor(ctx, second.StoryboardID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueJobStatusQueued, status.Status)
	assert.Equal(t, 2, status.Position)

	// Once the job leaves the queued state the position is no longer
	// reported.
	_, err = service.ClaimNext(ctx)
	require.NoError(t, err)

	status, err = service.StatusFor(ctx, first.StoryboardID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueJobStatusProcessing, status.Status)
	assert.Zero(t, status.Position)

	_, err = service.StatusFor(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrQueueJobNotFound)
}

func TestStats(t *testing.T) {
	t.Parallel()
	service, jobs := newTestService(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)
	seedJob(t, jobs, base)
	seedJob(t, jobs, base.Add(time.Minute))
	seedJob(t, jobs, base.Add(2*time.Minute))

	_, err := service.ClaimNext(ctx)
	require.NoError(t, err)

	stats, err := service.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Queued)
	assert.Equal(t, 1, stats.Processing)

	// Two queued jobs at 90 seconds each rounds up to 3 minutes.
	assert.Equal(t, 3, stats.EstimatedWaitMinutes)
}

func TestCleanup(t *testing.T) {
	t.Parallel()
	service, jobs := newTestService(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	terminal := seedJob(t, jobs, old)
	require.NoError(t, service.MarkCompleted(ctx, terminal.ID))

	// Still-queued jobs survive regardless of age.
	survivor := seedJob(t, jobs, old)

	removed, err := service.Cleanup(ctx, DefaultMaxJobAge)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = jobs.Get(ctx, terminal.ID)
	assert.ErrorIs(t, err, store.ErrQueueJobNotFound)
	_, err = jobs.Get(ctx, survivor.ID)
	assert.NoError(t, err)
}
