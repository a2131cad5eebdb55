package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/generation"
	"github.com/sketchdeck/storyboard-api/internal/queue"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

type memStoryboards struct {
	mu     sync.Mutex
	boards map[uuid.UUID]*domain.Storyboard
}

func newMemStoryboards() *memStoryboards {
	return &memStoryboards{boards: make(map[uuid.UUID]*domain.Storyboard)}
}

func (m *memStoryboards) Create(_ context.Context, sb *domain.Storyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *sb
	m.boards[sb.ID] = &copied
	return nil
}

func (m *memStoryboards) Get(_ context.Context, id uuid.UUID) (*domain.Storyboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sb, ok := m.boards[id]
	if !ok {
		return nil, store.ErrStoryboardNotFound
	}
	copied := *sb
	return &copied, nil
}

func (m *memStoryboards) ListByUser(_ context.Context, userID string) ([]*domain.Storyboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Storyboard
	for _, sb := range m.boards {
		if sb.UserID == userID {
			copied := *sb
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStoryboards) Update(_ context.Context, id uuid.UUID, update store.StoryboardUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sb, ok := m.boards[id]
	if !ok {
		return store.ErrStoryboardNotFound
	}
	if update.Status != nil {
		sb.Status = *update.Status
	}
	if update.CompletedScenes != nil {
		sb.CompletedScenes = *update.CompletedScenes
	}
	return nil
}

func (m *memStoryboards) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; !ok {
		return store.ErrStoryboardNotFound
	}
	delete(m.boards, id)
	return nil
}

type memScenes struct {
	mu     sync.Mutex
	scenes map[uuid.UUID]*domain.Scene
}

func newMemScenes() *memScenes {
	return &memScenes{scenes: make(map[uuid.UUID]*domain.Scene)}
}

func (m *memScenes) Create(_ context.Context, scene *domain.Scene) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *scene
	m.scenes[scene.ID] = &copied
	return nil
}

func (m *memScenes) Get(_ context.Context, id uuid.UUID) (*domain.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scene, ok := m.scenes[id]
	if !ok {
		return nil, store.ErrSceneNotFound
	}
	copied := *scene
	return &copied, nil
}

func (m *memScenes) ListByStoryboard(_ context.Context, storyboardID uuid.UUID) ([]*domain.Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Scene
	for _, scene := range m.scenes {
		if scene.StoryboardID == storyboardID {
			copied := *scene
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out, nil
}

func (m *memScenes) Update(_ context.Context, id uuid.UUID, update store.SceneUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	scene, ok := m.scenes[id]
	if !ok {
		return store.ErrSceneNotFound
	}
	if update.Status != nil {
		scene.Status = *update.Status
	}
	if update.ImageID != nil {
		scene.ImageID = update.ImageID
	}
	return nil
}

func (m *memScenes) ResetForStoryboard(_ context.Context, storyboardID uuid.UUID, status domain.SceneStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, scene := range m.scenes {
		if scene.StoryboardID == storyboardID {
			scene.Status = status
		}
	}
	return nil
}

type memImages struct {
	mu     sync.Mutex
	images map[uuid.UUID]*store.Image
}

func newMemImages() *memImages {
	return &memImages{images: make(map[uuid.UUID]*store.Image)}
}

func (m *memImages) Store(_ context.Context, data []byte, contentType string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.images[id] = &store.Image{ID: id, ContentType: contentType, Data: data}
	return id, nil
}

func (m *memImages) Get(_ context.Context, id uuid.UUID) (*store.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	image, ok := m.images[id]
	if !ok {
		return nil, store.ErrImageNotFound
	}
	return image, nil
}

func (m *memImages) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.images, id)
	return nil
}

// stubWorkQueue records enqueues and serves canned status and stats.
type stubWorkQueue struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
	deleted  []uuid.UUID
	status   map[uuid.UUID]queue.Status
	stats    queue.Stats
}

func newStubWorkQueue() *stubWorkQueue {
	return &stubWorkQueue{status: make(map[uuid.UUID]queue.Status)}
}

func (s *stubWorkQueue) Enqueue(_ context.Context, storyboardID uuid.UUID, userID string) (*domain.QueueJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueued = append(s.enqueued, storyboardID)
	job, err := domain.NewQueueJob(storyboardID, userID)
	if err != nil {
		return nil, err
	}
	s.status[storyboardID] = queue.Status{
		JobID:    job.ID,
		Status:   domain.QueueJobStatusQueued,
		Position: len(s.enqueued),
	}
	return job, nil
}

func (s *stubWorkQueue) StatusFor(_ context.Context, storyboardID uuid.UUID) (queue.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.status[storyboardID]
	if !ok {
		return queue.Status{}, store.ErrQueueJobNotFound
	}
	return status, nil
}

func (s *stubWorkQueue) Stats(_ context.Context) (queue.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats, nil
}

func (s *stubWorkQueue) DeleteForStoryboard(_ context.Context, storyboardID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, storyboardID)
	delete(s.status, storyboardID)
	return nil
}

// stubPlanner returns a fixed story plan.
type stubPlanner struct {
	plan    *domain.StoryPlan
	planErr error
}

func (s *stubPlanner) GenerateStoryPlan(_ context.Context, _ string) (*domain.StoryPlan, error) {
	if s.planErr != nil {
		return nil, s.planErr
	}
	return s.plan, nil
}

func (s *stubPlanner) GenerateSceneImage(_ context.Context, _, _ string) (*generation.GeneratedImage, error) {
	return nil, errors.New("not implemented")
}

func (s *stubPlanner) WithAPIKey(_ context.Context, _ string) (generation.Generator, error) {
	return s, nil
}

// stubRunner records BYOK invocations and signals each one.
type stubRunner struct {
	mu    sync.Mutex
	runs  []byokRun
	runCh chan byokRun
}

type byokRun struct {
	storyboardID uuid.UUID
	userID       string
	apiKey       string
}

func newStubRunner() *stubRunner {
	return &stubRunner{runCh: make(chan byokRun, 1)}
}

func (s *stubRunner) ProcessWithUserKey(_ context.Context, storyboardID uuid.UUID, userID, apiKey string) error {
	run := byokRun{storyboardID: storyboardID, userID: userID, apiKey: apiKey}
	s.mu.Lock()
	s.runs = append(s.runs, run)
	s.mu.Unlock()
	s.runCh <- run
	return nil
}
