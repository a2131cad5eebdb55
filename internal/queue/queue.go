package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

const (
	// MaxRetries is the number of full-job attempts before a job is
	// marked failed for good. The first attempt is attempt zero, so a
	// job is retried while retryCount < MaxRetries.
	MaxRetries = 3

	// DefaultSecondsPerJob is the assumed full-job duration used for
	// wait estimates when no measured figure is configured.
	DefaultSecondsPerJob = 90

	// DefaultMaxJobAge is how long terminal jobs are retained before
	// cleanup removes them.
	DefaultMaxJobAge = 24 * time.Hour
)

// ErrAlreadyQueued is returned by Enqueue when the storyboard already has an
// active (queued or processing) job.
var ErrAlreadyQueued = errors.New("storyboard already has an active queue job")

// Status describes a storyboard's place in the queue.
type Status struct {
	JobID      uuid.UUID             `json:"job_id"`
	Status     domain.QueueJobStatus `json:"status"`
	Position   int                   `json:"position"`
	RetryCount int                   `json:"retry_count"`
	Error      string                `json:"error,omitempty"`
}

// Stats summarizes the queue for the stats endpoint.
type Stats struct {
	Queued               int `json:"queued"`
	Processing           int `json:"processing"`
	Completed            int `json:"completed"`
	Failed               int `json:"failed"`
	EstimatedWaitMinutes int `json:"estimated_wait_minutes"`
}

// Service manages the lifecycle of queue jobs on top of a QueueJobStore.
type Service struct {
	jobs          store.QueueJobStore
	secondsPerJob int
	logger        *slog.Logger
	now           func() time.Time
}

// NewService creates a queue service. secondsPerJob feeds wait estimates;
// values below one fall back to DefaultSecondsPerJob.
func NewService(jobs store.QueueJobStore, secondsPerJob int, logger *slog.Logger) *Service {
	if secondsPerJob < 1 {
		secondsPerJob = DefaultSecondsPerJob
	}
	return &Service{
		jobs:          jobs,
		secondsPerJob: secondsPerJob,
		logger:        logger.With(slog.String("component", "queue")),
		now:           time.Now,
	}
}

// Enqueue creates a queued job for the storyboard and returns it. If the
// storyboard already has a queued or processing job, the existing job is
// returned along with ErrAlreadyQueued.
func (s *Service) Enqueue(
	ctx context.Context,
	storyboardID uuid.UUID,
	userID string,
) (*domain.QueueJob, error) {
	existing, err := s.jobs.GetByStoryboard(ctx, storyboardID)
	if err != nil && !errors.Is(err, store.ErrQueueJobNotFound) {
		return nil, fmt.Errorf("checking for existing job: %w", err)
	}
	if existing != nil && !existing.IsTerminal() {
		return existing, ErrAlreadyQueued
	}

	job, err := domain.NewQueueJob(storyboardID, userID)
	if err != nil {
		return nil, fmt.Errorf("creating queue job: %w", err)
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("storing queue job: %w", err)
	}

	s.logger.InfoContext(ctx, "job enqueued",
		slog.String("job_id", job.ID.String()),
		slog.String("storyboard_id", storyboardID.String()))

	return job, nil
}

// ClaimNext atomically claims the oldest queued job for processing.
// Returns store.ErrQueueJobNotFound when the queue is empty.
func (s *Service) ClaimNext(ctx context.Context) (*domain.QueueJob, error) {
	job, err := s.jobs.ClaimNext(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "job claimed",
		slog.String("job_id", job.ID.String()),
		slog.String("storyboard_id", job.StoryboardID.String()),
		slog.Int("retry_count", job.RetryCount))

	return job, nil
}

// MarkCompleted transitions the job to completed with a completion time.
func (s *Service) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	status := domain.QueueJobStatusCompleted
	completedAt := s.now().UTC()

	if err := s.jobs.Update(ctx, jobID, store.QueueJobUpdate{
		Status:      &status,
		CompletedAt: &completedAt,
	}); err != nil {
		return fmt.Errorf("completing job: %w", err)
	}
	return nil
}

// MarkFailed transitions the job to failed, recording the error message.
func (s *Service) MarkFailed(ctx context.Context, jobID uuid.UUID, message string) error {
	status := domain.QueueJobStatusFailed
	completedAt := s.now().UTC()

	if err := s.jobs.Update(ctx, jobID, store.QueueJobUpdate{
		Status:      &status,
		CompletedAt: &completedAt,
		Error:       &message,
	}); err != nil {
		return fmt.Errorf("failing job: %w", err)
	}

	s.logger.WarnContext(ctx, "job failed",
		slog.String("job_id", jobID.String()),
		slog.String("error", message))

	return nil
}

// RequeueForRetry puts the job back at the end of its retry budget: the
// retry count is bumped and the job returns to queued so a later trigger
// re-attempts it. The caller decides whether the budget allows it.
func (s *Service) RequeueForRetry(ctx context.Context, jobID uuid.UUID) error {
	if err := s.jobs.IncrementRetry(ctx, jobID); err != nil {
		return fmt.Errorf("requeueing job: %w", err)
	}

	s.logger.InfoContext(ctx, "job requeued for retry", slog.String("job_id", jobID.String()))
	return nil
}

// StatusFor returns the queue status for a storyboard's job, including its
// 1-based position when still queued. Returns store.ErrQueueJobNotFound if
// the storyboard has no job.
func (s *Service) StatusFor(ctx context.Context, storyboardID uuid.UUID) (Status, error) {
	job, err := s.jobs.GetByStoryboard(ctx, storyboardID)
	if err != nil {
		return Status{}, err
	}

	status := Status{
		JobID:      job.ID,
		Status:     job.Status,
		RetryCount: job.RetryCount,
		Error:      job.Error,
	}

	if job.Status == domain.QueueJobStatusQueued {
		position, err := s.jobs.PositionOf(ctx, job.ID)
		if err != nil {
			return Status{}, fmt.Errorf("computing queue position: %w", err)
		}
		status.Position = position
	}

	return status, nil
}

// Stats returns per-status totals and the estimated wait for a newly
// enqueued job, in whole minutes rounded up.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.jobs.Counts(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting jobs: %w", err)
	}

	waitSeconds := counts.Queued * s.secondsPerJob
	return Stats{
		Queued:               counts.Queued,
		Processing:           counts.Processing,
		Completed:            counts.Completed,
		Failed:               counts.Failed,
		EstimatedWaitMinutes: (waitSeconds + 59) / 60,
	}, nil
}

// DeleteForStoryboard removes any queue rows referencing the storyboard.
// Part of storyboard deletion.
func (s *Service) DeleteForStoryboard(ctx context.Context, storyboardID uuid.UUID) error {
	if err := s.jobs.DeleteByStoryboard(ctx, storyboardID); err != nil {
		return fmt.Errorf("removing queue jobs: %w", err)
	}
	return nil
}

// Cleanup removes terminal jobs queued more than maxAge ago and returns the
// number removed.
func (s *Service) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-maxAge)

	removed, err := s.jobs.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up queue jobs: %w", err)
	}

	if removed > 0 {
		s.logger.InfoContext(ctx, "old queue jobs removed", slog.Int("count", removed))
	}
	return removed, nil
}

// SetClock overrides the service's time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}
