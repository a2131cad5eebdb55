package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sketchdeck/storyboard-api/internal/domain"
)

// QueueJobUpdate is an explicit partial update for a queue job. Only
// non-nil fields are written.
type QueueJobUpdate struct {
	Status      *domain.QueueJobStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       *string
}

// QueueCounts holds per-status job totals for queue statistics.
type QueueCounts struct {
	Queued     int
	Processing int
	Completed  int
	Failed     int
}

// QueueJobStore persists queue jobs and provides the FIFO claim operation
// the processor drains the queue with.
type QueueJobStore interface {
	// Create inserts a new queue job.
	Create(ctx context.Context, job *domain.QueueJob) error

	// Get retrieves a queue job by ID.
	// Returns ErrQueueJobNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.QueueJob, error)

	// GetByStoryboard retrieves the queue job referencing the given
	// storyboard. Returns ErrQueueJobNotFound if none exists.
	GetByStoryboard(ctx context.Context, storyboardID uuid.UUID) (*domain.QueueJob, error)

	// ClaimNext atomically selects the oldest queued job (by queuedAt
	// ascending), transitions it to processing with startedAt set, and
	// returns it. Returns ErrQueueJobNotFound when the queue is empty.
	// Concurrent callers never claim the same job.
	ClaimNext(ctx context.Context) (*domain.QueueJob, error)

	// Update applies the non-nil fields of the update to the job.
	// Returns ErrQueueJobNotFound if it does not exist.
	Update(ctx context.Context, id uuid.UUID, update QueueJobUpdate) error

	// IncrementRetry bumps the job's retry count by one and resets its
	// status to queued so the next trigger re-attempts it.
	IncrementRetry(ctx context.Context, id uuid.UUID) error

	// PositionOf returns the 1-based rank of the job among all queued jobs
	// ordered by queuedAt ascending. Returns 0 if the job is not queued.
	PositionOf(ctx context.Context, id uuid.UUID) (int, error)

	// Counts returns per-status job totals.
	Counts(ctx context.Context) (QueueCounts, error)

	// DeleteTerminalOlderThan removes completed and failed jobs queued
	// before the cutoff. Returns the number of rows removed.
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// DeleteByStoryboard removes any queue rows referencing the storyboard.
	// Part of storyboard deletion.
	DeleteByStoryboard(ctx context.Context, storyboardID uuid.UUID) error
}
