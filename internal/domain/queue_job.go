package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// QueueJobStatus represents the lifecycle state of a queued processing job.
type QueueJobStatus string

// Possible queue job status values
const (
	QueueJobStatusQueued     QueueJobStatus = "queued"
	QueueJobStatusProcessing QueueJobStatus = "processing"
	QueueJobStatusCompleted  QueueJobStatus = "completed"
	QueueJobStatusFailed     QueueJobStatus = "failed"
)

// Common validation errors for QueueJob
var (
	ErrEmptyQueueJobID           = errors.New("queue job ID cannot be empty")
	ErrEmptyQueueJobStoryboardID = errors.New("queue job storyboard ID cannot be empty")
	ErrEmptyQueueJobUserID       = errors.New("queue job user ID cannot be empty")
	ErrInvalidQueueJobStatus     = errors.New("invalid queue job status")
	ErrNegativeRetryCount        = errors.New("retry count cannot be negative")
)

// QueueJob is one unit of shared-key background work: a full scene-generation
// run for one storyboard. Jobs are drained FIFO by queuedAt. A job references
// its storyboard but does not own it.
type QueueJob struct {
	ID           uuid.UUID      `json:"id"`
	StoryboardID uuid.UUID      `json:"storyboard_id"`
	UserID       string         `json:"user_id"`
	Status       QueueJobStatus `json:"status"`
	QueuedAt     time.Time      `json:"queued_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	RetryCount   int            `json:"retry_count"`
	Error        string         `json:"error,omitempty"`
}

// NewQueueJob creates a new queued job for the given storyboard.
// Returns an error if validation fails.
func NewQueueJob(storyboardID uuid.UUID, userID string) (*QueueJob, error) {
	job := &QueueJob{
		ID:           uuid.New(),
		StoryboardID: storyboardID,
		UserID:       userID,
		Status:       QueueJobStatusQueued,
		QueuedAt:     time.Now().UTC(),
		RetryCount:   0,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the QueueJob has valid data.
// Returns an error if any field fails validation.
func (j *QueueJob) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyQueueJobID
	}

	if j.StoryboardID == uuid.Nil {
		return ErrEmptyQueueJobStoryboardID
	}

	if j.UserID == "" {
		return ErrEmptyQueueJobUserID
	}

	if !isValidQueueJobStatus(j.Status) {
		return ErrInvalidQueueJobStatus
	}

	if j.RetryCount < 0 {
		return ErrNegativeRetryCount
	}

	return nil
}

// IsTerminal reports whether the job has reached a final state.
func (j *QueueJob) IsTerminal() bool {
	return j.Status == QueueJobStatusCompleted || j.Status == QueueJobStatusFailed
}

// isValidQueueJobStatus checks if the given status is a valid QueueJobStatus.
func isValidQueueJobStatus(status QueueJobStatus) bool {
	switch status {
	case QueueJobStatusQueued, QueueJobStatusProcessing,
		QueueJobStatusCompleted, QueueJobStatusFailed:
		return true
	default:
		return false
	}
}
