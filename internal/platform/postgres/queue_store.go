package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/platform/logger"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// QueueJobStore implements store.QueueJobStore using PostgreSQL.
type QueueJobStore struct {
	db store.DBTX
}

// NewQueueJobStore creates a new QueueJobStore.
func NewQueueJobStore(db store.DBTX) *QueueJobStore {
	return &QueueJobStore{db: db}
}

// Create inserts a new queue job.
func (s *QueueJobStore) Create(ctx context.Context, job *domain.QueueJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO queue_jobs (
			id, storyboard_id, user_id, status, queued_at, started_at,
			completed_at, retry_count, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID, job.StoryboardID, job.UserID, job.Status, job.QueuedAt,
		job.StartedAt, job.CompletedAt, job.RetryCount, job.Error,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to insert queue job",
			"job_id", job.ID,
			"storyboard_id", job.StoryboardID,
			"error", err)
		return fmt.Errorf("failed to insert queue job: %w", err)
	}

	return nil
}

// Get retrieves a queue job by ID.
func (s *QueueJobStore) Get(ctx context.Context, id uuid.UUID) (*domain.QueueJob, error) {
	job, err := scanQueueJob(s.db.QueryRowContext(ctx, selectQueueJob+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQueueJobNotFound
		}
		return nil, fmt.Errorf("failed to get queue job: %w", err)
	}
	return job, nil
}

// GetByStoryboard retrieves the queue job referencing the given storyboard.
func (s *QueueJobStore) GetByStoryboard(ctx context.Context, storyboardID uuid.UUID) (*domain.QueueJob, error) {
	query := selectQueueJob + ` WHERE storyboard_id = $1 ORDER BY queued_at DESC LIMIT 1`

	job, err := scanQueueJob(s.db.QueryRowContext(ctx, query, storyboardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQueueJobNotFound
		}
		return nil, fmt.Errorf("failed to get queue job by storyboard: %w", err)
	}
	return job, nil
}

// ClaimNext atomically transitions the oldest queued job to processing and
// returns it. SKIP LOCKED keeps concurrent claimers from ever seeing the
// same row, so the single-worker invariant holds even if more than one
// scheduler instance is running.
func (s *QueueJobStore) ClaimNext(ctx context.Context) (*domain.QueueJob, error) {
	query := `
		UPDATE queue_jobs
		SET status = $1, started_at = now()
		WHERE id = (
			SELECT id FROM queue_jobs
			WHERE status = $2
			ORDER BY queued_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, storyboard_id, user_id, status, queued_at, started_at,
		          completed_at, retry_count, error
	`

	row := s.db.QueryRowContext(ctx, query,
		domain.QueueJobStatusProcessing, domain.QueueJobStatusQueued)

	job, err := scanQueueJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQueueJobNotFound
		}
		return nil, fmt.Errorf("failed to claim next queue job: %w", err)
	}

	return job, nil
}

// Update applies the non-nil fields of the update to the job.
func (s *QueueJobStore) Update(ctx context.Context, id uuid.UUID, update store.QueueJobUpdate) error {
	sets := ""
	args := []any{}
	arg := 1

	appendSet := func(column string, value any) {
		if sets != "" {
			sets += ", "
		}
		sets += fmt.Sprintf("%s = $%d", column, arg)
		args = append(args, value)
		arg++
	}

	if update.Status != nil {
		appendSet("status", *update.Status)
	}
	if update.StartedAt != nil {
		appendSet("started_at", *update.StartedAt)
	}
	if update.CompletedAt != nil {
		appendSet("completed_at", *update.CompletedAt)
	}
	if update.Error != nil {
		appendSet("error", *update.Error)
	}

	if sets == "" {
		return nil
	}

	query := fmt.Sprintf("UPDATE queue_jobs SET %s WHERE id = $%d", sets, arg)
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to update queue job",
			"job_id", id,
			"error", err)
		return fmt.Errorf("failed to update queue job: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrQueueJobNotFound
	}

	return nil
}

// IncrementRetry bumps the retry count and resets the job to queued.
func (s *QueueJobStore) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE queue_jobs
		SET retry_count = retry_count + 1, status = $1
		WHERE id = $2
	`

	result, err := s.db.ExecContext(ctx, query, domain.QueueJobStatusQueued, id)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrQueueJobNotFound
	}

	return nil
}

// PositionOf computes the 1-based rank of the job among queued jobs at
// query time; positions are never stored.
func (s *QueueJobStore) PositionOf(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		SELECT (
			SELECT COUNT(*) FROM queue_jobs q
			WHERE q.status = $1 AND q.queued_at <= me.queued_at
		)
		FROM queue_jobs me
		WHERE me.id = $2 AND me.status = $1
	`

	var position int
	err := s.db.QueryRowContext(ctx, query, domain.QueueJobStatusQueued, id).Scan(&position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to compute queue position: %w", err)
	}

	return position, nil
}

// Counts returns per-status job totals.
func (s *QueueJobStore) Counts(ctx context.Context) (store.QueueCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'queued'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM queue_jobs
	`

	var counts store.QueueCounts
	err := s.db.QueryRowContext(ctx, query).Scan(
		&counts.Queued, &counts.Processing, &counts.Completed, &counts.Failed)
	if err != nil {
		return store.QueueCounts{}, fmt.Errorf("failed to count queue jobs: %w", err)
	}

	return counts, nil
}

// DeleteTerminalOlderThan removes completed and failed jobs queued before
// the cutoff.
func (s *QueueJobStore) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM queue_jobs
		WHERE status IN ($1, $2) AND queued_at < $3
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.QueueJobStatusCompleted, domain.QueueJobStatusFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old queue jobs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

// DeleteByStoryboard removes any queue rows referencing the storyboard.
func (s *QueueJobStore) DeleteByStoryboard(ctx context.Context, storyboardID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM queue_jobs WHERE storyboard_id = $1`, storyboardID)
	if err != nil {
		return fmt.Errorf("failed to delete queue jobs for storyboard: %w", err)
	}
	return nil
}

const selectQueueJob = `
	SELECT id, storyboard_id, user_id, status, queued_at, started_at,
	       completed_at, retry_count, error
	FROM queue_jobs`

// scanQueueJob reads one queue job row.
func scanQueueJob(row rowScanner) (*domain.QueueJob, error) {
	var job domain.QueueJob
	var startedAt, completedAt sql.NullTime
	var errMsg sql.NullString

	err := row.Scan(
		&job.ID, &job.StoryboardID, &job.UserID, &job.Status, &job.QueuedAt,
		&startedAt, &completedAt, &job.RetryCount, &errMsg,
	)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	job.Error = errMsg.String

	return &job, nil
}
