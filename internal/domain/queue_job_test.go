package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueJob(t *testing.T) {
	t.Parallel()

	storyboardID := uuid.New()
	job, err := NewQueueJob(storyboardID, "user_2x91")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, storyboardID, job.StoryboardID)
	assert.Equal(t, QueueJobStatusQueued, job.Status)
	assert.Zero(t, job.RetryCount)
	assert.Nil(t, job.StartedAt)
	assert.Nil(t, job.CompletedAt)
	assert.False(t, job.QueuedAt.IsZero())
}

func TestQueueJobValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*QueueJob)
		wantErr error
	}{
		{"valid job", func(j *QueueJob) {}, nil},
		{"missing ID", func(j *QueueJob) { j.ID = uuid.Nil }, ErrEmptyQueueJobID},
		{"missing storyboard ID", func(j *QueueJob) { j.StoryboardID = uuid.Nil }, ErrEmptyQueueJobStoryboardID},
		{"missing user ID", func(j *QueueJob) { j.UserID = "" }, ErrEmptyQueueJobUserID},
		{"bogus status", func(j *QueueJob) { j.Status = "paused" }, ErrInvalidQueueJobStatus},
		{"negative retry count", func(j *QueueJob) { j.RetryCount = -1 }, ErrNegativeRetryCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job, err := NewQueueJob(uuid.New(), "user_2x91")
			require.NoError(t, err)
			tt.mutate(job)

			err = job.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestQueueJobIsTerminal(t *testing.T) {
	t.Parallel()

	job, err := NewQueueJob(uuid.New(), "user_2x91")
	require.NoError(t, err)

	assert.False(t, job.IsTerminal())

	job.Status = QueueJobStatusProcessing
	assert.False(t, job.IsTerminal())

	job.Status = QueueJobStatusCompleted
	assert.True(t, job.IsTerminal())

	job.Status = QueueJobStatusFailed
	assert.True(t, job.IsTerminal())
}
