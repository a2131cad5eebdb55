package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoryboard(t *testing.T) {
	t.Parallel()

	sb, err := NewStoryboard(
		"user_2x91",
		"The Lighthouse Keeper",
		"A keeper discovers the light has been guiding something ashore.",
		"a lonely lighthouse keeper",
		"--SCENE CONTENT--\nA weathered keeper in his sixties...",
		4,
	)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, sb.ID)
	assert.Equal(t, "user_2x91", sb.UserID)
	assert.Equal(t, StoryboardStatusGenerating, sb.Status)
	assert.Equal(t, 4, sb.TotalScenes)
	assert.Equal(t, 0, sb.CompletedScenes)
	assert.False(t, sb.CreatedAt.IsZero())
}

func TestStoryboardValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Storyboard {
		return &Storyboard{
			ID:             uuid.New(),
			UserID:         "user_2x91",
			Title:          "Title",
			OriginalPrompt: "prompt",
			Status:         StoryboardStatusGenerating,
			TotalScenes:    3,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Storyboard)
		wantErr error
	}{
		{
			name:    "valid storyboard",
			mutate:  func(s *Storyboard) {},
			wantErr: nil,
		},
		{
			name:    "missing ID",
			mutate:  func(s *Storyboard) { s.ID = uuid.Nil },
			wantErr: ErrEmptyStoryboardID,
		},
		{
			name:    "missing user ID",
			mutate:  func(s *Storyboard) { s.UserID = "" },
			wantErr: ErrEmptyStoryboardUserID,
		},
		{
			name:    "missing title",
			mutate:  func(s *Storyboard) { s.Title = "" },
			wantErr: ErrEmptyStoryboardTitle,
		},
		{
			name:    "missing prompt",
			mutate:  func(s *Storyboard) { s.OriginalPrompt = "" },
			wantErr: ErrEmptyStoryboardPrompt,
		},
		{
			name:    "bogus status",
			mutate:  func(s *Storyboard) { s.Status = "archived" },
			wantErr: ErrInvalidStoryboardStatus,
		},
		{
			name:    "zero scenes",
			mutate:  func(s *Storyboard) { s.TotalScenes = 0 },
			wantErr: ErrInvalidStoryboardScenes,
		},
		{
			name:    "negative completed count",
			mutate:  func(s *Storyboard) { s.CompletedScenes = -1 },
			wantErr: ErrNegativeStoryboardScenes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sb := valid()
			tt.mutate(sb)

			err := sb.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
