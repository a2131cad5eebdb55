package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/platform/logger"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// StoryboardStore implements store.StoryboardStore using PostgreSQL.
type StoryboardStore struct {
	db store.DBTX
}

// NewStoryboardStore creates a new StoryboardStore.
func NewStoryboardStore(db store.DBTX) *StoryboardStore {
	return &StoryboardStore{db: db}
}

// Create inserts a new storyboard.
func (s *StoryboardStore) Create(ctx context.Context, sb *domain.Storyboard) error {
	if err := sb.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO storyboards (
			id, user_id, title, logline, original_prompt, story_anchor_content,
			status, total_scenes, completed_scenes, estimated_cost, actual_cost,
			text_cost, images_cost, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := s.db.ExecContext(ctx, query,
		sb.ID, sb.UserID, sb.Title, sb.Logline, sb.OriginalPrompt,
		sb.StoryAnchorContent, sb.Status, sb.TotalScenes, sb.CompletedScenes,
		sb.EstimatedCost, sb.ActualCost, sb.TextCost, sb.ImagesCost,
		sb.CreatedAt, sb.UpdatedAt,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to insert storyboard",
			"storyboard_id", sb.ID,
			"error", err)
		return fmt.Errorf("failed to insert storyboard: %w", err)
	}

	return nil
}

// Get retrieves a storyboard by ID.
func (s *StoryboardStore) Get(ctx context.Context, id uuid.UUID) (*domain.Storyboard, error) {
	query := `
		SELECT id, user_id, title, logline, original_prompt, story_anchor_content,
		       status, total_scenes, completed_scenes, estimated_cost, actual_cost,
		       text_cost, images_cost, created_at, updated_at
		FROM storyboards
		WHERE id = $1
	`

	sb, err := scanStoryboard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrStoryboardNotFound
		}
		return nil, fmt.Errorf("failed to get storyboard: %w", err)
	}

	return sb, nil
}

// ListByUser retrieves all storyboards owned by the given user, newest first.
func (s *StoryboardStore) ListByUser(ctx context.Context, userID string) ([]*domain.Storyboard, error) {
	query := `
		SELECT id, user_id, title, logline, original_prompt, story_anchor_content,
		       status, total_scenes, completed_scenes, estimated_cost, actual_cost,
		       text_cost, images_cost, created_at, updated_at
		FROM storyboards
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list storyboards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var storyboards []*domain.Storyboard
	for rows.Next() {
		sb, err := scanStoryboard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan storyboard row: %w", err)
		}
		storyboards = append(storyboards, sb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating storyboard rows: %w", err)
	}

	return storyboards, nil
}

// Update applies the non-nil fields of the update to the storyboard.
func (s *StoryboardStore) Update(ctx context.Context, id uuid.UUID, update store.StoryboardUpdate) error {
	sets := "updated_at = now()"
	args := []any{}
	arg := 1

	appendSet := func(column string, value any) {
		sets += fmt.Sprintf(", %s = $%d", column, arg)
		args = append(args, value)
		arg++
	}

	if update.Status != nil {
		appendSet("status", *update.Status)
	}
	if update.CompletedScenes != nil {
		appendSet("completed_scenes", *update.CompletedScenes)
	}
	if update.EstimatedCost != nil {
		appendSet("estimated_cost", *update.EstimatedCost)
	}
	if update.ActualCost != nil {
		appendSet("actual_cost", *update.ActualCost)
	}
	if update.TextCost != nil {
		appendSet("text_cost", *update.TextCost)
	}
	if update.ImagesCost != nil {
		appendSet("images_cost", *update.ImagesCost)
	}

	query := fmt.Sprintf("UPDATE storyboards SET %s WHERE id = $%d", sets, arg)
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to update storyboard",
			"storyboard_id", id,
			"error", err)
		return fmt.Errorf("failed to update storyboard: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrStoryboardNotFound
	}

	return nil
}

// Delete removes the storyboard row; scene rows and image blobs cascade.
func (s *StoryboardStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM storyboards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrDeleteFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrStoryboardNotFound
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanStoryboard reads one storyboard row.
func scanStoryboard(row rowScanner) (*domain.Storyboard, error) {
	var sb domain.Storyboard
	err := row.Scan(
		&sb.ID, &sb.UserID, &sb.Title, &sb.Logline, &sb.OriginalPrompt,
		&sb.StoryAnchorContent, &sb.Status, &sb.TotalScenes, &sb.CompletedScenes,
		&sb.EstimatedCost, &sb.ActualCost, &sb.TextCost, &sb.ImagesCost,
		&sb.CreatedAt, &sb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sb, nil
}
