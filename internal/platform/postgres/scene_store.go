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

// SceneStore implements store.SceneStore using PostgreSQL.
type SceneStore struct {
	db store.DBTX
}

// NewSceneStore creates a new SceneStore.
func NewSceneStore(db store.DBTX) *SceneStore {
	return &SceneStore{db: db}
}

// Create inserts a new scene.
func (s *SceneStore) Create(ctx context.Context, scene *domain.Scene) error {
	if err := scene.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO scenes (
			id, storyboard_id, scene_number, description, action, image_prompt,
			image_id, image_content_type, status, cost, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		scene.ID, scene.StoryboardID, scene.SceneNumber, scene.Description,
		scene.Action, scene.ImagePrompt, scene.ImageID, scene.ImageContentType,
		scene.Status, scene.Cost, scene.CreatedAt, scene.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrSceneNumberExists
		}
		logger.FromContext(ctx).Error("failed to insert scene",
			"scene_id", scene.ID,
			"storyboard_id", scene.StoryboardID,
			"error", err)
		return fmt.Errorf("failed to insert scene: %w", err)
	}

	return nil
}

// Get retrieves a scene by ID.
func (s *SceneStore) Get(ctx context.Context, id uuid.UUID) (*domain.Scene, error) {
	query := `
		SELECT id, storyboard_id, scene_number, description, action, image_prompt,
		       image_id, image_content_type, status, cost, created_at, updated_at
		FROM scenes
		WHERE id = $1
	`

	scene, err := scanScene(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSceneNotFound
		}
		return nil, fmt.Errorf("failed to get scene: %w", err)
	}

	return scene, nil
}

// ListByStoryboard retrieves all scenes of a storyboard ordered by scene
// number ascending. Processing order depends on this ordering.
func (s *SceneStore) ListByStoryboard(ctx context.Context, storyboardID uuid.UUID) ([]*domain.Scene, error) {
	query := `
		SELECT id, storyboard_id, scene_number, description, action, image_prompt,
		       image_id, image_content_type, status, cost, created_at, updated_at
		FROM scenes
		WHERE storyboard_id = $1
		ORDER BY scene_number ASC
	`

	rows, err := s.db.QueryContext(ctx, query, storyboardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scenes []*domain.Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scene row: %w", err)
		}
		scenes = append(scenes, scene)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scene rows: %w", err)
	}

	return scenes, nil
}

// Update applies the non-nil fields of the update to the scene.
func (s *SceneStore) Update(ctx context.Context, id uuid.UUID, update store.SceneUpdate) error {
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
	if update.ImagePrompt != nil {
		appendSet("image_prompt", *update.ImagePrompt)
	}
	if update.ImageID != nil {
		appendSet("image_id", *update.ImageID)
	}
	if update.ImageContentType != nil {
		appendSet("image_content_type", *update.ImageContentType)
	}
	if update.Cost != nil {
		appendSet("cost", *update.Cost)
	}

	query := fmt.Sprintf("UPDATE scenes SET %s WHERE id = $%d", sets, arg)
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to update scene",
			"scene_id", id,
			"error", err)
		return fmt.Errorf("failed to update scene: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrSceneNotFound
	}

	return nil
}

// ResetForStoryboard puts every scene of the storyboard back into the
// given status, clearing image references and cost. Used for whole-job
// retries where the next attempt starts again from scene 1.
func (s *SceneStore) ResetForStoryboard(
	ctx context.Context,
	storyboardID uuid.UUID,
	status domain.SceneStatus,
) error {
	query := `
		UPDATE scenes
		SET status = $1, image_id = NULL, image_content_type = NULL,
		    image_prompt = '', cost = 0, updated_at = now()
		WHERE storyboard_id = $2
	`

	_, err := s.db.ExecContext(ctx, query, status, storyboardID)
	if err != nil {
		return fmt.Errorf("failed to reset scenes: %w", err)
	}

	return nil
}

// scanScene reads one scene row.
func scanScene(row rowScanner) (*domain.Scene, error) {
	var scene domain.Scene
	var imageID sql.Null[uuid.UUID]
	var contentType sql.NullString

	err := row.Scan(
		&scene.ID, &scene.StoryboardID, &scene.SceneNumber, &scene.Description,
		&scene.Action, &scene.ImagePrompt, &imageID, &contentType,
		&scene.Status, &scene.Cost, &scene.CreatedAt, &scene.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if imageID.Valid {
		id := imageID.V
		scene.ImageID = &id
	}
	scene.ImageContentType = contentType.String

	return &scene, nil
}
