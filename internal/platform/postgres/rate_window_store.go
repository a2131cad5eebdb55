package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// RateWindowStore implements store.RateWindowStore using PostgreSQL.
type RateWindowStore struct {
	db store.DBTX
}

// NewRateWindowStore creates a new RateWindowStore.
func NewRateWindowStore(db store.DBTX) *RateWindowStore {
	return &RateWindowStore{db: db}
}

// Get retrieves the window for the given source and minute-aligned start.
func (s *RateWindowStore) Get(
	ctx context.Context,
	sourceKey string,
	windowStart time.Time,
) (*domain.RateWindow, error) {
	query := `
		SELECT source_key, window_start, request_count, last_updated
		FROM rate_windows
		WHERE source_key = $1 AND window_start = $2
	`

	var window domain.RateWindow
	err := s.db.QueryRowContext(ctx, query, sourceKey, windowStart).Scan(
		&window.SourceKey, &window.WindowStart, &window.RequestCount, &window.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rate window: %w", err)
	}

	return &window, nil
}

// Increment atomically creates-or-bumps the counter for the given source
// and window. The upsert runs as a single statement, so concurrent
// increments to the same counter never lose updates.
func (s *RateWindowStore) Increment(
	ctx context.Context,
	sourceKey string,
	windowStart time.Time,
) (int, error) {
	query := `
		INSERT INTO rate_windows (source_key, window_start, request_count, last_updated)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (source_key, window_start)
		DO UPDATE SET request_count = rate_windows.request_count + 1, last_updated = now()
		RETURNING request_count
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, sourceKey, windowStart).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate window: %w", err)
	}

	return count, nil
}

// DeleteOlderThan removes windows that started before the cutoff.
func (s *RateWindowStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_windows WHERE window_start < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old rate windows: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}
