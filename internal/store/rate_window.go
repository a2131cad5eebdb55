package store

import (
	"context"
	"time"

	"github.com/sketchdeck/storyboard-api/internal/domain"
)

// RateWindowStore persists per-minute request counters. Increment must be
// safe against concurrent callers hitting the same (sourceKey, windowStart)
// counter: implementations use an atomic upsert, never read-then-write.
type RateWindowStore interface {
	// Get retrieves the window for the given source and minute-aligned
	// start. Returns ErrNotFound if no requests were recorded yet.
	Get(ctx context.Context, sourceKey string, windowStart time.Time) (*domain.RateWindow, error)

	// Increment atomically creates-or-bumps the counter for the given
	// source and window and returns the post-increment count.
	Increment(ctx context.Context, sourceKey string, windowStart time.Time) (int, error)

	// DeleteOlderThan removes windows that started before the cutoff.
	// Returns the number of rows removed. Safe to run concurrently with
	// increments on newer windows.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
