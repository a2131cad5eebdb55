// Package ratelimit implements fixed per-minute window admission control
// for the external generation API. Fixed windows (rather than a sliding
// window or token bucket) trade a small burst-at-boundary inaccuracy for
// exact alignment with the API's published requests-per-minute quota.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// DefaultLimit is the per-minute request budget for every source,
// shared pool and BYOK users alike.
const DefaultLimit = 10

// DefaultMaxWindowAge is how long consumed windows are kept before the
// cleanup pass removes them.
const DefaultMaxWindowAge = 2 * time.Hour

// Result reports the counter state after an increment.
type Result struct {
	CurrentCount int
	Remaining    int
}

// Status is a read-only snapshot of one source's current window.
type Status struct {
	CurrentCount int       `json:"current_count"`
	Limit        int       `json:"limit"`
	Remaining    int       `json:"remaining"`
	ResetTime    time.Time `json:"reset_time"`
}

// Limiter answers admission-control queries and records consumption per
// traffic source. Each source key has an independent counter, so BYOK
// traffic never contends with the shared pool.
type Limiter struct {
	windows store.RateWindowStore
	limit   int
	logger  *slog.Logger
	now     func() time.Time
}

// NewLimiter creates a Limiter over the given window store.
func NewLimiter(windows store.RateWindowStore, limit int, logger *slog.Logger) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Limiter{
		windows: windows,
		limit:   limit,
		logger:  logger,
		now:     time.Now,
	}
}

// CanProcess reports whether the current minute window for the source
// still has budget. A missing window means no requests were made yet.
func (l *Limiter) CanProcess(ctx context.Context, sourceKey string) (bool, error) {
	window, err := l.windows.Get(ctx, sourceKey, domain.MinuteWindow(l.now()))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("failed to read rate window: %w", err)
	}

	return window.RequestCount < l.limit, nil
}

// Increment records one request against the source's current window and
// returns the post-increment count. The underlying store update is atomic.
func (l *Limiter) Increment(ctx context.Context, sourceKey string) (Result, error) {
	count, err := l.windows.Increment(ctx, sourceKey, domain.MinuteWindow(l.now()))
	if err != nil {
		return Result{}, fmt.Errorf("failed to increment rate window: %w", err)
	}

	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	l.logger.Debug("rate limiter incremented",
		"source_key", sourceKey,
		"current_count", count,
		"remaining", remaining)

	return Result{CurrentCount: count, Remaining: remaining}, nil
}

// GetStatus returns a read-only snapshot of the source's current window.
// ResetTime is the start of the next minute window.
func (l *Limiter) GetStatus(ctx context.Context, sourceKey string) (Status, error) {
	windowStart := domain.MinuteWindow(l.now())

	current := 0
	window, err := l.windows.Get(ctx, sourceKey, windowStart)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Status{}, fmt.Errorf("failed to read rate window: %w", err)
	}
	if window != nil {
		current = window.RequestCount
	}

	remaining := l.limit - current
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		CurrentCount: current,
		Limit:        l.limit,
		Remaining:    remaining,
		ResetTime:    windowStart.Add(time.Minute),
	}, nil
}

// Cleanup deletes windows older than maxAge and returns how many were
// removed. Safe to run concurrently with increments on current windows.
func (l *Limiter) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxWindowAge
	}

	cutoff := domain.MinuteWindow(l.now().Add(-maxAge))
	removed, err := l.windows.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up rate windows: %w", err)
	}

	if removed > 0 {
		l.logger.Info("cleaned up old rate windows", "removed", removed)
	}

	return removed, nil
}

// SetClock overrides the limiter's time source. Test use only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}
