package ratelimit

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// memoryWindowStore is an in-memory store.RateWindowStore for tests.
type memoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*domain.RateWindow
}

func newMemoryWindowStore() *memoryWindowStore {
	return &memoryWindowStore{windows: make(map[string]*domain.RateWindow)}
}

func windowKey(sourceKey string, windowStart time.Time) string {
	return sourceKey + "|" + windowStart.UTC().Format(time.RFC3339)
}

func (m *memoryWindowStore) Get(
	_ context.Context,
	sourceKey string,
	windowStart time.Time,
) (*domain.RateWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	window, ok := m.windows[windowKey(sourceKey, windowStart)]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *window
	return &copied, nil
}

func (m *memoryWindowStore) Increment(
	_ context.Context,
	sourceKey string,
	windowStart time.Time,
) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := windowKey(sourceKey, windowStart)
	window, ok := m.windows[key]
	if !ok {
		window = &domain.RateWindow{
			SourceKey:   sourceKey,
			WindowStart: windowStart,
		}
		m.windows[key] = window
	}
	window.RequestCount++
	window.LastUpdated = time.Now().UTC()
	return window.RequestCount, nil
}

func (m *memoryWindowStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, window := range m.windows {
		if window.WindowStart.Before(cutoff) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestLimiter(t *testing.T) (*Limiter, *memoryWindowStore, *time.Time) {
	t.Helper()

	windows := newMemoryWindowStore()
	limiter := NewLimiter(windows, DefaultLimit, testLogger())

	now := time.Date(2025, 6, 14, 10, 30, 12, 0, time.UTC)
	limiter.SetClock(func() time.Time { return now })

	return limiter, windows, &now
}

func TestLimiterAdmitsUpToLimit(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	// canProcess stays true before the 11th increment and flips at it.
	for i := 0; i < DefaultLimit; i++ {
		ok, err := limiter.CanProcess(ctx, domain.SharedRateSource)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be admitted", i+1)

		result, err := limiter.Increment(ctx, domain.SharedRateSource)
		require.NoError(t, err)
		assert.Equal(t, i+1, result.CurrentCount)
		assert.Equal(t, DefaultLimit-i-1, result.Remaining)
	}

	ok, err := limiter.CanProcess(ctx, domain.SharedRateSource)
	require.NoError(t, err)
	assert.False(t, ok)

	// Over-limit increments clamp remaining at zero.
	result, err := limiter.Increment(ctx, domain.SharedRateSource)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit+1, result.CurrentCount)
	assert.Zero(t, result.Remaining)
}

func TestLimiterNewWindowResetsCount(t *testing.T) {
	limiter, _, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < DefaultLimit; i++ {
		_, err := limiter.Increment(ctx, domain.SharedRateSource)
		require.NoError(t, err)
	}

	ok, err := limiter.CanProcess(ctx, domain.SharedRateSource)
	require.NoError(t, err)
	assert.False(t, ok)

	// Cross the minute boundary: fresh window, fresh budget.
	*now = now.Add(time.Minute)

	ok, err = limiter.CanProcess(ctx, domain.SharedRateSource)
	require.NoError(t, err)
	assert.True(t, ok)

	status, err := limiter.GetStatus(ctx, domain.SharedRateSource)
	require.NoError(t, err)
	assert.Zero(t, status.CurrentCount)
	assert.Equal(t, DefaultLimit, status.Remaining)
}

func TestLimiterSourcesAreIndependent(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < DefaultLimit; i++ {
		_, err := limiter.Increment(ctx, domain.SharedRateSource)
		require.NoError(t, err)
	}

	ok, err := limiter.CanProcess(ctx, domain.SharedRateSource)
	require.NoError(t, err)
	assert.False(t, ok)

	// A BYOK user's counter is untouched by shared-pool consumption.
	ok, err = limiter.CanProcess(ctx, domain.UserRateSource("user_2x91"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiterGetStatus(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	status, err := limiter.GetStatus(ctx, domain.SharedRateSource)
	require.NoError(t, err)
	assert.Zero(t, status.CurrentCount)
	assert.Equal(t, DefaultLimit, status.Limit)
	assert.Equal(t, DefaultLimit, status.Remaining)
	assert.Equal(t, time.Date(2025, 6, 14, 10, 31, 0, 0, time.UTC), status.ResetTime)

	_, err = limiter.Increment(ctx, domain.SharedRateSource)
	require.NoError(t, err)
	_, err = limiter.Increment(ctx, domain.SharedRateSource)
	require.NoError(t, err)

	status, err = limiter.GetStatus(ctx, domain.SharedRateSource)
	require.NoError(t, err)
	assert.Equal(t, 2, status.CurrentCount)
	assert.Equal(t, DefaultLimit-2, status.Remaining)
}

func TestLimiterCleanup(t *testing.T) {
	limiter, windows, now := newTestLimiter(t)
	ctx := context.Background()

	_, err := limiter.Increment(ctx, domain.SharedRateSource)
	require.NoError(t, err)
	_, err = limiter.Increment(ctx, domain.UserRateSource("user_2x91"))
	require.NoError(t, err)

	// Nothing is old enough yet.
	removed, err := limiter.Cleanup(ctx, DefaultMaxWindowAge)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Three hours later both windows are past the cutoff.
	*now = now.Add(3 * time.Hour)

	removed, err = limiter.Cleanup(ctx, DefaultMaxWindowAge)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Empty(t, windows.windows)
}
