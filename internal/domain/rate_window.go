package domain

import (
	"errors"
	"time"
)

// SharedRateSource is the source key under which all shared-key traffic is
// counted. BYOK traffic is counted under UserRateSource(userID) instead,
// keeping each user's quota isolated from the shared pool.
const SharedRateSource = "shared"

// UserRateSource returns the rate-limiter source key for a user's own
// API-key traffic.
func UserRateSource(userID string) string {
	return "user:" + userID
}

// Common validation errors for RateWindow
var (
	ErrEmptyRateSource       = errors.New("rate window source key cannot be empty")
	ErrUnalignedRateWindow   = errors.New("rate window start must be minute-aligned")
	ErrNegativeRequestCount  = errors.New("rate window request count cannot be negative")
	ErrZeroRateWindowUpdated = errors.New("rate window last-updated timestamp cannot be zero")
)

// RateWindow is one fixed per-minute counter for a traffic source. At most
// one record exists per (SourceKey, WindowStart) pair; it is created on the
// first request in a window and incremented atomically afterwards.
type RateWindow struct {
	SourceKey    string    `json:"source_key"`
	WindowStart  time.Time `json:"window_start"`
	RequestCount int       `json:"request_count"`
	LastUpdated  time.Time `json:"last_updated"`
}

// MinuteWindow truncates t to the start of its minute window.
func MinuteWindow(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// Validate checks if the RateWindow has valid data.
func (w *RateWindow) Validate() error {
	if w.SourceKey == "" {
		return ErrEmptyRateSource
	}

	if !w.WindowStart.Equal(w.WindowStart.Truncate(time.Minute)) {
		return ErrUnalignedRateWindow
	}

	if w.RequestCount < 0 {
		return ErrNegativeRequestCount
	}

	if w.LastUpdated.IsZero() {
		return ErrZeroRateWindowUpdated
	}

	return nil
}
