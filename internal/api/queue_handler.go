package api

import (
	"log/slog"
	"net/http"

	"github.com/sketchdeck/storyboard-api/internal/api/shared"
	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/queue"
	"github.com/sketchdeck/storyboard-api/internal/ratelimit"
)

// QueueHandler serves queue statistics and rate-limit status.
type QueueHandler struct {
	queue   *queue.Service
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewQueueHandler creates a QueueHandler.
func NewQueueHandler(queueSvc *queue.Service, limiter *ratelimit.Limiter, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{
		queue:   queueSvc,
		limiter: limiter,
		logger:  logger.With(slog.String("handler", "queue")),
	}
}

// Stats handles GET /queue/stats: per-status totals and the wait estimate
// for a newly enqueued job.
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to compute queue stats",
			slog.String("error", err.Error()))
		RespondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// RateLimit handles GET /ratelimit: the shared pool's current
// minute-window consumption.
func (h *QueueHandler) RateLimit(w http.ResponseWriter, r *http.Request) {
	status, err := h.limiter.GetStatus(r.Context(), domain.SharedRateSource)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read rate limit status",
			slog.String("error", err.Error()))
		RespondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}
