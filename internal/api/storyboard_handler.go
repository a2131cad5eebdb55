package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sketchdeck/storyboard-api/internal/api/middleware"
	"github.com/sketchdeck/storyboard-api/internal/api/shared"
	"github.com/sketchdeck/storyboard-api/internal/service"
)

// CreateStoryboardRequest is the submission payload.
type CreateStoryboardRequest struct {
	Prompt string `json:"prompt" validate:"required,min=3,max=2000"`
}

// StoryboardHandler serves storyboard CRUD and scene images.
type StoryboardHandler struct {
	storyboards *service.StoryboardService
	logger      *slog.Logger
}

// NewStoryboardHandler creates a StoryboardHandler.
func NewStoryboardHandler(storyboards *service.StoryboardService, logger *slog.Logger) *StoryboardHandler {
	return &StoryboardHandler{
		storyboards: storyboards,
		logger:      logger.With(slog.String("handler", "storyboard")),
	}
}

// Create handles POST /storyboards: plans the story and either enqueues it
// or starts immediate BYOK processing.
func (h *StoryboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateStoryboardRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Prompt must be between 3 and 2000 characters")
		return
	}

	result, err := h.storyboards.CreateFromPrompt(r.Context(), userID, req.Prompt)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "storyboard creation failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		RespondWithMappedError(w, r, err)
		return
	}

	// Processing is asynchronous on both paths, so the storyboard is
	// accepted rather than complete.
	shared.RespondWithJSON(w, r, http.StatusAccepted, result)
}

// QueueStatus handles GET /storyboards/{id}/queue: the storyboard's queue
// job with its current position.
func (h *StoryboardHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	storyboardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid storyboard ID")
		return
	}

	status, err := h.storyboards.QueueStatus(r.Context(), userID, storyboardID)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// Get handles GET /storyboards/{id}: the storyboard with scenes and queue
// status.
func (h *StoryboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	storyboardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid storyboard ID")
		return
	}

	detail, err := h.storyboards.Get(r.Context(), userID, storyboardID)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detail)
}

// List handles GET /storyboards: the caller's storyboards, newest first.
func (h *StoryboardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	storyboards, err := h.storyboards.ListForUser(r.Context(), userID)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"storyboards": storyboards,
	})
}

// Delete handles DELETE /storyboards/{id}: removes the storyboard, its
// scenes, image blobs, and queue rows.
func (h *StoryboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	storyboardID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid storyboard ID")
		return
	}

	if err := h.storyboards.Delete(r.Context(), userID, storyboardID); err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SceneImage handles GET /scenes/{id}/image: streams the stored blob.
func (h *StoryboardHandler) SceneImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	sceneID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid scene ID")
		return
	}

	image, err := h.storyboards.SceneImage(r.Context(), userID, sceneID)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", image.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(image.Data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write image response",
			slog.String("error", err.Error()))
	}
}
