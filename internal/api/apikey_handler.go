package api

import (
	"log/slog"
	"net/http"

	"github.com/sketchdeck/storyboard-api/internal/api/middleware"
	"github.com/sketchdeck/storyboard-api/internal/api/shared"
	"github.com/sketchdeck/storyboard-api/internal/service"
)

// SetAPIKeyRequest is the payload for storing a BYOK credential.
type SetAPIKeyRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

// SetBYOKRequest toggles BYOK routing without changing the stored key.
type SetBYOKRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// APIKeyHandler serves bring-your-own-key management.
type APIKeyHandler struct {
	keys   *service.APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates an APIKeyHandler.
func NewAPIKeyHandler(keys *service.APIKeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		keys:   keys,
		logger: logger.With(slog.String("handler", "apikey")),
	}
}

// Set handles PUT /users/me/api-key: validates and stores the caller's
// Gemini key, enabling BYOK.
func (h *APIKeyHandler) Set(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SetAPIKeyRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "api_key is required")
		return
	}

	if err := h.keys.SetKey(r.Context(), userID, req.APIKey); err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	status, err := h.keys.KeyStatus(r.Context(), userID)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// Remove handles DELETE /users/me/api-key.
func (h *APIKeyHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.keys.RemoveKey(r.Context(), userID); err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /users/me/api-key.
func (h *APIKeyHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	status, err := h.keys.KeyStatus(r.Context(), userID)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// SetBYOK handles PUT /users/me/byok: toggles BYOK routing.
func (h *APIKeyHandler) SetBYOK(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SetBYOKRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "enabled is required")
		return
	}

	if err := h.keys.SetBYOKEnabled(r.Context(), userID, *req.Enabled); err != nil {
		RespondWithMappedError(w, r, err)
		return
	}

	status, err := h.keys.KeyStatus(r.Context(), userID)
	if err != nil {
		RespondWithMappedError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, status)
}
