package api

import (
	"errors"
	"net/http"

	"github.com/sketchdeck/storyboard-api/internal/api/shared"
	"github.com/sketchdeck/storyboard-api/internal/domain"
	"github.com/sketchdeck/storyboard-api/internal/generation"
	"github.com/sketchdeck/storyboard-api/internal/service"
	"github.com/sketchdeck/storyboard-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	case errors.Is(err, store.ErrStoryboardNotFound),
		errors.Is(err, store.ErrSceneNotFound),
		errors.Is(err, store.ErrQueueJobNotFound),
		errors.Is(err, store.ErrImageNotFound),
		errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrInvalidAPIKey),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, service.ErrNoStoredKey):
		return http.StatusBadRequest

	case errors.Is(err, generation.ErrContentBlocked):
		return http.StatusUnprocessableEntity

	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrInvalidResponse):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly message for the
// error, keeping upstream details out of responses.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrNotOwned):
		return "You do not have access to this resource"

	case errors.Is(err, store.ErrStoryboardNotFound):
		return "Storyboard not found"
	case errors.Is(err, store.ErrSceneNotFound):
		return "Scene not found"
	case errors.Is(err, store.ErrImageNotFound):
		return "Image not found"
	case errors.Is(err, store.ErrQueueJobNotFound):
		return "Queue job not found"

	case errors.Is(err, domain.ErrInvalidAPIKey):
		return "Invalid API key format. Please ensure you're using a valid Gemini API key from Google AI Studio."
	case errors.Is(err, service.ErrNoStoredKey):
		return "No API key is stored for this account"

	case errors.Is(err, generation.ErrContentBlocked):
		return "The prompt was rejected by content safety filters"
	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrInvalidResponse):
		return "Story generation failed, please try again"

	default:
		return "An unexpected error occurred"
	}
}

// RespondWithMappedError is a convenience wrapper combining the status and
// message mapping.
func RespondWithMappedError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
}
