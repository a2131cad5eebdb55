package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sketchdeck/storyboard-api/internal/api"
	apiMiddleware "github.com/sketchdeck/storyboard-api/internal/api/middleware"
)

// setupRouter builds the HTTP routing tree. All storyboard and account
// routes require a valid bearer token; health stays public.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	storyboardHandler := api.NewStoryboardHandler(app.storyboardService, app.logger)
	queueHandler := api.NewQueueHandler(app.queueService, app.limiter, app.logger)
	apiKeyHandler := api.NewAPIKeyHandler(app.apiKeyService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.config.Auth.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Storyboard endpoints
			r.Post("/storyboards", storyboardHandler.Create)
			r.Get("/storyboards", storyboardHandler.List)
			r.Get("/storyboards/{id}", storyboardHandler.Get)
			r.Delete("/storyboards/{id}", storyboardHandler.Delete)
			r.Get("/storyboards/{id}/queue", storyboardHandler.QueueStatus)
			r.Get("/scenes/{id}/image", storyboardHandler.SceneImage)

			// Queue visibility endpoints
			r.Get("/queue/stats", queueHandler.Stats)
			r.Get("/ratelimit", queueHandler.RateLimit)

			// Account key management endpoints
			r.Put("/users/me/api-key", apiKeyHandler.Set)
			r.Get("/users/me/api-key", apiKeyHandler.Status)
			r.Delete("/users/me/api-key", apiKeyHandler.Remove)
			r.Put("/users/me/byok", apiKeyHandler.SetBYOK)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
