package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/sketchdeck/storyboard-api/internal/config"
	"github.com/sketchdeck/storyboard-api/internal/platform/gemini"
	"github.com/sketchdeck/storyboard-api/internal/platform/postgres"
	"github.com/sketchdeck/storyboard-api/internal/processor"
	"github.com/sketchdeck/storyboard-api/internal/queue"
	"github.com/sketchdeck/storyboard-api/internal/ratelimit"
	"github.com/sketchdeck/storyboard-api/internal/scheduler"
	"github.com/sketchdeck/storyboard-api/internal/service"
)

// application holds the assembled dependency graph. Everything hangs off
// this struct so the router and server code can reach what they need
// without package-level state.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	queueService      *queue.Service
	limiter           *ratelimit.Limiter
	scheduler         *scheduler.Scheduler
	apiKeyService     *service.APIKeyService
	storyboardService *service.StoryboardService
}

// newApplication connects to the database, runs migrations, and wires
// stores, services, and the background scheduler together. The scheduler
// is started before returning; cleanup stops it.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*application, error) {
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := postgres.MigrateUp(db, logger); err != nil {
		closeQuietly(db, logger)
		return nil, err
	}

	storyboardStore := postgres.NewStoryboardStore(db)
	sceneStore := postgres.NewSceneStore(db)
	imageStore := postgres.NewImageStore(db)
	userStore := postgres.NewUserStore(db)
	jobStore := postgres.NewQueueJobStore(db)
	rateWindowStore := postgres.NewRateWindowStore(db)

	limiter := ratelimit.NewLimiter(rateWindowStore, ratelimit.DefaultLimit, logger)
	queueService := queue.NewService(jobStore, cfg.Queue.SecondsPerJob, logger)

	generator, err := gemini.NewGenerator(ctx, logger, cfg.LLM)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	proc := processor.New(
		storyboardStore,
		sceneStore,
		imageStore,
		queueService,
		limiter,
		generator,
		cfg.Queue.SceneDelay,
		logger,
	)

	sched := scheduler.New(proc, limiter, queueService, scheduler.Config{
		ProcessInterval: cfg.Queue.ProcessInterval,
		CleanupInterval: cfg.Queue.CleanupInterval,
	}, logger)

	apiKeyService, err := service.NewAPIKeyService(userStore, cfg.LLM.EncryptionKey, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to create API key service: %w", err)
	}

	storyboardService := service.NewStoryboardService(
		storyboardStore,
		sceneStore,
		imageStore,
		userStore,
		queueService,
		apiKeyService,
		generator,
		proc,
		logger,
	)

	sched.Start()
	logger.Info("background scheduler started",
		"process_interval", cfg.Queue.ProcessInterval.String(),
		"cleanup_interval", cfg.Queue.CleanupInterval.String())

	return &application{
		config:            cfg,
		logger:            logger,
		db:                db,
		queueService:      queueService,
		limiter:           limiter,
		scheduler:         sched,
		apiKeyService:     apiKeyService,
		storyboardService: storyboardService,
	}, nil
}

// cleanup stops background work and releases resources. Safe to call
// exactly once after newApplication succeeds.
func (app *application) cleanup() {
	app.logger.Info("stopping background scheduler")
	app.scheduler.Stop()
	closeQuietly(app.db, app.logger)
}

func closeQuietly(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close database connection", "error", err)
	}
}
