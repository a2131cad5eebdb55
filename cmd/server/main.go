// Package main implements the entry point for the storyboard API server,
// which turns user prompts into AI-generated storyboards through a rate
// limited background processing queue.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/sketchdeck/storyboard-api/internal/config"
	"github.com/sketchdeck/storyboard-api/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
}

// run loads configuration, wires the application together, and serves
// until a shutdown signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"process_interval", cfg.Queue.ProcessInterval.String())

	ctx := context.Background()

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	return app.startHTTPServer(ctx)
}
