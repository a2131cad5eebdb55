package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sketchdeck/storyboard-api/internal/queue"
	"github.com/sketchdeck/storyboard-api/internal/ratelimit"
)

// Config holds the scheduler's intervals and retention windows.
type Config struct {
	// ProcessInterval is how often the queue is polled for work.
	ProcessInterval time.Duration

	// CleanupInterval is how often the maintenance pass runs.
	CleanupInterval time.Duration

	// RateWindowMaxAge is how long expired rate windows are kept.
	RateWindowMaxAge time.Duration

	// JobMaxAge is how long terminal queue jobs are kept.
	JobMaxAge time.Duration
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		ProcessInterval:  5 * time.Minute,
		CleanupInterval:  time.Hour,
		RateWindowMaxAge: ratelimit.DefaultMaxWindowAge,
		JobMaxAge:        queue.DefaultMaxJobAge,
	}
}

// Processor is the single entry point the scheduler triggers.
type Processor interface {
	ProcessNext(ctx context.Context) error
}

// Cleaner removes records older than maxAge and reports how many.
type Cleaner interface {
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
}

// Scheduler drives the processor and the maintenance tasks on fixed
// intervals. The processing loop is one goroutine, so no two shared-key
// jobs ever run concurrently.
type Scheduler struct {
	processor Processor
	limiter   Cleaner
	jobs      Cleaner
	config    Config
	logger    *slog.Logger

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a Scheduler. Zero intervals fall back to defaults.
func New(processor Processor, limiter, jobs Cleaner, config Config, logger *slog.Logger) *Scheduler {
	defaults := DefaultConfig()
	if config.ProcessInterval <= 0 {
		config.ProcessInterval = defaults.ProcessInterval
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.RateWindowMaxAge <= 0 {
		config.RateWindowMaxAge = defaults.RateWindowMaxAge
	}
	if config.JobMaxAge <= 0 {
		config.JobMaxAge = defaults.JobMaxAge
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		processor:  processor,
		limiter:    limiter,
		jobs:       jobs,
		config:     config,
		logger:     logger.With(slog.String("component", "scheduler")),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the processing and maintenance loops.
func (s *Scheduler) Start() {
	s.wg.Add(2)
	go s.processLoop()
	go s.maintenanceLoop()

	s.logger.Info("scheduler started",
		slog.Duration("process_interval", s.config.ProcessInterval),
		slog.Duration("cleanup_interval", s.config.CleanupInterval))
}

// Stop halts both loops and waits for in-flight work to finish.
func (s *Scheduler) Stop() {
	s.cancelFunc()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) processLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ProcessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.processor.ProcessNext(s.ctx); err != nil {
				s.logger.Error("processing tick failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *Scheduler) maintenanceLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *Scheduler) runCleanup() {
	if _, err := s.limiter.Cleanup(s.ctx, s.config.RateWindowMaxAge); err != nil {
		s.logger.Error("rate window cleanup failed", slog.String("error", err.Error()))
	}

	if _, err := s.jobs.Cleanup(s.ctx, s.config.JobMaxAge); err != nil {
		s.logger.Error("queue cleanup failed", slog.String("error", err.Error()))
	}
}
