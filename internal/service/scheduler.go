package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sirliboyev-uz/ai-blog-agent/internal/config"
)

type Scheduler struct {
	config   *config.SchedulerConfig
	logger   *zap.Logger
	pipeline *Pipeline
	ticker   *time.Ticker
	stopCh   chan struct{}
}

func NewScheduler(cfg *config.SchedulerConfig, logger *zap.Logger, pipeline *Pipeline) *Scheduler {
	return &Scheduler{
		config:   cfg,
		logger:   logger,
		pipeline: pipeline,
		stopCh:   make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.IsEnabled() {
		s.logger.Info("Scheduler is disabled")
		return nil
	}

	interval, err := time.ParseDuration(s.config.RunInterval)
	if err != nil {
		s.logger.Error("Invalid run interval", zap.String("interval", s.config.RunInterval), zap.Error(err))
		return err
	}

	s.logger.Info("Starting scheduler", zap.String("run_interval", s.config.RunInterval))

	s.ticker = time.NewTicker(interval)

	// Run first batch immediately
	go func() {
		s.logger.Info("Running initial batch")
		s.runBatch(ctx)
	}()

	// Start periodic batches
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.logger.Info("Running scheduled batch")
				s.runBatch(ctx)
			case <-s.stopCh:
				s.logger.Info("Scheduler stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Scheduler context cancelled")
				return
			}
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
	s.logger.Info("Scheduler shutdown completed")
}

func (s *Scheduler) runBatch(ctx context.Context) {
	start := time.Now()
	stats, err := s.pipeline.RunBatch(ctx, 0)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("Batch failed",
			zap.Error(err),
			zap.Duration("duration", duration))
		return
	}

	s.logger.Info("Batch completed successfully",
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Duration("duration", duration))
}
