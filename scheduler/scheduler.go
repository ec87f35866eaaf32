package scheduler

import (
	"context"
	"log/slog"
	"time"

	"divar-notifier/models"
)

// Runner executes one notification pass
type Runner interface {
	Run(ctx context.Context) models.Report
}

// Scheduler repeats runs on a fixed interval, or runs once when the
// interval is zero
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a new scheduler. Cancelling parent stops it after
// the run in progress, if any, has finished.
func NewScheduler(parent context.Context, runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(parent)

	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start starts the scheduler in a goroutine
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the scheduler and waits for the current run to finish
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.done
}

// Done is closed once the scheduler has stopped
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer close(s.done)

	s.runOnce()
	if s.interval <= 0 {
		return
	}

	s.logger.Info("Scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce()
			// Drop a tick that fired while the run was still going
			select {
			case <-ticker.C:
				s.logger.Warn("Run overran the interval, skipping a tick")
			default:
			}
		}
	}
}

func (s *Scheduler) runOnce() {
	if s.ctx.Err() != nil {
		return
	}
	start := time.Now()
	report := s.runner.Run(context.WithoutCancel(s.ctx))
	s.logger.Debug("Run completed", "run_id", report.RunID, "took", time.Since(start))
}
