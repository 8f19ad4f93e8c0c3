// Package scheduler drives the trading loop: either a bounded number of
// iterations back to back, or an open-ended cron cadence until the context
// is cancelled. Cancellation is honored at iteration boundaries only; an
// iteration that has started runs to completion.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is one trading iteration. A returned error is fatal: the scheduler
// stops and surfaces it. Recoverable problems are the task's own business.
type Task func(ctx context.Context, iteration int) error

type Scheduler struct {
	interval time.Duration
	task     Task
	logger   *zap.Logger
}

func New(interval time.Duration, task Task, logger *zap.Logger) *Scheduler {
	return &Scheduler{interval: interval, task: task, logger: logger}
}

// RunBounded executes exactly n iterations, waiting the interval between
// them, and returns early on a fatal task error or context cancellation.
func (s *Scheduler) RunBounded(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("iteration count must be positive, got %d", n)
	}
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			s.logger.Info("stopping before iteration", zap.Int("iteration", i))
			return err
		}
		if err := s.task(ctx, i); err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		if i == n {
			break
		}
		select {
		case <-ctx.Done():
			s.logger.Info("stopping between iterations", zap.Int("completed", i))
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}
	return nil
}

// RunForever runs the first iteration immediately, then repeats on the
// configured interval via cron until ctx is cancelled or an iteration
// returns a fatal error.
func (s *Scheduler) RunForever(ctx context.Context) error {
	var (
		mu        sync.Mutex
		iteration int
		fatal     error
	)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := func() {
		mu.Lock()
		defer mu.Unlock()
		if fatal != nil || runCtx.Err() != nil {
			return
		}
		iteration++
		if err := s.task(runCtx, iteration); err != nil {
			fatal = fmt.Errorf("iteration %d: %w", iteration, err)
			cancel()
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), run); err != nil {
		return fmt.Errorf("register trading task: %w", err)
	}

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	run()
	c.Start()

	<-runCtx.Done()

	// Stop returns once in-flight jobs finish; taking mu afterwards makes
	// sure the last run's fatal write is visible.
	<-c.Stop().Done()
	mu.Lock()
	defer mu.Unlock()
	s.logger.Info("scheduler stopped", zap.Int("iterations", iteration))

	if fatal != nil {
		return fatal
	}
	return ctx.Err()
}
