// Package scheduler runs pedago's periodic background work.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
)

// Task is one unit of periodic work. An error is logged and the schedule
// continues.
type Task func(ctx context.Context) error

// Scheduler runs a single task at a fixed interval. Runs never overlap:
// a tick that arrives while the previous run is still busy is skipped.
type Scheduler struct {
	cron     *gocron.Scheduler
	interval time.Duration
	name     string
	task     Task
	runs     atomic.Int64
}

// New creates a scheduler for task. Nothing runs until Start.
func New(name string, interval time.Duration, task Task) *Scheduler {
	return &Scheduler{
		cron:     gocron.NewScheduler(time.UTC),
		interval: interval,
		name:     name,
		task:     task,
	}
}

// Start runs the task immediately and then every interval, until ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler %s: interval must be positive, got %s", s.name, s.interval)
	}
	_, err := s.cron.Every(s.interval).SingletonMode().StartImmediately().Do(func() {
		if ctx.Err() != nil {
			return
		}
		n := s.runs.Add(1)
		started := time.Now()
		if err := s.task(ctx); err != nil {
			slog.Warn("scheduled task failed", "task", s.name, "run", n, "error", err)
			return
		}
		slog.Debug("scheduled task done", "task", s.name, "run", n, "took", time.Since(started))
	})
	if err != nil {
		return fmt.Errorf("scheduler %s: %w", s.name, err)
	}
	s.cron.StartAsync()
	slog.Info("scheduler started", "task", s.name, "interval", s.interval)
	return nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop halts the schedule. A run in progress is not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Runs returns how many times the task was started.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}
