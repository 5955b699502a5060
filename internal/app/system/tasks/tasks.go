// internal/app/system/tasks/tasks.go

// Package tasks runs recurring background jobs on their own tickers.
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a named recurring unit of background work.
type Job struct {
	Name     string
	Interval time.Duration
	// Run does one pass of the job. The context carries the per-run timeout.
	Run func(ctx context.Context) error
}

// Runner executes a set of jobs, each on its own ticker goroutine.
type Runner struct {
	jobs    []Job
	timeout time.Duration
	log     *zap.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewRunner creates a runner. timeout bounds each individual job run.
func NewRunner(logger *zap.Logger, timeout time.Duration, jobs ...Job) *Runner {
	return &Runner{
		jobs:    jobs,
		timeout: timeout,
		log:     logger,
		stopCh:  make(chan struct{}),
	}
}

// Start launches every job loop.
func (r *Runner) Start() {
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(job)
		r.log.Info("background job started",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval))
	}
}

// Stop signals all job loops to stop and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.log.Info("background jobs stopped")
}

func (r *Runner) loop(job Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runOnce(job)
		}
	}
}

func (r *Runner) runOnce(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		r.log.Error("background job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	r.log.Debug("background job finished",
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(start)))
}
