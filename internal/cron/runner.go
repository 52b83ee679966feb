// Package cron runs the recurring maintenance jobs.
package cron

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultRescheduleSpec fires shortly after midnight so every reminder is
// re-registered for the new day.
const DefaultRescheduleSpec = "5 0 * * *"

// Runner wraps a cron schedule around a set of named jobs.
type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	mu      sync.Mutex
	running bool
}

// NewRunner creates an idle runner. Jobs are added before Start.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddJob registers a job under a standard five-field cron spec.
func (r *Runner) AddJob(name, spec string, job func()) error {
	wrapped := func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Panic in cron job",
					zap.String("job", name),
					zap.Any("recover", rec),
				)
			}
		}()

		r.logger.Info("Running cron job", zap.String("job", name))
		job()
	}

	if _, err := r.cron.AddFunc(spec, wrapped); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	r.logger.Info("Cron job registered",
		zap.String("job", name),
		zap.String("spec", spec),
	)
	return nil
}

// Start starts the schedule.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("cron runner already running")
	}
	r.running = true
	r.cron.Start()
	return nil
}

// Stop halts the schedule and waits for running jobs to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	<-r.cron.Stop().Done()
	r.logger.Info("Cron runner stopped")
}

// IsRunning returns whether the runner is active
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
