// Package cron schedules periodic maintenance: removing scratch directories
// left behind by a crash and pruning old request history.
package cron

import "context"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "*/5 * * * *").
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}

// StartupJob is implemented by jobs that also run once when the scheduler
// starts, before the first tick.
type StartupJob interface {
	Job
	RunOnStart() bool
}
