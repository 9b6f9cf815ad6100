package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper removes stale scratch directories. Implemented by
// *workspace.Workspace.
type Sweeper interface {
	Sweep(maxAge time.Duration, now time.Time) (int, error)
}

// Pruner deletes history records older than a cutoff. Implemented by every
// history.Store.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// ScratchSweepJob removes scratch directories older than MaxAge. It also
// runs once at startup to clean up after a crash.
type ScratchSweepJob struct {
	Sweeper      Sweeper
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/15 * * * *"

	now func() time.Time
}

// Compile-time interface check.
var _ StartupJob = (*ScratchSweepJob)(nil)

// Name implements Job.
func (j *ScratchSweepJob) Name() string { return "scratch_sweep" }

// Schedule implements Job.
func (j *ScratchSweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// RunOnStart implements StartupJob.
func (j *ScratchSweepJob) RunOnStart() bool { return true }

// Run removes stale scratch directories.
func (j *ScratchSweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cron: scratch sweep cancelled: %w", err)
	}
	removed, err := j.Sweeper.Sweep(j.MaxAge, clock(j.now))
	if removed > 0 {
		j.Logger.Info("cron: removed stale scratch directories", "count", removed)
	}
	if err != nil {
		return fmt.Errorf("cron: scratch sweep: %w", err)
	}
	return nil
}

// HistoryPruneJob deletes request history older than Retention.
type HistoryPruneJob struct {
	Store        Pruner
	Retention    time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "17 * * * *"

	now func() time.Time
}

// Compile-time interface check.
var _ Job = (*HistoryPruneJob)(nil)

// Name implements Job.
func (j *HistoryPruneJob) Name() string { return "history_prune" }

// Schedule implements Job.
func (j *HistoryPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "17 * * * *"
}

// Run prunes records started before now minus Retention.
func (j *HistoryPruneJob) Run(ctx context.Context) error {
	cutoff := clock(j.now).Add(-j.Retention)
	pruned, err := j.Store.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cron: history prune: %w", err)
	}
	if pruned > 0 {
		j.Logger.Info("cron: pruned request history", "count", pruned, "before", cutoff)
	}
	return nil
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
