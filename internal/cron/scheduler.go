package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts standard 5-field expressions and descriptors such as
// @daily or @every 1h.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is an expression Start accepts.
func ValidateSchedule(expr string) error {
	_, err := parser.Parse(expr)
	return err
}

// Scheduler runs registered jobs on their cron schedule. A job never
// overlaps with itself: a tick or trigger that finds the previous run still
// going is dropped. A panicking job is logged and does not stop the others.
type Scheduler struct {
	mu      sync.Mutex
	logger  *slog.Logger
	jobs    []Job
	names   map[string]struct{}
	runners map[string]cron.Job

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler. Jobs must be registered before Start.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger: logger,
		names:  make(map[string]struct{}),
	}
}

// RegisterJob adds j. Job names must be unique.
func (s *Scheduler) RegisterJob(j Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.names[j.Name()]; dup {
		return fmt.Errorf("cron: duplicate job name %q", j.Name())
	}
	s.names[j.Name()] = struct{}{}
	s.jobs = append(s.jobs, j)
	return nil
}

// Jobs returns the registered job names in registration order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name()
	}
	return names
}

// Start parses every schedule, then begins ticking and launches the jobs
// that run at startup. Nothing is scheduled if any expression is invalid.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := cronLogger{s.logger}
	chain := cron.NewChain(cron.Recover(log), cron.SkipIfStillRunning(log))
	c := cron.New(cron.WithParser(parser), cron.WithLogger(log))
	ctx, cancel := context.WithCancel(context.Background())

	runners := make(map[string]cron.Job, len(s.jobs))
	for _, job := range s.jobs {
		sched, err := parser.Parse(job.Schedule())
		if err != nil {
			cancel()
			return fmt.Errorf("cron: invalid schedule for job %q: %w", job.Name(), err)
		}
		r := chain.Then(s.runner(ctx, job))
		runners[job.Name()] = r
		c.Schedule(sched, r)
	}

	s.cron = c
	s.cancel = cancel
	s.runners = runners

	for _, job := range s.jobs {
		if sj, ok := job.(StartupJob); ok && sj.RunOnStart() {
			s.dispatch(runners[job.Name()])
		}
	}

	c.Start()
	s.logger.Info("cron: scheduler started", "jobs", len(s.jobs))
	return nil
}

// Trigger runs the named job now, outside its schedule. It reports false if
// the scheduler is not running or no such job exists. The run is still
// dropped when the job is already in progress.
func (s *Scheduler) Trigger(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runners[name]
	if !ok {
		return false
	}
	s.dispatch(r)
	return true
}

// dispatch runs r in the background. Callers hold s.mu.
func (s *Scheduler) dispatch(r cron.Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		r.Run()
	}()
}

func (s *Scheduler) runner(ctx context.Context, job Job) cron.Job {
	return cron.FuncJob(func() {
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Error("cron: job failed", "job", job.Name(), "error", err)
			return
		}
		s.logger.Debug("cron: job completed", "job", job.Name(), "duration", time.Since(start))
	})
}

// Stop cancels the context passed to running jobs and waits until they
// return or ctx expires. Stop without Start is a no-op.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.runners = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		<-c.Stop().Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("cron: scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cron: stop: %w", ctx.Err())
	}
}

// cronLogger routes robfig/cron's own messages to slog. Routine messages
// (schedule, wake, skip) are demoted to debug.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debug("cron: "+msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error("cron: "+msg, append(kv, "error", err)...)
}
