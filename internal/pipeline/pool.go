package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	// DefaultWorkers is the number of concurrent unpack jobs.
	DefaultWorkers = 6

	// DefaultQueueSize is the number of jobs that may wait for a worker.
	DefaultQueueSize = 64
)

// Job is a unit of work run on a pool worker.
type Job func(ctx context.Context)

// PoolStats is a point-in-time view of the pool.
type PoolStats struct {
	Workers  int `json:"workers"`
	Busy     int `json:"busy"`
	Queued   int `json:"queued"`
	Capacity int `json:"queue_capacity"`
}

// Pool runs jobs on a fixed set of goroutines fed by a bounded queue.
// Submission never blocks.
type Pool struct {
	workers int
	jobs    chan Job
	logger  *slog.Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	cancel  context.CancelFunc

	wg       sync.WaitGroup
	busy     atomic.Int32
	stopOnce sync.Once
}

// NewPool creates a pool. Non-positive sizes use the defaults.
func NewPool(workers, queueSize int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, queueSize),
		logger:  logger,
	}
}

// Start launches the workers. Jobs receive a context derived from ctx that
// is cancelled only when Stop gives up waiting.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	for range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.run(ctx, job)
			}
		}()
	}
	p.logger.Info("pipeline: worker pool started", "workers", p.workers, "queue_size", cap(p.jobs))
}

func (p *Pool) run(ctx context.Context, job Job) {
	p.busy.Add(1)
	defer p.busy.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline: job panicked", "panic", fmt.Sprint(r))
		}
	}()
	job(ctx)
}

// TrySubmit enqueues job without blocking.
func (p *Pool) TrySubmit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new jobs, lets queued and running jobs finish, and returns
// once all workers exited. If ctx ends first, job contexts are cancelled
// and Stop returns ctx's error after the workers exit.
func (p *Pool) Stop(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.jobs)
		started := p.started
		cancel := p.cancel
		p.mu.Unlock()

		if !started {
			return
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			p.logger.Warn("pipeline: stop deadline reached, cancelling running jobs")
			err = ctx.Err()
			cancel()
			<-done
		}
		cancel()
		p.logger.Info("pipeline: worker pool stopped")
	})
	return err
}

// Stats returns the current pool state.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:  p.workers,
		Busy:     int(p.busy.Load()),
		Queued:   len(p.jobs),
		Capacity: cap(p.jobs),
	}
}
