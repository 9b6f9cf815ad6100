package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_Concurrency(t *testing.T) {
	t.Parallel()

	const workers = 3
	p := NewPool(workers, 10, nil)
	p.Start(context.Background())
	defer p.Stop(context.Background())

	var concurrent, maxConcurrent atomic.Int32
	var started sync.WaitGroup
	started.Add(workers)
	barrier := make(chan struct{})
	var done sync.WaitGroup
	done.Add(workers)

	for range workers {
		err := p.TrySubmit(func(context.Context) {
			cur := concurrent.Add(1)
			for {
				prev := maxConcurrent.Load()
				if cur <= prev || maxConcurrent.CompareAndSwap(prev, cur) {
					break
				}
			}
			started.Done()
			<-barrier
			concurrent.Add(-1)
			done.Done()
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	started.Wait()
	if got := p.Stats().Busy; got != workers {
		t.Errorf("Busy = %d, want %d", got, workers)
	}
	close(barrier)
	done.Wait()

	if got := maxConcurrent.Load(); got != workers {
		t.Errorf("maxConcurrent = %d, want %d", got, workers)
	}
}

func TestPool_QueueFull(t *testing.T) {
	t.Parallel()

	p := NewPool(1, 1, nil)
	p.Start(context.Background())

	block := make(chan struct{})
	running := make(chan struct{})
	if err := p.TrySubmit(func(context.Context) { close(running); <-block }); err != nil {
		t.Fatal(err)
	}
	<-running
	if err := p.TrySubmit(func(context.Context) {}); err != nil {
		t.Fatalf("queued submit: %v", err)
	}
	if err := p.TrySubmit(func(context.Context) {}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("TrySubmit = %v, want ErrQueueFull", err)
	}

	stats := p.Stats()
	if stats.Queued != 1 || stats.Capacity != 1 || stats.Workers != 1 {
		t.Errorf("stats = %+v", stats)
	}

	close(block)
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestPool_StopDrainsQueue(t *testing.T) {
	t.Parallel()

	p := NewPool(1, 10, nil)
	var count atomic.Int32
	for range 5 {
		if err := p.TrySubmit(func(context.Context) {
			time.Sleep(time.Millisecond)
			count.Add(1)
		}); err != nil {
			t.Fatal(err)
		}
	}
	p.Start(context.Background())

	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := count.Load(); got != 5 {
		t.Errorf("ran %d jobs, want 5", got)
	}
	if err := p.TrySubmit(func(context.Context) {}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("TrySubmit after Stop = %v, want ErrPoolStopped", err)
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestPool_StopDeadlineCancelsJobs(t *testing.T) {
	t.Parallel()

	p := NewPool(1, 1, nil)
	p.Start(context.Background())

	running := make(chan struct{})
	var cancelled atomic.Bool
	_ = p.TrySubmit(func(ctx context.Context) {
		close(running)
		<-ctx.Done()
		cancelled.Store(true)
	})
	<-running

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop = %v, want DeadlineExceeded", err)
	}
	if !cancelled.Load() {
		t.Error("running job should observe cancellation")
	}
}

func TestPool_RecoversPanics(t *testing.T) {
	t.Parallel()

	p := NewPool(1, 2, nil)
	p.Start(context.Background())

	ran := make(chan struct{})
	_ = p.TrySubmit(func(context.Context) { panic("boom") })
	_ = p.TrySubmit(func(context.Context) { close(ran) })

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("worker died after a panicking job")
	}
	_ = p.Stop(context.Background())
}

func TestPool_Defaults(t *testing.T) {
	t.Parallel()

	p := NewPool(0, -1, nil)
	stats := p.Stats()
	if stats.Workers != DefaultWorkers || stats.Capacity != DefaultQueueSize {
		t.Errorf("stats = %+v", stats)
	}
}
