package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsEnqueuedWork(t *testing.T) {
	pool := NewWorkerPool(2, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var ran atomic.Bool
	done := make(chan struct{})
	if !pool.Enqueue(func(ctx context.Context) {
		ran.Store(true)
		close(done)
	}) {
		t.Fatalf("expected enqueue to succeed on an empty queue")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("work item never ran")
	}
	if !ran.Load() {
		t.Fatalf("expected work item to have run")
	}
	pool.Stop()
}

func TestWorkerPoolEnqueueFailsWhenSaturated(t *testing.T) {
	pool := NewWorkerPool(0, 1)
	// no workers started: the single queue slot fills on the first enqueue
	// and every subsequent enqueue must report failure rather than block.
	block := make(chan struct{})
	_ = pool.Enqueue(func(ctx context.Context) { <-block })
	if pool.Enqueue(func(ctx context.Context) {}) {
		close(block)
		t.Fatalf("expected second enqueue to fail on a saturated queue")
	}
	close(block)
}

func TestSchedulerSkipsOverlappingTick(t *testing.T) {
	pool := NewWorkerPool(1, 8)
	s := New(pool)

	var calls atomic.Int32
	release := make(chan struct{})
	s.AddCadence("test_cadence", 10*time.Millisecond, func(ctx context.Context) {
		calls.Add(1)
		<-release
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	// Let several ticks fire while the first invocation blocks on release;
	// only one should have been admitted (running guard not yet cleared).
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 admitted call while the first is in flight, got %d", got)
	}

	close(release)
	cancel()
	s.Stop()
}
