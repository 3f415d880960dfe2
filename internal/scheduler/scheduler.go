// Package scheduler implements the Scheduler component: four independent
// periodic cadences feeding one shared bounded worker pool.
//
// Each cadence's ticker loop follows the teacher's live.go idiom verbatim
// (time.NewTicker + select over ctx.Done()/ticker.C), generalized from the
// single cadence runLive drives to four independent tickers. The worker pool
// generalizes trader.go's single stateApplyCh centralized-state-manager
// channel (one goroutine draining one channel of func(*Trader)) to N
// goroutines draining one channel of func(context.Context) — concurrent
// workers rather than a single serialized applier, since this system's units
// of work (order monitors, position closes) are independent of each other
// instead of all mutating one in-process Trader.
package scheduler

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chidi150c/spotengine/internal/telemetry"
)

// WorkerPool is a bounded set of goroutines draining a shared buffered
// channel of work items. Enqueue never blocks the caller: a full queue drops
// the item (logged), since the cadence that produced it will run again on
// its own tick.
type WorkerPool struct {
	queue chan func(context.Context)
	size  int
	wg    sync.WaitGroup
}

// NewWorkerPool creates a pool of size workers reading off a channel buffered
// to queueDepth.
func NewWorkerPool(size, queueDepth int) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueDepth <= 0 {
		queueDepth = 128
	}
	return &WorkerPool{queue: make(chan func(context.Context), queueDepth), size: size}
}

// Start launches the pool's workers; each runs until ctx is cancelled or the
// queue is closed and empty, mirroring trader.go's `for fn := range t.stateApplyCh`
// consumer shape but with N concurrent readers instead of one.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case fn, ok := <-p.queue:
					if !ok {
						return
					}
					telemetry.WorkerPoolQueueDepth.Set(float64(len(p.queue)))
					fn(ctx)
				}
			}
		}(i)
	}
}

// Enqueue submits fn for execution by some worker. Returns false (and drops
// fn) if the queue is saturated — a worker never blocks a scheduler tick.
func (p *WorkerPool) Enqueue(fn func(context.Context)) bool {
	select {
	case p.queue <- fn:
		telemetry.WorkerPoolQueueDepth.Set(float64(len(p.queue)))
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for in-flight workers to drain it.
func (p *WorkerPool) Stop() {
	close(p.queue)
	p.wg.Wait()
}

// cadence is one of the four independent periodic tasks.
type cadence struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context)
	running  atomic.Bool
}

// Scheduler owns the four cadences (strategy_tick, monitor_positions,
// check_circuit_breaker, update_risk_state) plus the shared worker pool
// their enqueued work runs on.
type Scheduler struct {
	pool     *WorkerPool
	cadences []*cadence
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a Scheduler backed by pool. Callers add cadences with
// AddCadence before calling Start.
func New(pool *WorkerPool) *Scheduler {
	return &Scheduler{pool: pool}
}

// AddCadence registers a periodic task. fn is only ever enqueued onto the
// worker pool, never run inline on the ticker goroutine, keeping each tick
// itself short.
func (s *Scheduler) AddCadence(name string, interval time.Duration, fn func(ctx context.Context)) {
	s.cadences = append(s.cadences, &cadence{name: name, interval: interval, fn: fn})
}

// Start launches the worker pool and one ticker goroutine per cadence. It
// returns immediately; call Stop (or cancel the parent context passed
// elsewhere) to shut down.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.pool.Start(ctx)

	for _, c := range s.cadences {
		s.wg.Add(1)
		go s.run(ctx, c)
	}
}

// run is one cadence's ticker loop: time.NewTicker + select over
// ctx.Done()/ticker.C, exactly runLive's shape, generalized to an arbitrary
// interval and an enqueue-not-run-inline body.
func (s *Scheduler) run(ctx context.Context, c *cadence) {
	defer s.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[SCHED] %s: shutdown", c.name)
			return
		case <-ticker.C:
			if !c.running.CompareAndSwap(false, true) {
				// previous instance of this cadence has not finished: skip
				// rather than run two instances concurrently.
				telemetry.RecordSchedulerSkip(c.name)
				continue
			}
			name := c.name
			fn := c.fn
			guard := &c.running
			if !s.pool.Enqueue(func(workCtx context.Context) {
				defer guard.Store(false)
				fn(workCtx)
			}) {
				log.Printf("[SCHED] %s: worker pool saturated, skipping this tick", name)
				guard.Store(false)
			}
		}
	}
}

// Stop cancels every cadence's ticker loop and drains the worker pool.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.pool.Stop()
}
