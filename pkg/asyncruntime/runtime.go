package asyncruntime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nexusshell/nexuscore/pkg/log"
)

// TaskFunc is the body of a task submitted to the runtime.
type TaskFunc func(ctx context.Context) error

// TaskHandle is returned by Spawn; callers use it to observe completion.
type TaskHandle struct {
	ID     uuid.UUID
	domain ExecutionDomain
	done   chan struct{}
	err    error
}

// Wait blocks until the task completes or the caller's context is
// cancelled. It returns the task's error (ErrTaskTimedOut,
// ErrTaskCancelled, or the TaskFunc's own error), or ctx.Err() if ctx
// ends first. Runtime shutdown does not cancel a running task.
func (h *TaskHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runtime is NexusShell's async task execution substrate.
type Runtime struct {
	mu        sync.RWMutex
	domains   map[ExecutionDomain]*semaphore
	cfg       Config
	stats     *RuntimeStats
	logger    zerolog.Logger
	startedAt time.Time

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	closed       bool

	workerCount int
}

// New constructs a Runtime and starts its background load monitor.
func New(cfg Config) *Runtime {
	rt := &Runtime{
		domains:     make(map[ExecutionDomain]*semaphore),
		cfg:         cfg,
		stats:       newRuntimeStats(),
		logger:      log.WithComponent("asyncruntime"),
		startedAt:   time.Now(),
		shutdownCh:  make(chan struct{}),
		workerCount: cfg.MinWorkers,
	}
	rt.domains[Compute] = newSemaphore(cfg.ComputeConcurrency)
	rt.domains[IO] = newSemaphore(cfg.IOConcurrency)
	rt.domains[Network] = newSemaphore(cfg.NetworkConcurrency)
	rt.domains[Background] = newSemaphore(cfg.BackgroundConcurrency)

	workerCountGauge.Set(float64(rt.workerCount))

	if cfg.MetricsInterval > 0 {
		go rt.loadMonitor()
	}
	return rt
}

// SetDomainConcurrencyLimit atomically replaces the semaphore for a domain.
// Tasks already holding a permit from the old semaphore are unaffected —
// they release against the semaphore object they acquired, not whatever is
// currently registered.
func (rt *Runtime) SetDomainConcurrencyLimit(domain ExecutionDomain, n int) error {
	if _, ok := rt.cfg.limitFor(domain); !ok {
		return ErrDomainNotFound
	}
	rt.mu.Lock()
	rt.domains[domain] = newSemaphore(n)
	rt.mu.Unlock()
	return nil
}

func (rt *Runtime) semaphoreFor(domain ExecutionDomain) (*semaphore, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	sem, ok := rt.domains[domain]
	if !ok {
		return nil, ErrDomainNotFound
	}
	return sem, nil
}

// Spawn submits a task for execution under the given config's domain. It
// blocks until a domain permit is available, ctx is cancelled, or the
// runtime has been shut down.
func (rt *Runtime) Spawn(ctx context.Context, fn TaskFunc, cfg TaskConfig) (*TaskHandle, error) {
	rt.mu.RLock()
	closed := rt.closed
	rt.mu.RUnlock()
	if closed {
		return nil, ErrRuntimeNotInitialized
	}

	sem, err := rt.semaphoreFor(cfg.Domain)
	if err != nil {
		return nil, err
	}

	if err := sem.acquire(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSemaphoreAcquisitionFailed, err)
	}

	id := uuid.New()
	rt.stats.startTask(id, cfg.Domain, cfg.Priority, cfg.Name)

	handle := &TaskHandle{ID: id, domain: cfg.Domain, done: make(chan struct{})}

	runCtx := ctx
	var cancel context.CancelFunc
	if cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
	}

	go func() {
		start := time.Now()
		defer sem.release()
		if cancel != nil {
			defer cancel()
		}

		resultCh := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					resultCh <- fmt.Errorf("asyncruntime: task panicked: %v", r)
				}
			}()
			resultCh <- fn(runCtx)
		}()

		var outcome string
		select {
		case err := <-resultCh:
			handle.err = err
			if err == nil {
				outcome = "completed"
			} else if runCtx.Err() == context.DeadlineExceeded {
				handle.err = ErrTaskTimedOut
				outcome = "timed_out"
			} else {
				outcome = "failed"
			}
		case <-runCtx.Done():
			if runCtx.Err() == context.DeadlineExceeded {
				handle.err = ErrTaskTimedOut
				outcome = "timed_out"
			} else {
				handle.err = ErrTaskCancelled
				outcome = "cancelled"
			}
		}

		rt.stats.finishTask(id, cfg.Domain, outcome, time.Since(start))
		close(handle.done)
	}()

	return handle, nil
}

// Schedule delays submission of a task by the given duration, then spawns
// it. The delay itself does not hold a domain permit.
func (rt *Runtime) Schedule(ctx context.Context, fn TaskFunc, cfg TaskConfig, delay time.Duration) (*TaskHandle, error) {
	rt.stats.incrementScheduled(cfg.Domain)
	if delay <= 0 {
		return rt.Spawn(ctx, fn, cfg)
	}

	timer := time.NewTimer(delay)
	select {
	case <-timer.C:
		return rt.Spawn(ctx, fn, cfg)
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	}
}

// Stats returns the runtime's cumulative counters and active-task count.
func (rt *Runtime) Stats() Snapshot {
	return rt.stats.Snapshot()
}

func (rt *Runtime) loadMonitor() {
	ticker := time.NewTicker(rt.cfg.MetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			load := rt.sampleLoad()
			rt.stats.updateThreadLoad(load)
			if rt.cfg.AutoScaling {
				rt.autoscale(load)
			}
		case <-rt.shutdownCh:
			return
		}
	}
}

// sampleLoad approximates thread-pool load as the fraction of configured
// concurrency currently in use, averaged across domains — a workable proxy
// in a goroutine-per-task model where there is no fixed OS thread pool to
// inspect directly.
func (rt *Runtime) sampleLoad() float64 {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	var used, total int
	for _, sem := range rt.domains {
		used += sem.inUse()
		total += sem.cap
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}

// autoscale adjusts the advisory worker-count gauge against the 0.8/0.3
// load thresholds. It never touches in-flight tasks — Go goroutines need
// no explicit worker pool to scale, so this purely reports the advisory
// size a host process might use to size its own OS thread budget.
func (rt *Runtime) autoscale(load float64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if load > 0.8 && rt.workerCount < rt.cfg.MaxWorkers {
		rt.workerCount++
		rt.logger.Debug().Float64("load", load).Int("workers", rt.workerCount).Msg("scaling up")
		workerCountGauge.Set(float64(rt.workerCount))
	} else if load < 0.3 && rt.workerCount > rt.cfg.MinWorkers {
		rt.workerCount--
		rt.logger.Debug().Float64("load", load).Int("workers", rt.workerCount).Msg("scaling down")
		workerCountGauge.Set(float64(rt.workerCount))
	}
}

// Shutdown drains active tasks for up to cfg.ShutdownGrace (default 60s),
// logs any stragglers, then returns. It is idempotent.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.shutdownOnce.Do(func() {
		rt.mu.Lock()
		rt.closed = true
		rt.mu.Unlock()
		close(rt.shutdownCh)

		grace := rt.cfg.ShutdownGrace
		if grace <= 0 {
			grace = 60 * time.Second
		}
		deadline, cancel := context.WithTimeout(ctx, grace)
		defer cancel()

		done := make(chan struct{})
		go func() {
			rt.stats.waitForZero(deadline.Done())
			close(done)
		}()

		select {
		case <-done:
		case <-deadline.Done():
		}

		if remaining := rt.stats.ActiveCount(); remaining > 0 {
			rt.logger.Warn().Int("stragglers", remaining).Msg("forcing shutdown with active tasks remaining")
		} else {
			rt.logger.Info().Dur("uptime", time.Since(rt.startedAt)).Msg("runtime shut down cleanly")
		}
	})
	return nil
}
