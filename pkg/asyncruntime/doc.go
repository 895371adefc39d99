/*
Package asyncruntime provides NexusShell's concurrent task execution
substrate: a worker pool fed by per-ExecutionDomain admission control,
optional deadlines, panic containment, and load-sampled autoscaling.

# Architecture

	┌───────────────────── ASYNC RUNTIME ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Domain Semaphores                │          │
	│  │  Compute | IO | Network | Background         │          │
	│  │  - one counting semaphore per domain          │          │
	│  │  - SetDomainConcurrencyLimit swaps atomically │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │ acquire before running               │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Task Goroutine                  │          │
	│  │  - optional context.WithTimeout wrapper       │          │
	│  │  - panic recovered -> reported failed         │          │
	│  │  - permit released on every exit path         │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           RuntimeStats / Metrics             │          │
	│  │  spawned/completed/failed/timed_out/         │          │
	│  │  cancelled/scheduled counters, duration       │          │
	│  │  histogram, active-task map, thread load      │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

Unlike a cooperative tokio-style scheduler, Go goroutines are preemptible by
the Go scheduler itself; the domain semaphores still provide the admission
control needed (only N tasks of a domain may be *running* concurrently),
they just don't need a dedicated thread pool to enforce it.

# Usage

	rt := asyncruntime.New(asyncruntime.DefaultConfig())
	defer rt.Shutdown(context.Background())

	handle, err := rt.Spawn(ctx, func(ctx context.Context) error {
		return doWork(ctx)
	}, asyncruntime.TaskConfig{Domain: asyncruntime.Compute, Timeout: 5 * time.Second})
	if err != nil {
		return err
	}
	if err := handle.Wait(ctx); err != nil {
		log.Printf("task failed: %v", err)
	}
*/
package asyncruntime
