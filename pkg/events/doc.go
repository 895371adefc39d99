/*
Package events implements NexusShell's event bus: a
bounded, time-retained log of every state-changing operation across
every other component, with filtered queries, broadcast subscriptions, and JSON/CSV
export.

# Retention

The bus holds at most Config.Capacity events (default 10,000); a
Publish past capacity evicts the oldest. Independently, a background
sweep (default hourly) drops events older than Config.Retention
(default 24h). Both mechanisms run concurrently — an idle bus under
capacity still ages events out after 24h; a busy bus hits the capacity
bound first.

# Subscriptions

Subscribe returns a bounded channel (default 1,000); a slow subscriber
that can't keep up loses events rather than blocking Publish — lost
events are counted both globally (nexuscore_events_dropped_total) and
per-subscription (Subscription.Dropped()), so loss is deterministic and
observable rather than silent.

# Usage

	bus := events.NewBus(events.DefaultConfig())
	bus.Start(ctx)

	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish(events.New(events.TypeContainer, "start",
		events.Actor{ID: containerID}, "default", nil))

	for e := range sub.C {
		fmt.Println(e.Action)
	}

	recent := bus.Query(events.Filter{Since: time.Now().Add(-time.Hour)})
	events.ExportCSV(os.Stdout, recent)

# Metrics

	nexuscore_events_published_total  - by type
	nexuscore_events_retained         - current retained count
	nexuscore_events_evicted_total    - capacity evictions
	nexuscore_events_expired_total    - retention-sweep expirations
	nexuscore_events_dropped_total    - events lost to full subscriber buffers

# See also

  - pkg/daemon: the sole publisher in the running system; every
    RPC handler that mutates a container/volume/network/image emits an
    Event here after the mutation succeeds.
*/
package events
