package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexusshell/nexuscore/pkg/log"
)

// Config configures a Bus.
type Config struct {
	Capacity        int           // max retained events; default 10000
	Retention       time.Duration // default 24h
	SubscriberCap   int           // per-subscriber channel buffer; default 1000
	SweepInterval   time.Duration // default 1h
}

func DefaultConfig() Config {
	return Config{
		Capacity:      10000,
		Retention:     24 * time.Hour,
		SubscriberCap: 1000,
		SweepInterval: time.Hour,
	}
}

type subscriber struct {
	ch      chan Event
	dropped uint64
}

// Bus is a bounded, time-retained, in-memory event log with
// filtered queries and broadcast subscriptions. Oldest events are
// evicted once Capacity is exceeded or Retention is exceeded by the
// hourly sweep, whichever comes first.
type Bus struct {
	cfg Config

	mu     sync.RWMutex
	events []Event

	subMu sync.Mutex
	subs  map[*subscriber]struct{}

	logger zerolog.Logger
}

func NewBus(cfg Config) *Bus {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 10000
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.SubscriberCap <= 0 {
		cfg.SubscriberCap = 1000
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	return &Bus{
		cfg:    cfg,
		subs:   make(map[*subscriber]struct{}),
		logger: log.WithComponent("events"),
	}
}

// Start launches the hourly retention sweep; it exits when ctx is
// cancelled.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(b.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.sweep()
			}
		}
	}()
}

func (b *Bus) sweep() {
	cutoff := time.Now().Add(-b.cfg.Retention)
	b.mu.Lock()
	defer b.mu.Unlock()

	i := 0
	for ; i < len(b.events); i++ {
		if b.events[i].Timestamp.After(cutoff) {
			break
		}
	}
	if i > 0 {
		b.events = append([]Event(nil), b.events[i:]...)
		eventsExpired.Add(float64(i))
	}
	eventsRetained.Set(float64(len(b.events)))
}

// Publish appends event to the log (evicting the oldest if at capacity)
// and broadcasts it to every subscriber, dropping it for subscribers
// whose buffer is full rather than blocking the publisher.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	if len(b.events) > b.cfg.Capacity {
		overflow := len(b.events) - b.cfg.Capacity
		b.events = append([]Event(nil), b.events[overflow:]...)
		eventsEvicted.Add(float64(overflow))
	}
	eventsRetained.Set(float64(len(b.events)))
	b.mu.Unlock()

	eventsPublished.WithLabelValues(string(e.Type)).Inc()
	b.broadcast(e)
}

func (b *Bus) broadcast(e Event) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			sub.dropped++
			eventsDropped.Inc()
		}
	}
}

// Subscription is a live handle returned by Subscribe.
type Subscription struct {
	bus *Bus
	sub *subscriber
	C   <-chan Event
}

// Subscribe returns a Subscription whose channel receives every event
// published after this call, bounded to Config.SubscriberCap; once full,
// further events are dropped for this subscriber and counted in Dropped.
func (b *Bus) Subscribe() *Subscription {
	sub := &subscriber{ch: make(chan Event, b.cfg.SubscriberCap)}
	b.subMu.Lock()
	b.subs[sub] = struct{}{}
	b.subMu.Unlock()
	return &Subscription{bus: b, sub: sub, C: sub.ch}
}

// Dropped reports how many events this subscription has lost to a full
// buffer since it was created.
func (s *Subscription) Dropped() uint64 {
	return s.sub.dropped
}

// Close unsubscribes and closes the channel.
func (s *Subscription) Close() {
	s.bus.subMu.Lock()
	delete(s.bus.subs, s.sub)
	s.bus.subMu.Unlock()
	close(s.sub.ch)
}

// Filter narrows a Query; a zero-value field is treated as unconstrained.
type Filter struct {
	Since    time.Time
	Until    time.Time
	Types    map[Type]struct{}
	Actions  map[string]struct{}
	ActorIDs map[string]struct{}
	Labels   map[string]string
}

func (f Filter) matches(e Event) bool {
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	if len(f.Types) > 0 {
		if _, ok := f.Types[e.Type]; !ok {
			return false
		}
	}
	if len(f.Actions) > 0 {
		if _, ok := f.Actions[e.Action]; !ok {
			return false
		}
	}
	if len(f.ActorIDs) > 0 {
		if _, ok := f.ActorIDs[e.Actor.ID]; !ok {
			return false
		}
	}
	for k, v := range f.Labels {
		if e.Attributes[k] != v {
			return false
		}
	}
	return true
}

// Query returns every retained event matching filter, oldest first.
func (b *Bus) Query(filter Filter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Event, 0, len(b.events))
	for _, e := range b.events {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of currently retained events.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}
