package events

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestPublishAndQueryRoundTrips(t *testing.T) {
	bus := NewBus(DefaultConfig())
	bus.Publish(New(TypeContainer, "start", Actor{ID: "c1"}, "default", nil))
	bus.Publish(New(TypeVolume, "create", Actor{ID: "v1"}, "default", nil))

	all := bus.Query(Filter{})
	if len(all) != 2 {
		t.Fatalf("got %d events, want 2", len(all))
	}

	containers := bus.Query(Filter{Types: map[Type]struct{}{TypeContainer: {}}})
	if len(containers) != 1 || containers[0].Actor.ID != "c1" {
		t.Fatalf("got %v, want one container event for c1", containers)
	}
}

func TestQueryFiltersByActorAndLabel(t *testing.T) {
	bus := NewBus(DefaultConfig())
	bus.Publish(New(TypeContainer, "start", Actor{ID: "c1"}, "default", map[string]string{"env": "prod"}))
	bus.Publish(New(TypeContainer, "start", Actor{ID: "c2"}, "default", map[string]string{"env": "dev"}))

	byActor := bus.Query(Filter{ActorIDs: map[string]struct{}{"c1": {}}})
	if len(byActor) != 1 {
		t.Fatalf("got %d, want 1", len(byActor))
	}

	byLabel := bus.Query(Filter{Labels: map[string]string{"env": "prod"}})
	if len(byLabel) != 1 || byLabel[0].Actor.ID != "c1" {
		t.Fatalf("got %v, want c1 only", byLabel)
	}
}

func TestQueryFiltersBySinceUntil(t *testing.T) {
	bus := NewBus(DefaultConfig())
	past := New(TypeDaemon, "boot", Actor{}, "", nil)
	past.Timestamp = time.Now().Add(-2 * time.Hour)
	bus.Publish(past)
	bus.Publish(New(TypeDaemon, "ready", Actor{}, "", nil))

	recent := bus.Query(Filter{Since: time.Now().Add(-time.Hour)})
	if len(recent) != 1 || recent[0].Action != "ready" {
		t.Fatalf("got %v, want only ready", recent)
	}
}

func TestPublishEvictsOldestAtCapacity(t *testing.T) {
	bus := NewBus(Config{Capacity: 3, Retention: time.Hour, SubscriberCap: 10, SweepInterval: time.Hour})
	for i := 0; i < 5; i++ {
		bus.Publish(New(TypeContainer, "tick", Actor{ID: string(rune('a' + i))}, "", nil))
	}
	if bus.Len() != 3 {
		t.Fatalf("got %d retained, want 3", bus.Len())
	}
	all := bus.Query(Filter{})
	if all[0].Actor.ID != "c" {
		t.Fatalf("expected oldest two evicted, first retained actor %q", all[0].Actor.ID)
	}
}

func TestSweepExpiresOldEvents(t *testing.T) {
	bus := NewBus(Config{Capacity: 100, Retention: time.Millisecond, SubscriberCap: 10, SweepInterval: time.Hour})
	old := New(TypeDaemon, "boot", Actor{}, "", nil)
	old.Timestamp = time.Now().Add(-time.Hour)
	bus.Publish(old)
	bus.Publish(New(TypeDaemon, "ready", Actor{}, "", nil))

	bus.sweep()
	if bus.Len() != 1 {
		t.Fatalf("got %d retained after sweep, want 1", bus.Len())
	}
}

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	bus := NewBus(DefaultConfig())
	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish(New(TypeContainer, "start", Actor{ID: "c1"}, "", nil))

	select {
	case e := <-sub.C:
		if e.Actor.ID != "c1" {
			t.Fatalf("got actor %q, want c1", e.Actor.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscribed event")
	}
}

func TestSubscribeDropsWhenBufferFull(t *testing.T) {
	bus := NewBus(Config{Capacity: 100, Retention: time.Hour, SubscriberCap: 1, SweepInterval: time.Hour})
	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish(New(TypeContainer, "a", Actor{}, "", nil))
	bus.Publish(New(TypeContainer, "b", Actor{}, "", nil)) // buffer full, dropped

	if sub.Dropped() != 1 {
		t.Fatalf("got %d dropped, want 1", sub.Dropped())
	}
}

func TestBusStartStopsSweepOnCancel(t *testing.T) {
	bus := NewBus(Config{Capacity: 10, Retention: time.Hour, SubscriberCap: 10, SweepInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	bus.Start(ctx)
	cancel()
	time.Sleep(20 * time.Millisecond) // goroutine should observe cancellation and exit
}

func TestExportJSONAndCSV(t *testing.T) {
	events := []Event{New(TypeContainer, "start", Actor{ID: "c1"}, "default", nil)}

	var jsonBuf bytes.Buffer
	if err := ExportJSON(&jsonBuf, events); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if !strings.Contains(jsonBuf.String(), "\"Action\":\"start\"") {
		t.Fatalf("json export missing action field: %s", jsonBuf.String())
	}

	var csvBuf bytes.Buffer
	if err := ExportCSV(&csvBuf, events); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(csvBuf.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], "c1") {
		t.Fatalf("got csv %q", csvBuf.String())
	}
}
