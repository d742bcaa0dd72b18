package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/rtgui/internal/eventbus"
	"pkt.systems/rtgui/schema"
)

func receiveTimer(t *testing.T, mb *eventbus.Mailbox) *schema.Timer {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ev, err := mb.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	timer, ok := ev.(*schema.Timer)
	if !ok {
		t.Fatalf("expected timer, got %s", ev.Kind())
	}
	return timer
}

func TestTimersAfterFiresOnce(t *testing.T) {
	bus := eventbus.New(nil, eventbus.Config{})
	mb, err := bus.Register("app")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer mb.Close()
	timers := NewTimers(bus, nil)
	defer timers.Close()

	ref, err := timers.After("app", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("after: %v", err)
	}
	got := receiveTimer(t, mb)
	if got.Ref != ref || got.Origin != schema.TimerThread {
		t.Fatalf("unexpected timer %+v", got)
	}
	if timers.Pending() != 0 {
		t.Fatalf("expected one-shot timer removed, got %d pending", timers.Pending())
	}
}

func TestTimersEveryRepeatsUntilStopped(t *testing.T) {
	bus := eventbus.New(nil, eventbus.Config{})
	mb, err := bus.Register("app")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer mb.Close()
	timers := NewTimers(bus, nil)
	defer timers.Close()

	ref, err := timers.Every("app", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("every: %v", err)
	}
	receiveTimer(t, mb)
	receiveTimer(t, mb)
	if !timers.Stop(ref) {
		t.Fatalf("expected periodic timer pending")
	}
	if timers.Stop(ref) {
		t.Fatalf("expected second stop to report nothing pending")
	}
	if _, err := timers.Every("app", 0); err == nil {
		t.Fatalf("expected non-positive period rejected")
	}
}

func TestTimersStopForGoneOwner(t *testing.T) {
	bus := eventbus.New(nil, eventbus.Config{})
	timers := NewTimers(bus, nil)
	defer timers.Close()

	if _, err := timers.Every("nobody", time.Millisecond); err != nil {
		t.Fatalf("every: %v", err)
	}
	waitFor(t, "timer stop", func() bool { return timers.Pending() == 0 })

	timers.Close()
	if _, err := timers.After("nobody", time.Millisecond); !errors.Is(err, schema.ErrShutdown) {
		t.Fatalf("expected ErrShutdown after close, got %v", err)
	}
}
