package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pkt.systems/rtgui/schema"
)

func TestRegisterAndReceive(t *testing.T) {
	bus := New(nil, Config{})
	mb, err := bus.Register("app")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer mb.Close()

	wid := schema.WindowID{Slot: 1, Gen: 1}
	if err := bus.Post("app", &schema.Paint{Window: wid, Full: true}); err != nil {
		t.Fatalf("post: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	ev, err := mb.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	paint, ok := ev.(*schema.Paint)
	if !ok || paint.Window != wid || !paint.Full {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	bus := New(nil, Config{})
	mb, err := bus.Register("app")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := bus.Register("app"); !errors.Is(err, schema.ErrDuplicateThread) {
		t.Fatalf("expected ErrDuplicateThread, got %v", err)
	}
	mb.Close()
	again, err := bus.Register("app")
	if err != nil {
		t.Fatalf("re-register after close: %v", err)
	}
	again.Close()
}

func TestPostUnknownDestination(t *testing.T) {
	bus := New(nil, Config{})
	err := bus.Post("nobody", &schema.Timer{Ref: 1})
	if !errors.Is(err, schema.ErrUnknownDestination) {
		t.Fatalf("expected ErrUnknownDestination, got %v", err)
	}
}

func TestPostDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil, Config{Depth: 1})
	mb, err := bus.Register("app")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer mb.Close()
	if err := bus.Post("app", &schema.Timer{Ref: 1}); err != nil {
		t.Fatalf("first post: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		done <- bus.Post("app", &schema.Timer{Ref: 2})
	}()
	select {
	case err := <-done:
		if !errors.Is(err, schema.ErrNoCapacity) {
			t.Fatalf("expected ErrNoCapacity, got %v", err)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("post blocked on full mailbox")
	}
	bus.Notify("app", &schema.Timer{Ref: 3})
	if mb.Len() != 1 {
		t.Fatalf("expected only the first message queued, got %d", mb.Len())
	}
}

func TestFIFOPerOrigin(t *testing.T) {
	const perOrigin = 50
	bus := New(nil, Config{Depth: 4 * perOrigin})
	mb, err := bus.Register("app")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer mb.Close()

	origins := []schema.ThreadID{"a", "b", "c"}
	var wg sync.WaitGroup
	for _, origin := range origins {
		wg.Add(1)
		go func(origin schema.ThreadID) {
			defer wg.Done()
			for i := 1; i <= perOrigin; i++ {
				ev := &schema.Timer{Header: schema.Header{Origin: origin}, Ref: schema.TimerRef(i)}
				if err := bus.Post("app", ev); err != nil {
					t.Errorf("post: %v", err)
					return
				}
			}
		}(origin)
	}
	wg.Wait()

	last := make(map[schema.ThreadID]schema.TimerRef)
	for i := 0; i < perOrigin*len(origins); i++ {
		ev, ok := mb.TryReceive()
		if !ok {
			t.Fatalf("expected %d messages, got %d", perOrigin*len(origins), i)
		}
		tm := ev.(*schema.Timer)
		if tm.Ref <= last[tm.Origin] {
			t.Fatalf("origin %s out of order: %d after %d", tm.Origin, tm.Ref, last[tm.Origin])
		}
		last[tm.Origin] = tm.Ref
	}
}

func TestCloseAbandonsPendingAcks(t *testing.T) {
	bus := New(nil, Config{})
	mb, err := bus.Register("app")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	ev := &schema.Show{Window: schema.WindowID{Slot: 1, Gen: 1}}
	ack := schema.NewAck()
	if err := ev.AttachAck(ack); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := bus.Post("app", ev); err != nil {
		t.Fatalf("post: %v", err)
	}
	mb.Close()
	if _, err := ack.Wait(context.Background(), time.Second); !errors.Is(err, schema.ErrNoResponse) {
		t.Fatalf("expected ErrNoResponse after close, got %v", err)
	}
	if bus.Registered("app") {
		t.Fatalf("expected mailbox to be unregistered")
	}
	if _, err := mb.Receive(context.Background()); !errors.Is(err, schema.ErrMailboxClosed) {
		t.Fatalf("expected ErrMailboxClosed, got %v", err)
	}
}

func TestReceiveHonorsContext(t *testing.T) {
	bus := New(nil, Config{})
	mb, err := bus.Register("app")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer mb.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := mb.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestThreadsSorted(t *testing.T) {
	bus := New(nil, Config{})
	for _, id := range []schema.ThreadID{"b", "a", "c"} {
		if _, err := bus.Register(id); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	got := bus.Threads()
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("unexpected threads %v", got)
	}
}
