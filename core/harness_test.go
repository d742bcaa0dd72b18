package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"pkt.systems/rtgui/internal/eventbus"
	"pkt.systems/rtgui/internal/rendezvous"
	"pkt.systems/rtgui/schema"
)

type harness struct {
	t     *testing.T
	bus   *eventbus.Bus
	coord *Coordinator
	boxes map[schema.ThreadID]*eventbus.Mailbox

	mu     sync.Mutex
	events []schema.WindowEvent
}

func testConfig() schema.CoreConfig {
	return schema.CoreConfig{
		Screen:           schema.R(0, 0, 800, 480),
		CallTimeout:      time.Second,
		HandshakeTimeout: 30 * time.Millisecond,
	}
}

func newHarness(t *testing.T, threads ...schema.ThreadID) *harness {
	t.Helper()
	return newHarnessWithConfig(t, testConfig(), threads...)
}

func newHarnessWithConfig(t *testing.T, cfg schema.CoreConfig, threads ...schema.ThreadID) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		bus:   eventbus.New(nil, eventbus.Config{Depth: cfg.ChannelDepth}),
		boxes: make(map[schema.ThreadID]*eventbus.Mailbox),
	}
	coord, err := NewCoordinator(cfg, CoordinatorDeps{
		Poster:    h.bus,
		EventSink: EventSinkFunc(h.record),
	})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	h.coord = coord
	for _, id := range threads {
		mb, err := h.bus.Register(id)
		if err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
		h.boxes[id] = mb
		t.Cleanup(mb.Close)
	}
	return h
}

func (h *harness) record(ev schema.WindowEvent) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *harness) windowEvents() []schema.WindowEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]schema.WindowEvent{}, h.events...)
}

func (h *harness) create(owner schema.ThreadID, rect schema.Rect) schema.WindowID {
	h.t.Helper()
	wid, err := h.coord.Create(context.Background(), owner, schema.DefaultGroup, rect, "")
	if err != nil {
		h.t.Fatalf("create: %v", err)
	}
	return wid
}

func (h *harness) must(err error) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("unexpected error: %v", err)
	}
}

// drain returns every message queued for a thread.
func (h *harness) drain(id schema.ThreadID) []schema.Event {
	var out []schema.Event
	for {
		ev, ok := h.boxes[id].TryReceive()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func lastClip(evs []schema.Event, wid schema.WindowID) *schema.Clip {
	var last *schema.Clip
	for _, ev := range evs {
		if c, ok := ev.(*schema.Clip); ok && c.Window == wid {
			last = c
		}
	}
	return last
}

func countKind(evs []schema.Event, kind schema.Kind, wid schema.WindowID) int {
	n := 0
	for _, ev := range evs {
		if ev.Kind() != kind {
			continue
		}
		if target, ok := schema.TargetOf(ev); ok && target == wid {
			n++
		}
	}
	return n
}

func indexOf(evs []schema.Event, kind schema.Kind, wid schema.WindowID) int {
	for i, ev := range evs {
		if ev.Kind() != kind {
			continue
		}
		if target, ok := schema.TargetOf(ev); ok && target == wid {
			return i
		}
	}
	return -1
}

type received struct {
	seq    int
	thread schema.ThreadID
	ev     schema.Event
}

// journal answers every acknowledgment and records arrival order across
// threads.
type journal struct {
	mu  sync.Mutex
	seq int
	got []received
}

func (j *journal) serve(ctx context.Context, mb *eventbus.Mailbox) {
	for {
		ev, err := mb.Receive(ctx)
		if err != nil {
			return
		}
		j.mu.Lock()
		j.seq++
		j.got = append(j.got, received{seq: j.seq, thread: mb.ID(), ev: ev})
		j.mu.Unlock()
		wid, _ := schema.TargetOf(ev)
		_ = rendezvous.Respond(ev, schema.Reply{Status: schema.StatusOK, Window: wid})
	}
}

func (j *journal) find(kind schema.Kind, wid schema.WindowID) (received, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, r := range j.got {
		if r.ev.Kind() != kind {
			continue
		}
		if target, ok := schema.TargetOf(r.ev); ok && target == wid {
			return r, true
		}
	}
	return received{}, false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(2 * time.Millisecond):
		}
	}
}
