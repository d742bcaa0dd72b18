package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"pkt.systems/rtgui/schema"
)

type focusLog struct {
	mu  sync.Mutex
	got []schema.WidgetRef
}

func (l *focusLog) emit(ev schema.Event) {
	f, ok := ev.(*schema.Focused)
	if !ok {
		return
	}
	l.mu.Lock()
	l.got = append(l.got, f.Widget)
	l.mu.Unlock()
}

func (l *focusLog) refs() []schema.WidgetRef {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]schema.WidgetRef{}, l.got...)
}

func TestFocusClearedWhenWidgetDestroyed(t *testing.T) {
	wid := schema.WindowID{Slot: 1, Gen: 1}
	widgets := NewWidgetRegistry()
	log := &focusLog{}
	focus := NewFocusTracker(wid, widgets, log.emit)

	button := widgets.Register(wid, "button")
	if err := focus.Set(button); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cur, ok := focus.Current(); !ok || cur != button {
		t.Fatalf("expected focus on button, got %v %v", cur, ok)
	}
	if err := widgets.Destroy(button); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, ok := focus.Current(); ok {
		t.Fatalf("expected no focus after destroy")
	}
	want := []schema.WidgetRef{button, {}}
	if diff := cmp.Diff(want, log.refs()); diff != "" {
		t.Fatalf("focus notifications mismatch (-want +got):\n%s", diff)
	}
}

func TestFocusSwapIsSingleStep(t *testing.T) {
	wid := schema.WindowID{Slot: 1, Gen: 1}
	widgets := NewWidgetRegistry()
	log := &focusLog{}
	focus := NewFocusTracker(wid, widgets, log.emit)

	a := widgets.Register(wid, "a")
	b := widgets.Register(wid, "b")
	if err := focus.Set(a); err != nil {
		t.Fatalf("set a: %v", err)
	}
	if err := focus.Set(a); err != nil {
		t.Fatalf("set a again: %v", err)
	}
	if err := focus.Set(b); err != nil {
		t.Fatalf("set b: %v", err)
	}
	focus.Clear()
	focus.Clear()
	want := []schema.WidgetRef{a, b, {}}
	if diff := cmp.Diff(want, log.refs()); diff != "" {
		t.Fatalf("focus notifications mismatch (-want +got):\n%s", diff)
	}
	// Destroying a widget that is not focused emits nothing.
	if err := widgets.Destroy(a); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if got := len(log.refs()); got != 3 {
		t.Fatalf("expected no extra notification, got %d", got)
	}
}

func TestFocusRejectsForeignOrDeadWidget(t *testing.T) {
	wid := schema.WindowID{Slot: 1, Gen: 1}
	other := schema.WindowID{Slot: 2, Gen: 1}
	widgets := NewWidgetRegistry()
	focus := NewFocusTracker(wid, widgets, nil)

	foreign := widgets.Register(other, "foreign")
	if err := focus.Set(foreign); !errors.Is(err, schema.ErrUnknownWidget) {
		t.Fatalf("expected ErrUnknownWidget for foreign widget, got %v", err)
	}
	dead := widgets.Register(wid, "dead")
	_ = widgets.Destroy(dead)
	if err := focus.Set(dead); !errors.Is(err, schema.ErrUnknownWidget) {
		t.Fatalf("expected ErrUnknownWidget for dead widget, got %v", err)
	}
	focus.detach()
	live := widgets.Register(wid, "live")
	if err := focus.Set(live); !errors.Is(err, schema.ErrUnknownWindow) {
		t.Fatalf("expected ErrUnknownWindow after detach, got %v", err)
	}
}

func TestWidgetRegistryGenerations(t *testing.T) {
	wid := schema.WindowID{Slot: 1, Gen: 1}
	widgets := NewWidgetRegistry()

	first := widgets.Register(wid, "first")
	if err := widgets.Destroy(first); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	second := widgets.Register(wid, "second")
	if second.ID != first.ID || second.Gen == first.Gen {
		t.Fatalf("expected slot reuse under a new generation, got %v after %v", second, first)
	}
	if widgets.Alive(first) {
		t.Fatalf("expected stale reference dead")
	}
	if err := widgets.Destroy(first); !errors.Is(err, schema.ErrUnknownWidget) {
		t.Fatalf("expected ErrUnknownWidget, got %v", err)
	}
	if widgets.Name(second) != "second" {
		t.Fatalf("unexpected name %q", widgets.Name(second))
	}

	widgets.Register(wid, "third")
	widgets.Register(schema.WindowID{Slot: 2, Gen: 1}, "elsewhere")
	if n := widgets.ReleaseWindow(wid); n != 2 {
		t.Fatalf("expected two widgets released, got %d", n)
	}
	if widgets.Len() != 1 {
		t.Fatalf("expected one widget left, got %d", widgets.Len())
	}
}
