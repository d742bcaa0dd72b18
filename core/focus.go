package core

import (
	"fmt"
	"sync"

	"pkt.systems/rtgui/schema"
)

// FocusTracker holds the single focused widget of one toplevel. The relation
// is weak: destroying the widget clears focus.
type FocusTracker struct {
	wid     schema.WindowID
	widgets *WidgetRegistry
	emit    func(schema.Event)

	mu      sync.Mutex
	current schema.WidgetRef
	cancel  func()
}

// NewFocusTracker builds a tracker for wid. emit receives every Focused
// message; it may be nil.
func NewFocusTracker(wid schema.WindowID, widgets *WidgetRegistry, emit func(schema.Event)) *FocusTracker {
	if emit == nil {
		emit = func(schema.Event) {}
	}
	f := &FocusTracker{wid: wid, widgets: widgets, emit: emit}
	f.cancel = widgets.OnDestroy(f.widgetDestroyed)
	return f
}

// Set focuses ref, replacing any prior focus in one step, and emits Focused
// carrying ref. Focusing the current widget again is a no-op.
func (f *FocusTracker) Set(ref schema.WidgetRef) error {
	if owner, ok := f.widgets.Window(ref); !ok || owner != f.wid {
		return fmt.Errorf("focus %s on %s: %w", ref, f.wid, schema.ErrUnknownWidget)
	}
	f.mu.Lock()
	if f.cancel == nil {
		f.mu.Unlock()
		return fmt.Errorf("focus %s on %s: %w", ref, f.wid, schema.ErrUnknownWindow)
	}
	if f.current == ref {
		f.mu.Unlock()
		return nil
	}
	f.current = ref
	f.mu.Unlock()
	f.emit(&schema.Focused{Window: f.wid, Widget: ref})
	if !f.widgets.Alive(ref) {
		// Destroyed between the check and the swap.
		f.clearIf(ref)
	}
	return nil
}

// Clear drops focus and emits Focused with the null reference.
func (f *FocusTracker) Clear() {
	f.mu.Lock()
	if f.current.IsZero() {
		f.mu.Unlock()
		return
	}
	f.current = schema.WidgetRef{}
	f.mu.Unlock()
	f.emit(&schema.Focused{Window: f.wid})
}

// Current returns the focused widget, checking that it is still alive.
func (f *FocusTracker) Current() (schema.WidgetRef, bool) {
	f.mu.Lock()
	ref := f.current
	f.mu.Unlock()
	if ref.IsZero() || !f.widgets.Alive(ref) {
		return schema.WidgetRef{}, false
	}
	return ref, true
}

func (f *FocusTracker) widgetDestroyed(ref schema.WidgetRef) {
	f.clearIf(ref)
}

func (f *FocusTracker) clearIf(ref schema.WidgetRef) {
	f.mu.Lock()
	if f.current != ref {
		f.mu.Unlock()
		return
	}
	f.current = schema.WidgetRef{}
	f.mu.Unlock()
	f.emit(&schema.Focused{Window: f.wid})
}

// detach stops tracking without emitting; the toplevel is going away.
func (f *FocusTracker) detach() {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.current = schema.WidgetRef{}
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
