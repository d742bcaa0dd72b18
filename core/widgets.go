package core

import (
	"fmt"
	"sync"

	"pkt.systems/rtgui/schema"
)

type widgetSlot struct {
	gen    uint32
	alive  bool
	window schema.WindowID
	name   string
}

// WidgetRegistry hands out generation-tagged widget references and tells
// listeners when a widget is destroyed, so weak relations can drop it.
type WidgetRegistry struct {
	mu           sync.Mutex
	slots        []widgetSlot
	free         []uint32
	listeners    map[uint64]func(schema.WidgetRef)
	nextListener uint64
}

// NewWidgetRegistry constructs an empty registry.
func NewWidgetRegistry() *WidgetRegistry {
	return &WidgetRegistry{listeners: make(map[uint64]func(schema.WidgetRef))}
}

// Register adds a widget belonging to a toplevel.
func (r *WidgetRegistry) Register(wid schema.WindowID, name string) schema.WidgetRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, widgetSlot{})
		idx = uint32(len(r.slots))
	}
	s := &r.slots[idx-1]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.alive = true
	s.window = wid
	s.name = name
	return schema.WidgetRef{ID: idx, Gen: s.gen}
}

func (r *WidgetRegistry) slotLocked(ref schema.WidgetRef) *widgetSlot {
	if ref.IsZero() || ref.ID == 0 || int(ref.ID) > len(r.slots) {
		return nil
	}
	s := &r.slots[ref.ID-1]
	if s.gen != ref.Gen || !s.alive {
		return nil
	}
	return s
}

// Alive reports whether ref names a live widget.
func (r *WidgetRegistry) Alive(ref schema.WidgetRef) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotLocked(ref) != nil
}

// Window returns the toplevel a live widget belongs to.
func (r *WidgetRegistry) Window(ref schema.WidgetRef) (schema.WindowID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.slotLocked(ref); s != nil {
		return s.window, true
	}
	return schema.WindowID{}, false
}

// Name returns a live widget's name.
func (r *WidgetRegistry) Name(ref schema.WidgetRef) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.slotLocked(ref); s != nil {
		return s.name
	}
	return ""
}

// Len returns the number of live widgets.
func (r *WidgetRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.slots {
		if s.alive {
			n++
		}
	}
	return n
}

// Destroy kills a widget and notifies listeners.
func (r *WidgetRegistry) Destroy(ref schema.WidgetRef) error {
	r.mu.Lock()
	s := r.slotLocked(ref)
	if s == nil {
		r.mu.Unlock()
		return fmt.Errorf("%s: %w", ref, schema.ErrUnknownWidget)
	}
	r.killLocked(ref, s)
	listeners := r.listenersLocked()
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(ref)
	}
	return nil
}

// ReleaseWindow destroys every widget of a toplevel and returns how many.
func (r *WidgetRegistry) ReleaseWindow(wid schema.WindowID) int {
	r.mu.Lock()
	var dead []schema.WidgetRef
	for i := range r.slots {
		s := &r.slots[i]
		if s.alive && s.window == wid {
			ref := schema.WidgetRef{ID: uint32(i + 1), Gen: s.gen}
			r.killLocked(ref, s)
			dead = append(dead, ref)
		}
	}
	listeners := r.listenersLocked()
	r.mu.Unlock()
	for _, ref := range dead {
		for _, fn := range listeners {
			fn(ref)
		}
	}
	return len(dead)
}

// OnDestroy registers fn to run after any widget is destroyed. It returns a
// function removing the listener.
func (r *WidgetRegistry) OnDestroy(fn func(schema.WidgetRef)) func() {
	r.mu.Lock()
	r.nextListener++
	id := r.nextListener
	r.listeners[id] = fn
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *WidgetRegistry) killLocked(ref schema.WidgetRef, s *widgetSlot) {
	s.alive = false
	s.name = ""
	r.free = append(r.free, ref.ID)
}

func (r *WidgetRegistry) listenersLocked() []func(schema.WidgetRef) {
	out := make([]func(schema.WidgetRef), 0, len(r.listeners))
	for _, fn := range r.listeners {
		out = append(out, fn)
	}
	return out
}
