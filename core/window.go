package core

import (
	"fmt"

	"pkt.systems/rtgui/schema"
)

// window is the coordinator's record of one toplevel.
type window struct {
	id        schema.WindowID
	owner     schema.ThreadID
	group     schema.GroupID
	title     string
	state     schema.WindowState
	rect      schema.Rect
	restore   schema.Rect
	maximized bool
	minimized bool

	// clip is the sequence last handed to the owner; delivered is false until
	// the first Clip is posted.
	clip      []schema.Rect
	delivered bool
}

func (w *window) live() bool {
	return w.state != schema.StateDestroyed
}

type slot struct {
	gen uint32
	win *window
}

// windowTable allocates generation-tagged window ids. A slot is reused only
// after Retire, and each reuse bumps its generation.
type windowTable struct {
	slots []slot
	free  []uint32
}

func (t *windowTable) allocate() schema.WindowID {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, slot{})
		idx = uint32(len(t.slots))
	}
	s := &t.slots[idx-1]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	return schema.WindowID{Slot: idx, Gen: s.gen}
}

func (t *windowTable) put(w *window) {
	t.slots[w.id.Slot-1].win = w
}

// lookup returns the record for wid, including destroyed-but-unretired ones.
func (t *windowTable) lookup(wid schema.WindowID) (*window, error) {
	if wid.IsZero() || wid.Slot == 0 || int(wid.Slot) > len(t.slots) {
		return nil, fmt.Errorf("%s: %w", wid, schema.ErrUnknownWindow)
	}
	s := t.slots[wid.Slot-1]
	if s.gen != wid.Gen || s.win == nil {
		return nil, fmt.Errorf("%s: %w", wid, schema.ErrUnknownWindow)
	}
	return s.win, nil
}

// live returns the record for wid when it is not destroyed.
func (t *windowTable) live(wid schema.WindowID) (*window, error) {
	w, err := t.lookup(wid)
	if err != nil {
		return nil, err
	}
	if !w.live() {
		return nil, fmt.Errorf("%s: %w", wid, schema.ErrWindowDestroyed)
	}
	return w, nil
}

func (t *windowTable) retire(wid schema.WindowID) {
	t.slots[wid.Slot-1].win = nil
	t.free = append(t.free, wid.Slot)
}

func (t *windowTable) each(fn func(*window)) {
	for i := range t.slots {
		if w := t.slots[i].win; w != nil {
			fn(w)
		}
	}
}

func (t *windowTable) reset() {
	t.slots = nil
	t.free = nil
}
