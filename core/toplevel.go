package core

import (
	"fmt"

	"pkt.systems/rtgui/schema"
)

// Toplevel is the owner-side state of one window. It is mutated only by the
// thread that owns it.
type Toplevel struct {
	id       schema.WindowID
	owner    schema.ThreadID
	server   schema.ThreadID
	title    string
	rect     schema.Rect
	maxDepth int

	depth   int
	clip    []schema.Rect
	serial  uint64
	hasClip bool
	pending *schema.Clip

	active    bool
	shown     bool
	minimized bool
	focus     *FocusTracker
}

func newToplevel(id schema.WindowID, owner schema.ThreadID, rect schema.Rect, title string, maxDepth int) *Toplevel {
	if maxDepth <= 0 {
		maxDepth = schema.DefaultMaxDrawingDepth
	}
	return &Toplevel{
		id:       id,
		owner:    owner,
		server:   schema.ServerThread,
		title:    title,
		rect:     rect,
		maxDepth: maxDepth,
	}
}

// ID returns the window id.
func (t *Toplevel) ID() schema.WindowID { return t.id }

// Owner returns the owning thread.
func (t *Toplevel) Owner() schema.ThreadID { return t.owner }

// Server returns the thread compositing this toplevel.
func (t *Toplevel) Server() schema.ThreadID { return t.server }

// Title returns the title given at creation.
func (t *Toplevel) Title() string { return t.title }

// Rect returns the last geometry reported by the server.
func (t *Toplevel) Rect() schema.Rect { return t.rect }

// Active reports whether the window holds its group's active state.
func (t *Toplevel) Active() bool { return t.active }

// Shown reports whether the server last reported the window visible.
func (t *Toplevel) Shown() bool { return t.shown && !t.minimized }

// Focus returns the window's focus tracker.
func (t *Toplevel) Focus() *FocusTracker { return t.focus }

// DrawingDepth returns the number of open draw scopes.
func (t *Toplevel) DrawingDepth() int { return t.depth }

// HasClip reports whether a clip was received and is current.
func (t *Toplevel) HasClip() bool { return t.hasClip }

// Serial returns the serial of the applied clip.
func (t *Toplevel) Serial() uint64 { return t.serial }

// Clip returns a copy of the applied visible rectangles.
func (t *Toplevel) Clip() []schema.Rect {
	return append([]schema.Rect{}, t.clip...)
}

// ApplyClip replaces the visible rectangles wholesale when c is newer than
// what is applied. While a draw scope is open the newest clip is held and
// applied when the outermost scope ends. It reports whether c was accepted.
func (t *Toplevel) ApplyClip(c *schema.Clip) bool {
	if c == nil || c.Window != t.id {
		return false
	}
	if t.hasClip && c.Serial() <= t.serial {
		return false
	}
	if t.depth > 0 {
		if t.pending != nil && c.Serial() <= t.pending.Serial() {
			return false
		}
		t.pending = c
		return true
	}
	t.install(c)
	return true
}

func (t *Toplevel) install(c *schema.Clip) {
	t.clip = c.Rects()
	t.serial = c.Serial()
	t.hasClip = true
}

// BeginDraw opens a draw scope and returns the clip in force for it. Nested
// scopes share the same clip.
func (t *Toplevel) BeginDraw() ([]schema.Rect, error) {
	if t.depth >= t.maxDepth {
		return nil, fmt.Errorf("%s: depth %d: %w", t.id, t.depth, schema.ErrDrawDepthExceeded)
	}
	t.depth++
	return t.Clip(), nil
}

// EndDraw closes a draw scope. Closing the outermost scope applies any clip
// that arrived while drawing.
func (t *Toplevel) EndDraw() error {
	if t.depth == 0 {
		return fmt.Errorf("%s: %w", t.id, schema.ErrNotDrawing)
	}
	t.depth--
	if t.depth == 0 && t.pending != nil {
		pending := t.pending
		t.pending = nil
		if !t.hasClip || pending.Serial() > t.serial {
			t.install(pending)
		}
	}
	return nil
}

func (t *Toplevel) teardown() {
	t.clip = nil
	t.hasClip = false
	t.pending = nil
	t.depth = 0
	t.active = false
	t.shown = false
	if t.focus != nil {
		t.focus.detach()
	}
}
