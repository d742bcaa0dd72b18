package schema

import (
	"fmt"
	"image"
)

// ThreadID identifies a message-owning thread. It is a back-reference for
// routing and diagnostics, not an ownership handle.
type ThreadID string

// ServerThread is the thread that owns the window coordinator.
const ServerThread ThreadID = "server"

// InputThread is the origin stamped on driver input.
const InputThread ThreadID = "input"

// TimerThread is the origin stamped on timer expiries.
const TimerThread ThreadID = "timer"

// GroupID names a stacking group.
type GroupID string

// DefaultGroup is the group windows join when none is requested.
const DefaultGroup GroupID = ""

// WindowID identifies a toplevel window. Slots are recycled only after the
// window is retired, and every reuse bumps Gen, so a stale id never names a
// newer window.
type WindowID struct {
	Slot uint32
	Gen  uint32
}

// IsZero reports whether the id names no window.
func (w WindowID) IsZero() bool {
	return w.Gen == 0
}

func (w WindowID) String() string {
	if w.IsZero() {
		return "w-none"
	}
	return fmt.Sprintf("w%d.%d", w.Slot, w.Gen)
}

// WidgetRef is a weak, generation-tagged reference to a widget.
// The zero value is the null reference.
type WidgetRef struct {
	ID  uint32
	Gen uint32
}

// IsZero reports whether the reference is null.
func (r WidgetRef) IsZero() bool {
	return r.Gen == 0
}

func (r WidgetRef) String() string {
	if r.IsZero() {
		return "widget-none"
	}
	return fmt.Sprintf("widget%d.%d", r.ID, r.Gen)
}

// TimerRef identifies a registered timer.
type TimerRef uint64

// Rect is a screen rectangle; Max is exclusive.
type Rect = image.Rectangle

// Point is a screen coordinate.
type Point = image.Point

// R is shorthand for image.Rect.
func R(x0, y0, x1, y1 int) Rect {
	return image.Rect(x0, y0, x1, y1)
}
