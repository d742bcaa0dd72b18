package core

import "pkt.systems/rtgui/schema"

// EventSink receives window lifecycle and geometry events from the
// coordinator. Sinks run on the coordinator's goroutine after its lock is
// released; they may query the coordinator but must not request transitions.
type EventSink interface {
	OnWindowEvent(event schema.WindowEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(event schema.WindowEvent)

// OnWindowEvent calls f.
func (f EventSinkFunc) OnWindowEvent(event schema.WindowEvent) {
	f(event)
}
