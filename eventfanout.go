package rtgui

import (
	"pkt.systems/pslog"
	"pkt.systems/rtgui/core"
	"pkt.systems/rtgui/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnWindowEvent(event schema.WindowEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnWindowEvent(event)
	}
}

type logSink struct {
	log pslog.Logger
}

func (l logSink) OnWindowEvent(event schema.WindowEvent) {
	l.log.Debug("shell window event",
		"event", event.Type,
		"wid", event.Window.ID,
		"owner", event.Window.Owner,
		"state", event.Window.State,
		"active", event.Active,
	)
}
