package core

import (
	"pkt.systems/pslog"
	"pkt.systems/rtgui/internal/metrics"
	"pkt.systems/rtgui/schema"
)

// Poster delivers messages to thread mailboxes without blocking.
type Poster interface {
	Post(dst schema.ThreadID, ev schema.Event) error
}

// CoordinatorDeps captures dependencies for the window coordinator.
type CoordinatorDeps struct {
	Poster    Poster
	EventSink EventSink
	Logger    pslog.Logger
	Metrics   *metrics.Recorder
}

// ThreadDeps captures dependencies for a window-owning thread.
type ThreadDeps struct {
	Poster Poster
	// Retirer releases window identities after local teardown.
	Retirer  Retirer
	Renderer Renderer
	Handler  Handler
	Widgets  *WidgetRegistry
	// Observer sees every message the thread receives, before dispatch.
	Observer func(schema.Event)
	Logger   pslog.Logger
	Metrics  *metrics.Recorder
}

// Retirer releases a destroyed window's identity.
type Retirer interface {
	Retire(wid schema.WindowID) error
}
