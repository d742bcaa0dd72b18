package core

import (
	"context"
	"errors"
	"sort"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/rtgui/internal/logx"
	"pkt.systems/rtgui/internal/metrics"
	"pkt.systems/rtgui/internal/rendezvous"
	"pkt.systems/rtgui/schema"
)

// Handler receives application-level messages for a thread's toplevels.
// top is nil for messages that name no window, such as Timer. The returned
// error answers the message's acknowledgment, if any; handlers must not
// reply themselves.
type Handler interface {
	HandleEvent(ctx context.Context, top *Toplevel, ev schema.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, top *Toplevel, ev schema.Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, top *Toplevel, ev schema.Event) error {
	return f(ctx, top, ev)
}

// Mailbox is a thread's inbound channel.
type Mailbox interface {
	Receiver
	Close()
}

// Thread owns toplevels and runs their receive loop. Toplevel state is
// touched only from the loop goroutine.
type Thread struct {
	id       schema.ThreadID
	mb       Mailbox
	poster   Poster
	client   *Client
	retirer  Retirer
	renderer Renderer
	handler  Handler
	widgets  *WidgetRegistry
	observer func(schema.Event)
	maxDepth int
	log      pslog.Logger
	rec      *metrics.Recorder
	throttle *logx.Throttle

	mu     sync.Mutex
	tops   map[schema.WindowID]*Toplevel
	damage map[schema.WindowID][]schema.Rect
}

// NewThread binds a window-owning thread to its mailbox.
func NewThread(mb Mailbox, cfg schema.CoreConfig, deps ThreadDeps) (*Thread, error) {
	normalized, err := schema.NormalizeCoreConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Poster == nil {
		return nil, errors.New("thread: missing poster")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logger.With("thread", mb.ID())
	if deps.Renderer == nil {
		deps.Renderer = nopRenderer{}
	}
	if deps.Handler == nil {
		deps.Handler = HandlerFunc(func(context.Context, *Toplevel, schema.Event) error { return nil })
	}
	if deps.Widgets == nil {
		deps.Widgets = NewWidgetRegistry()
	}
	return &Thread{
		id:     mb.ID(),
		mb:     mb,
		poster: deps.Poster,
		client: NewClient(mb.ID(), deps.Poster, rendezvous.Options{
			Timeout: normalized.CallTimeout,
			Logger:  logger,
			Metrics: deps.Metrics,
		}),
		retirer:  deps.Retirer,
		renderer: deps.Renderer,
		handler:  deps.Handler,
		widgets:  deps.Widgets,
		observer: deps.Observer,
		maxDepth: normalized.MaxDrawingDepth,
		log:      logger,
		rec:      deps.Metrics,
		throttle: logx.NewThrottle(normalized.MisroutedPerSecond, normalized.MisroutedPerMinute),
		tops:     make(map[schema.WindowID]*Toplevel),
		damage:   make(map[schema.WindowID][]schema.Rect),
	}, nil
}

// ID returns the thread id.
func (t *Thread) ID() schema.ThreadID { return t.id }

// Client returns the thread's server client.
func (t *Thread) Client() *Client { return t.client }

// Widgets returns the thread's widget registry.
func (t *Thread) Widgets() *WidgetRegistry { return t.widgets }

// CreateWindow asks the server for a new toplevel and hosts it locally.
func (t *Thread) CreateWindow(ctx context.Context, group schema.GroupID, rect schema.Rect, title string) (*Toplevel, error) {
	wid, err := t.client.Create(ctx, group, rect, title)
	if err != nil {
		return nil, err
	}
	top := newToplevel(wid, t.id, rect.Canon(), title, t.maxDepth)
	top.focus = NewFocusTracker(wid, t.widgets, t.emitFocus)
	t.mu.Lock()
	t.tops[wid] = top
	t.mu.Unlock()
	logx.WithWindow(t.log, wid).Debug("thread window hosted", "title", title)
	return top, nil
}

// Toplevel returns a hosted toplevel.
func (t *Thread) Toplevel(wid schema.WindowID) (*Toplevel, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	top, ok := t.tops[wid]
	return top, ok
}

// Toplevels lists hosted windows in slot order.
func (t *Thread) Toplevels() []schema.WindowID {
	t.mu.Lock()
	out := make([]schema.WindowID, 0, len(t.tops))
	for wid := range t.tops {
		out = append(out, wid)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

// Run receives and handles messages until ctx ends or the mailbox closes.
// On return every hosted window is torn down and its destruction requested.
func (t *Thread) Run(ctx context.Context) error {
	t.log.Info("thread loop start")
	defer t.shutdown()
	ctx = logx.ContextWithThreadLogger(ctx, t.log, t.id)
	for {
		ev, err := t.mb.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, schema.ErrMailboxClosed) {
				t.log.Info("thread loop stop")
				return nil
			}
			return err
		}
		t.Handle(ctx, ev)
	}
}

// Close closes the mailbox, ending Run.
func (t *Thread) Close() {
	t.mb.Close()
}

// Handle dispatches one message. It must run on the loop goroutine.
func (t *Thread) Handle(ctx context.Context, ev schema.Event) {
	if t.observer != nil {
		t.observer(ev)
	}
	if _, ok := ev.(*schema.Timer); ok {
		t.respond(ev, schema.WindowID{}, t.handler.HandleEvent(ctx, nil, ev))
		return
	}
	wid, ok := schema.TargetOf(ev)
	if !ok {
		if wr, isResize := ev.(*schema.WidgetResize); isResize {
			wid, ok = t.widgets.Window(wr.Widget)
		}
	}
	top, hosted := t.Toplevel(wid)
	if !ok || !hosted {
		if _, isDestroy := ev.(*schema.Destroy); isDestroy && ok {
			// Not hosted here, but the identity is still ours to release.
			t.retire(wid)
			t.respond(ev, wid, nil)
			return
		}
		t.misrouted(ctx, ev, wid)
		return
	}

	switch e := ev.(type) {
	case *schema.Clip:
		if !top.ApplyClip(e) {
			logx.WithWindow(t.log, wid).Trace("thread stale clip ignored", "serial", e.Serial(), "applied", top.Serial())
		}
		return
	case *schema.Update:
		t.damage[wid] = append(t.damage[wid], e.Rect)
		return
	case *schema.Paint:
		t.paint(ctx, top, e)
		return
	case *schema.Destroy:
		err := t.handler.HandleEvent(ctx, top, ev)
		t.release(top)
		t.retire(wid)
		t.respond(ev, wid, err)
		return
	case *schema.Show:
		top.shown = true
		top.minimized = false
	case *schema.Hide:
		top.shown = false
	case *schema.Activate:
		top.active = true
	case *schema.Deactivate:
		top.active = false
	case *schema.Minimize:
		top.minimized = true
	case *schema.Move:
		top.rect = top.rect.Add(schema.Point{X: e.X, Y: e.Y}.Sub(top.rect.Min))
	case *schema.Resize:
		top.rect = e.Rect
	}
	t.respond(ev, wid, t.handler.HandleEvent(ctx, top, ev))
}

func (t *Thread) paint(ctx context.Context, top *Toplevel, e *schema.Paint) {
	wid := top.ID()
	log := logx.WithWindow(t.log, wid)
	if !top.HasClip() {
		log.Debug("thread paint without clip dropped")
		return
	}
	damage := t.damage[wid]
	delete(t.damage, wid)
	clip, err := top.BeginDraw()
	if err != nil {
		log.Warn("thread paint skipped", "err", err)
		return
	}
	if len(clip) > 0 {
		req := PaintRequest{Window: wid, Clip: clip, Full: e.Full}
		if !e.Full {
			req.Damage = damage
		}
		rctx := logx.ContextWithWindow(pslog.ContextWithLogger(ctx, logx.WithThreadWindow(ctx, t.id, wid)), wid)
		if err := t.renderer.Paint(rctx, top, req); err != nil {
			log.Warn("thread paint failed", "err", err)
		}
	}
	if err := top.EndDraw(); err != nil {
		log.Warn("thread draw scope unbalanced", "err", err)
	}
}

// release tears down a toplevel: clip cleared, focus cleared, widgets freed.
func (t *Thread) release(top *Toplevel) {
	wid := top.ID()
	top.teardown()
	released := t.widgets.ReleaseWindow(wid)
	t.mu.Lock()
	delete(t.tops, wid)
	delete(t.damage, wid)
	t.mu.Unlock()
	logx.WithWindow(t.log, wid).Debug("thread window released", "widgets", released)
}

func (t *Thread) retire(wid schema.WindowID) {
	if t.retirer == nil {
		return
	}
	if err := t.retirer.Retire(wid); err != nil {
		logx.WithWindow(t.log, wid).Warn("thread retire failed", "err", err)
	}
}

func (t *Thread) shutdown() {
	t.mb.Close()
	for _, wid := range t.Toplevels() {
		top, ok := t.Toplevel(wid)
		if !ok {
			continue
		}
		t.release(top)
		// The server retires the window once Destroy cannot reach us.
		if err := t.poster.Post(schema.ServerThread, &schema.Destroy{Header: schema.Header{Origin: t.id}, Window: wid}); err != nil {
			logx.WithWindow(t.log, wid).Debug("thread orphan destroy dropped", "err", err)
		}
	}
}

func (t *Thread) emitFocus(ev schema.Event) {
	ev.Head().Origin = t.id
	if err := t.poster.Post(t.id, ev); err != nil {
		logx.WithEvent(t.log, ev).Trace("thread focus notification dropped", "err", err)
	}
}

func (t *Thread) misrouted(ctx context.Context, ev schema.Event, wid schema.WindowID) {
	t.rec.Misrouted(ctx, ev.Kind())
	if t.throttle.Allow(wid) {
		logx.WithEvent(t.log, ev).Warn("thread misrouted message dropped")
	}
	t.respond(ev, wid, schema.ErrUnknownWindow)
}

func (t *Thread) respond(ev schema.Event, wid schema.WindowID, err error) {
	if rerr := rendezvous.RespondErr(ev, wid, err); rerr != nil {
		logx.WithEvent(t.log, ev).Warn("thread reply failed", "err", rerr)
	}
}
