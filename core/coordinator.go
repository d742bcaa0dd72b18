package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/rtgui/internal/logx"
	"pkt.systems/rtgui/internal/metrics"
	"pkt.systems/rtgui/internal/rendezvous"
	"pkt.systems/rtgui/schema"
)

// CloseVeto decides whether a window may close. A non-nil error refuses the
// close and becomes the refusal reason. It runs on the coordinator goroutine
// outside the state lock and must not request transitions itself.
type CloseVeto func(ctx context.Context, wid schema.WindowID) error

// Coordinator owns the authoritative window table, stacking order, and
// active window per group. Transitions are serialized; queries may run from
// any goroutine.
type Coordinator struct {
	cfg      schema.CoreConfig
	poster   Poster
	caller   *rendezvous.Caller
	sink     EventSink
	log      pslog.Logger
	rec      *metrics.Recorder
	throttle *logx.Throttle

	// ops serializes transitions; it is held across posts, mu never is.
	ops sync.Mutex

	mu     sync.Mutex
	table  windowTable
	stack  []schema.WindowID
	active map[schema.GroupID]schema.WindowID
	vetoes map[schema.WindowID]CloseVeto
	serial uint64
	closed bool
}

// NewCoordinator constructs a coordinator.
func NewCoordinator(cfg schema.CoreConfig, deps CoordinatorDeps) (*Coordinator, error) {
	normalized, err := schema.NormalizeCoreConfig(cfg)
	if err != nil {
		return nil, err
	}
	if deps.Poster == nil {
		return nil, errors.New("coordinator: missing poster")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Coordinator{
		cfg:    normalized,
		poster: deps.Poster,
		caller: rendezvous.New(deps.Poster, rendezvous.Options{
			Timeout: normalized.HandshakeTimeout,
			Logger:  logger,
			Metrics: deps.Metrics,
		}),
		sink:     deps.EventSink,
		log:      logger,
		rec:      deps.Metrics,
		throttle: logx.NewThrottle(normalized.MisroutedPerSecond, normalized.MisroutedPerMinute),
		active:   make(map[schema.GroupID]schema.WindowID),
		vetoes:   make(map[schema.WindowID]CloseVeto),
	}, nil
}

// Config returns the normalized configuration.
func (c *Coordinator) Config() schema.CoreConfig {
	return c.cfg
}

// outbound is one message to post once the state lock is released.
type outbound struct {
	dst schema.ThreadID
	ev  schema.Event
	// handshake selects a bounded call instead of a post.
	handshake bool
}

type plan struct {
	sends      []outbound
	events     []schema.WindowEvent
	recompute  bool
	recomputed bool
	delivered  int
}

func (p *plan) send(dst schema.ThreadID, ev schema.Event) {
	p.sends = append(p.sends, outbound{dst: dst, ev: ev})
}

func (c *Coordinator) event(p *plan, typ schema.WindowEventType, w *window) {
	p.events = append(p.events, schema.WindowEvent{
		Type:   typ,
		Window: c.snapshotLocked(w),
		Active: c.active[w.group],
	})
}

func header() schema.Header {
	return schema.Header{Origin: schema.ServerThread}
}

type originKey struct{}

// withOrigin records the thread whose request is being applied. That thread
// is blocked until the reply, so it cannot answer calls made on its behalf.
func withOrigin(ctx context.Context, origin schema.ThreadID) context.Context {
	if origin == "" {
		return ctx
	}
	return context.WithValue(ctx, originKey{}, origin)
}

func requestOrigin(ctx context.Context) schema.ThreadID {
	origin, _ := ctx.Value(originKey{}).(schema.ThreadID)
	return origin
}

// callOrPost calls dst with a bounded wait, or posts when dst is the
// requesting thread. Its mailbox is FIFO, so a post still lands before
// anything sent after it.
func (c *Coordinator) callOrPost(ctx context.Context, dst schema.ThreadID, ev schema.Event) error {
	if dst == requestOrigin(ctx) {
		return c.poster.Post(dst, ev)
	}
	_, err := c.caller.Call(ctx, dst, ev)
	return err
}

// Create allocates a hidden toplevel owned by owner.
func (c *Coordinator) Create(ctx context.Context, owner schema.ThreadID, group schema.GroupID, rect schema.Rect, title string) (schema.WindowID, error) {
	if err := schema.ValidateThreadID(owner); err != nil {
		return schema.WindowID{}, fmt.Errorf("create: owner %q: %w", owner, err)
	}
	rect, err := schema.NormalizeRect(rect)
	if err != nil {
		return schema.WindowID{}, fmt.Errorf("create: %w", err)
	}
	c.ops.Lock()
	defer c.ops.Unlock()

	var p plan
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return schema.WindowID{}, schema.ErrShutdown
	}
	wid := c.table.allocate()
	w := &window{
		id:    wid,
		owner: owner,
		group: group,
		title: title,
		state: schema.StateCreated,
		rect:  rect,
	}
	c.table.put(w)
	c.event(&p, schema.WindowEventCreated, w)
	c.mu.Unlock()

	logx.WithWindow(c.log, wid).Info("coordinator window created", "owner", owner, "group", group, "rect", rect.String())
	return wid, c.execute(ctx, &p)
}

// Show makes a hidden window visible at the top of the stacking order. On a
// shown window it only restores from minimize.
func (c *Coordinator) Show(ctx context.Context, wid schema.WindowID) error {
	return c.transition(ctx, wid, func(p *plan, w *window) error {
		switch w.state {
		case schema.StateCreated:
			w.state = schema.StateShown
			w.minimized = false
			c.raiseLocked(w.id)
		case schema.StateShown, schema.StateActive:
			if !w.minimized {
				return nil
			}
			w.minimized = false
		default:
			return fmt.Errorf("show %s in state %s: %w", w.id, w.state, schema.ErrInvalidTransition)
		}
		p.send(w.owner, &schema.Show{Header: header(), Window: w.id})
		c.event(p, schema.WindowEventShown, w)
		p.recompute = true
		return nil
	})
}

// Hide removes a window from view. When it was active, the topmost remaining
// eligible window of its group is activated.
func (c *Coordinator) Hide(ctx context.Context, wid schema.WindowID) error {
	return c.transition(ctx, wid, func(p *plan, w *window) error {
		switch w.state {
		case schema.StateCreated:
			return nil
		case schema.StateShown, schema.StateActive:
		default:
			return fmt.Errorf("hide %s in state %s: %w", w.id, w.state, schema.ErrInvalidTransition)
		}
		c.handOffLocked(p, w)
		c.unstackLocked(w.id)
		w.state = schema.StateCreated
		p.send(w.owner, &schema.Hide{Header: header(), Window: w.id})
		c.event(p, schema.WindowEventHidden, w)
		p.recompute = true
		return nil
	})
}

// Activate raises a shown window and gives it its group's active state. The
// previous active window is deactivated first.
func (c *Coordinator) Activate(ctx context.Context, wid schema.WindowID) error {
	return c.transition(ctx, wid, func(p *plan, w *window) error {
		if !w.state.Visible() {
			return fmt.Errorf("activate %s in state %s: %w", w.id, w.state, schema.ErrInvalidTransition)
		}
		w.minimized = false
		c.raiseLocked(w.id)
		c.switchActiveLocked(p, w.group, w)
		p.recompute = true
		return nil
	})
}

// Deactivate clears the active state of a window, leaving its group with no
// active window.
func (c *Coordinator) Deactivate(ctx context.Context, wid schema.WindowID) error {
	return c.transition(ctx, wid, func(p *plan, w *window) error {
		if w.state != schema.StateActive {
			return nil
		}
		c.switchActiveLocked(p, w.group, nil)
		return nil
	})
}

// Close asks the window's veto predicate, then moves it through Closing to
// Destroyed. The owner receives Close as its cleanup hook before Destroy.
func (c *Coordinator) Close(ctx context.Context, wid schema.WindowID) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	c.mu.Lock()
	w, err := c.liveLocked(wid)
	if err == nil && w.state == schema.StateClosing {
		err = fmt.Errorf("close %s in state %s: %w", wid, w.state, schema.ErrInvalidTransition)
	}
	veto := c.vetoes[wid]
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if veto != nil {
		if reason := veto(ctx, wid); reason != nil {
			var p plan
			c.mu.Lock()
			if w, err := c.liveLocked(wid); err == nil {
				c.event(&p, schema.WindowEventCloseVetoed, w)
			}
			c.mu.Unlock()
			logx.WithWindow(c.log, wid).Info("coordinator close vetoed", "reason", reason)
			return errors.Join(fmt.Errorf("close %s: %w: %v", wid, schema.ErrCloseVetoed, reason), c.execute(ctx, &p))
		}
	}

	var p plan
	c.mu.Lock()
	w, err = c.liveLocked(wid)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	owner := w.owner
	c.handOffLocked(&p, w)
	c.unstackLocked(w.id)
	w.state = schema.StateClosing
	c.event(&p, schema.WindowEventClosing, w)
	p.recompute = true
	c.finishLocked(&p)
	c.mu.Unlock()
	execErr := c.execute(ctx, &p)

	if err := c.callOrPost(ctx, owner, &schema.Close{Header: header(), Window: wid}); err != nil {
		logx.WithWindow(c.log, wid).Warn("coordinator close cleanup incomplete", "owner", owner, "err", err)
	}

	p = plan{}
	c.mu.Lock()
	w, err = c.liveLocked(wid)
	if err != nil {
		c.mu.Unlock()
		return errors.Join(execErr, err)
	}
	c.destroyLocked(&p, w)
	c.finishLocked(&p)
	c.mu.Unlock()
	return errors.Join(execErr, c.execute(ctx, &p))
}

// Destroy tears a window down, bypassing any veto. The identity stays
// reserved until the owner retires it.
func (c *Coordinator) Destroy(ctx context.Context, wid schema.WindowID) error {
	return c.transition(ctx, wid, func(p *plan, w *window) error {
		c.destroyLocked(p, w)
		return nil
	})
}

func (c *Coordinator) destroyLocked(p *plan, w *window) {
	c.handOffLocked(p, w)
	c.unstackLocked(w.id)
	w.state = schema.StateDestroyed
	w.clip = nil
	delete(c.vetoes, w.id)
	c.event(p, schema.WindowEventDestroyed, w)
	p.send(w.owner, &schema.Destroy{Header: header(), Window: w.id})
	p.recompute = true
}

// Move places the window's top-left corner at x, y.
func (c *Coordinator) Move(ctx context.Context, wid schema.WindowID, x, y int) error {
	return c.geometry(ctx, wid, func(w *window) schema.Event {
		w.rect = w.rect.Add(schema.Point{X: x, Y: y}.Sub(w.rect.Min))
		w.maximized = false
		return &schema.Move{Header: header(), Window: w.id, X: x, Y: y}
	})
}

// Resize replaces the window's rectangle.
func (c *Coordinator) Resize(ctx context.Context, wid schema.WindowID, rect schema.Rect) error {
	rect, err := schema.NormalizeRect(rect)
	if err != nil {
		return fmt.Errorf("resize %s: %w", wid, err)
	}
	return c.geometry(ctx, wid, func(w *window) schema.Event {
		w.rect = rect
		w.maximized = false
		return &schema.Resize{Header: header(), Window: w.id, Rect: rect}
	})
}

// Maximize grows the window to the screen, remembering its previous rect.
func (c *Coordinator) Maximize(ctx context.Context, wid schema.WindowID) error {
	return c.geometry(ctx, wid, func(w *window) schema.Event {
		if !w.maximized {
			w.restore = w.rect
			w.rect = c.cfg.Screen
			w.maximized = true
		}
		w.minimized = false
		return &schema.Maximize{Header: header(), Window: w.id}
	})
}

// Restore undoes Maximize.
func (c *Coordinator) Restore(ctx context.Context, wid schema.WindowID) error {
	return c.geometry(ctx, wid, func(w *window) schema.Event {
		if w.maximized {
			w.rect = w.restore
			w.maximized = false
		}
		return &schema.Resize{Header: header(), Window: w.id, Rect: w.rect}
	})
}

// Minimize takes the window out of the clip computation. An active window
// hands its active state to the topmost eligible window of its group and
// stays Shown. Show or Activate restores it.
func (c *Coordinator) Minimize(ctx context.Context, wid schema.WindowID) error {
	return c.geometry(ctx, wid, func(w *window) schema.Event {
		w.minimized = true
		return &schema.Minimize{Header: header(), Window: w.id}
	})
}

func (c *Coordinator) geometry(ctx context.Context, wid schema.WindowID, apply func(*window) schema.Event) error {
	return c.transition(ctx, wid, func(p *plan, w *window) error {
		if w.state == schema.StateClosing {
			return fmt.Errorf("geometry %s in state %s: %w", w.id, w.state, schema.ErrInvalidTransition)
		}
		ev := apply(w)
		if w.minimized {
			// A minimized window cannot keep keyboard input.
			c.handOffLocked(p, w)
		}
		p.send(w.owner, ev)
		if ev.Kind() == schema.KindWinMax {
			// The owner learns the screen-sized geometry from the Resize.
			p.send(w.owner, &schema.Resize{Header: header(), Window: w.id, Rect: w.rect})
		}
		c.event(p, schema.WindowEventGeometry, w)
		p.recompute = true
		return nil
	})
}

// Retire releases a destroyed window's identity so its slot can be reused
// under a new generation. The owner calls it after tearing down its state.
func (c *Coordinator) Retire(wid schema.WindowID) error {
	var p plan
	c.mu.Lock()
	w, err := c.table.lookup(wid)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if w.live() {
		c.mu.Unlock()
		return fmt.Errorf("retire %s in state %s: %w", wid, w.state, schema.ErrInvalidTransition)
	}
	c.event(&p, schema.WindowEventRetired, w)
	c.table.retire(wid)
	c.mu.Unlock()
	logx.WithWindow(c.log, wid).Debug("coordinator window retired")
	c.emit(p.events)
	return nil
}

// SetCloseVeto registers the predicate consulted by Close; nil removes it.
func (c *Coordinator) SetCloseVeto(wid schema.WindowID, veto CloseVeto) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.liveLocked(wid); err != nil {
		return err
	}
	if veto == nil {
		delete(c.vetoes, wid)
		return nil
	}
	c.vetoes[wid] = veto
	return nil
}

// Invalidate reports a damaged rectangle of a window. The visible part is
// sent to the owner as Update messages followed by an incremental Paint.
func (c *Coordinator) Invalidate(ctx context.Context, wid schema.WindowID, rect schema.Rect) error {
	c.mu.Lock()
	w, err := c.liveLocked(wid)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	var p plan
	if w.delivered {
		if damaged := IntersectRegion(w.clip, rect.Canon()); len(damaged) > 0 {
			for _, r := range damaged {
				p.send(w.owner, &schema.Update{Header: header(), Window: w.id, Rect: r})
			}
			p.send(w.owner, &schema.Paint{Header: header(), Window: w.id})
		}
	}
	c.mu.Unlock()
	return c.execute(ctx, &p)
}

// Repaint asks the owner for a full repaint when the window holds a
// non-empty clip.
func (c *Coordinator) Repaint(ctx context.Context, wid schema.WindowID) error {
	c.mu.Lock()
	w, err := c.liveLocked(wid)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	var p plan
	if w.delivered && len(w.clip) > 0 {
		p.send(w.owner, &schema.Paint{Header: header(), Window: w.id, Full: true})
	}
	c.mu.Unlock()
	return c.execute(ctx, &p)
}

// Forward posts a window-addressed message to the window's owner.
func (c *Coordinator) Forward(ctx context.Context, ev schema.Targeted) error {
	c.mu.Lock()
	w, err := c.liveLocked(ev.Target())
	var owner schema.ThreadID
	if err == nil {
		owner = w.owner
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.poster.Post(owner, ev)
}

// Shutdown tears the coordinator down. Later transitions fail with
// schema.ErrShutdown.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	c.closed = true
	c.table.reset()
	c.stack = nil
	c.active = make(map[schema.GroupID]schema.WindowID)
	c.vetoes = make(map[schema.WindowID]CloseVeto)
	c.mu.Unlock()
	c.log.Info("coordinator shutdown")
}

func (c *Coordinator) transition(ctx context.Context, wid schema.WindowID, apply func(*plan, *window) error) error {
	c.ops.Lock()
	defer c.ops.Unlock()

	var p plan
	c.mu.Lock()
	w, err := c.liveLocked(wid)
	if err == nil {
		err = apply(&p, w)
	}
	if err == nil {
		c.finishLocked(&p)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.execute(ctx, &p)
}

func (c *Coordinator) liveLocked(wid schema.WindowID) (*window, error) {
	if c.closed {
		return nil, schema.ErrShutdown
	}
	return c.table.live(wid)
}

func (c *Coordinator) finishLocked(p *plan) {
	if p.recompute {
		p.delivered += c.recomputeLocked(p)
		p.recompute = false
		p.recomputed = true
	}
}

// switchActiveLocked makes to the active window of group, deactivating the
// previous one first. A nil to leaves the group with no active window. When
// the two windows have different owners the Deactivate is a handshake.
func (c *Coordinator) switchActiveLocked(p *plan, group schema.GroupID, to *window) {
	if prevID, ok := c.active[group]; ok {
		prev, err := c.table.live(prevID)
		switch {
		case err != nil:
			delete(c.active, group)
		case prev != to:
			prev.state = schema.StateShown
			delete(c.active, group)
			p.sends = append(p.sends, outbound{
				dst:       prev.owner,
				ev:        &schema.Deactivate{Header: header(), Window: prev.id},
				handshake: to != nil && to.owner != prev.owner,
			})
			c.event(p, schema.WindowEventDeactivated, prev)
		}
	}
	if to == nil || to.state == schema.StateActive {
		return
	}
	to.state = schema.StateActive
	c.active[group] = to.id
	p.send(to.owner, &schema.Activate{Header: header(), Window: to.id})
	c.event(p, schema.WindowEventActivated, to)
}

// handOffLocked passes w's active state to the topmost eligible window of
// its group.
func (c *Coordinator) handOffLocked(p *plan, w *window) {
	if w.state != schema.StateActive {
		return
	}
	c.switchActiveLocked(p, w.group, c.nextActiveLocked(w.group, w.id))
}

func (c *Coordinator) nextActiveLocked(group schema.GroupID, exclude schema.WindowID) *window {
	for _, id := range c.stack {
		if id == exclude {
			continue
		}
		w, err := c.table.live(id)
		if err != nil || w.group != group || w.minimized || !w.state.Visible() {
			continue
		}
		return w
	}
	return nil
}

func (c *Coordinator) raiseLocked(wid schema.WindowID) {
	c.unstackLocked(wid)
	c.stack = append([]schema.WindowID{wid}, c.stack...)
}

func (c *Coordinator) unstackLocked(wid schema.WindowID) {
	for i, id := range c.stack {
		if id == wid {
			c.stack = append(c.stack[:i], c.stack[i+1:]...)
			return
		}
	}
}

// recomputeLocked recomputes every clip from the stacking order and queues
// a Clip for each window whose sequence changed, followed by Update and
// Paint messages for its newly exposed area.
func (c *Coordinator) recomputeLocked(p *plan) int {
	layers := make([]Layer, 0, len(c.stack))
	stacked := make([]*window, 0, len(c.stack))
	for _, id := range c.stack {
		w, err := c.table.live(id)
		if err != nil {
			continue
		}
		layers = append(layers, Layer{ID: id, Rect: w.rect, Visible: !w.minimized})
		stacked = append(stacked, w)
	}
	clips := ComputeClips(c.cfg.Screen, layers)
	inStack := make(map[schema.WindowID]struct{}, len(stacked))
	delivered := 0
	for i, w := range stacked {
		inStack[w.id] = struct{}{}
		if c.deliverLocked(p, w, clips[i]) {
			delivered++
		}
	}
	c.table.each(func(w *window) {
		if _, ok := inStack[w.id]; ok || !w.live() || !w.delivered {
			return
		}
		if c.deliverLocked(p, w, []schema.Rect{}) {
			delivered++
		}
	})
	return delivered
}

func (c *Coordinator) deliverLocked(p *plan, w *window, region []schema.Rect) bool {
	if w.delivered && sameRegion(w.clip, region) {
		return false
	}
	exposed := SubtractRegion(region, w.clip)
	c.serial++
	p.send(w.owner, schema.NewClip(schema.ServerThread, w.id, c.serial, region...))
	if len(exposed) > 0 {
		for _, r := range exposed {
			p.send(w.owner, &schema.Update{Header: header(), Window: w.id, Rect: r})
		}
		p.send(w.owner, &schema.Paint{Header: header(), Window: w.id, Full: Area(exposed) == Area(region)})
	}
	w.clip = region
	w.delivered = true
	return true
}

// execute emits queued events and posts queued messages in order. Failures
// of critical kinds are returned; others are dropped. Update and Paint for a
// window are skipped when its Clip could not be posted.
func (c *Coordinator) execute(ctx context.Context, p *plan) error {
	c.emit(p.events)
	if p.recomputed {
		c.rec.ClipRecompute(ctx, p.delivered)
	}
	var errs []error
	var clipFailed map[schema.WindowID]struct{}
	for _, out := range p.sends {
		kind := out.ev.Kind()
		wid, _ := schema.TargetOf(out.ev)
		if kind == schema.KindUpdate || kind == schema.KindPaint {
			if _, skip := clipFailed[wid]; skip {
				continue
			}
		}
		log := logx.WithEvent(logx.WithThread(ctx, out.dst), out.ev)
		if out.handshake {
			if err := c.callOrPost(ctx, out.dst, out.ev); err != nil {
				if errors.Is(err, schema.ErrNoResponse) || errors.Is(err, schema.ErrRefused) {
					log.Warn("coordinator handshake incomplete", "err", err)
					continue
				}
				errs = append(errs, err)
			}
			continue
		}
		err := c.poster.Post(out.dst, out.ev)
		if err == nil {
			continue
		}
		if kind == schema.KindWinDestroy && errors.Is(err, schema.ErrUnknownDestination) {
			// Nobody holds state for this window any more.
			if rerr := c.Retire(wid); rerr != nil {
				log.Debug("coordinator orphan retire failed", "err", rerr)
			}
			continue
		}
		if kind == schema.KindClip {
			if clipFailed == nil {
				clipFailed = make(map[schema.WindowID]struct{})
			}
			clipFailed[wid] = struct{}{}
			c.forgetDelivery(wid)
		}
		if kind.Critical() {
			log.Warn("coordinator post failed", "err", err)
			errs = append(errs, err)
			continue
		}
		log.Trace("coordinator notification dropped", "err", err)
	}
	return errors.Join(errs...)
}

// forgetDelivery makes the next recompute resend the window's clip.
func (c *Coordinator) forgetDelivery(wid schema.WindowID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, err := c.table.live(wid); err == nil {
		w.delivered = false
		w.clip = nil
	}
}

func (c *Coordinator) emit(events []schema.WindowEvent) {
	if c.sink == nil {
		return
	}
	for _, ev := range events {
		c.sink.OnWindowEvent(ev)
	}
}

// reportMisrouted logs, counts, and answers a message naming a window that
// is not live.
func (c *Coordinator) reportMisrouted(ctx context.Context, ev schema.Event, cause error) {
	wid, _ := schema.TargetOf(ev)
	c.rec.Misrouted(ctx, ev.Kind())
	if c.throttle.Allow(wid) {
		logx.WithEvent(c.log, ev).Warn("coordinator misrouted message dropped", "err", cause)
	}
	if err := rendezvous.RespondErr(ev, wid, cause); err != nil {
		logx.WithEvent(c.log, ev).Debug("coordinator misrouted reply failed", "err", err)
	}
}

// Misrouted reports whether err means a message named a window that is not live.
func Misrouted(err error) bool {
	return errors.Is(err, schema.ErrUnknownWindow) || errors.Is(err, schema.ErrWindowDestroyed)
}

// State returns the lifecycle state of wid. Destroyed windows report
// StateDestroyed until retired.
func (c *Coordinator) State(wid schema.WindowID) (schema.WindowState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", schema.ErrShutdown
	}
	w, err := c.table.lookup(wid)
	if err != nil {
		return "", err
	}
	return w.state, nil
}

// Window returns a snapshot of wid.
func (c *Coordinator) Window(wid schema.WindowID) (schema.WindowSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return schema.WindowSnapshot{}, schema.ErrShutdown
	}
	w, err := c.table.lookup(wid)
	if err != nil {
		return schema.WindowSnapshot{}, err
	}
	return c.snapshotLocked(w), nil
}

// Active returns the active window of a group.
func (c *Coordinator) Active(group schema.GroupID) (schema.WindowID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wid, ok := c.active[group]
	return wid, ok
}

// WindowAt returns the frontmost visible window containing p.
func (c *Coordinator) WindowAt(p schema.Point) (schema.WindowSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.stack {
		w, err := c.table.live(id)
		if err != nil || w.minimized {
			continue
		}
		if p.In(w.rect.Intersect(c.cfg.Screen)) {
			return c.snapshotLocked(w), true
		}
	}
	return schema.WindowSnapshot{}, false
}

// Snapshot lists every window: stacked windows front to back, then the rest
// in slot order.
func (c *Coordinator) Snapshot() []schema.WindowSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schema.WindowSnapshot, 0, len(c.stack))
	seen := make(map[schema.WindowID]struct{}, len(c.stack))
	for _, id := range c.stack {
		if w, err := c.table.lookup(id); err == nil {
			out = append(out, c.snapshotLocked(w))
			seen[id] = struct{}{}
		}
	}
	c.table.each(func(w *window) {
		if _, ok := seen[w.id]; !ok {
			out = append(out, c.snapshotLocked(w))
		}
	})
	return out
}

// Clip returns the sequence last delivered to wid's owner.
func (c *Coordinator) Clip(wid schema.WindowID) ([]schema.Rect, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, err := c.liveLocked(wid)
	if err != nil {
		return nil, err
	}
	return append([]schema.Rect{}, w.clip...), nil
}

func (c *Coordinator) snapshotLocked(w *window) schema.WindowSnapshot {
	stack := -1
	for i, id := range c.stack {
		if id == w.id {
			stack = i
			break
		}
	}
	return schema.WindowSnapshot{
		ID:        w.id,
		Owner:     w.owner,
		Group:     w.group,
		Title:     w.title,
		State:     w.state,
		Rect:      w.rect,
		Maximized: w.maximized,
		Minimized: w.minimized,
		Stack:     stack,
	}
}
