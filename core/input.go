package core

import (
	"context"
	"fmt"

	"pkt.systems/pslog"
	"pkt.systems/rtgui/internal/logx"
	"pkt.systems/rtgui/internal/metrics"
	"pkt.systems/rtgui/schema"
)

// InputOptions tunes an InputRouter.
type InputOptions struct {
	// ClickToActivate posts Activate for a press on an inactive window.
	ClickToActivate bool
	Logger          pslog.Logger
	Metrics         *metrics.Recorder
}

// InputRouter turns driver input into window-addressed messages. Pointer
// events go to the owner of the window under the pointer; keyboard events go
// to the owner of the active window of the default group.
type InputRouter struct {
	coord  *Coordinator
	poster Poster
	click  bool
	log    pslog.Logger
	rec    *metrics.Recorder
}

// NewInputRouter constructs a router.
func NewInputRouter(coord *Coordinator, poster Poster, opts InputOptions) *InputRouter {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &InputRouter{
		coord:  coord,
		poster: poster,
		click:  opts.ClickToActivate,
		log:    logger.With("thread", schema.InputThread),
		rec:    opts.Metrics,
	}
}

// Motion routes pointer motion at x, y.
func (r *InputRouter) Motion(ctx context.Context, x, y int, buttons uint16) error {
	snap, ok := r.coord.WindowAt(schema.Point{X: x, Y: y})
	if !ok {
		return r.drop(ctx, schema.KindMouseMotion, "no window under pointer")
	}
	return r.deliver(ctx, snap.Owner, &schema.MouseMotion{
		Header: schema.Header{Origin: schema.InputThread},
		Window: snap.ID,
		X:      x,
		Y:      y,
		Button: buttons,
	})
}

// Button routes a button edge at x, y.
func (r *InputRouter) Button(ctx context.Context, x, y int, button uint16) error {
	snap, ok := r.coord.WindowAt(schema.Point{X: x, Y: y})
	if !ok {
		return r.drop(ctx, schema.KindMouseButton, "no window under pointer")
	}
	ev := &schema.MouseButton{
		Header: schema.Header{Origin: schema.InputThread},
		Window: snap.ID,
		X:      x,
		Y:      y,
		Button: button,
	}
	if r.click && ev.Down() && snap.State == schema.StateShown {
		r.activate(ctx, snap.ID)
	}
	return r.deliver(ctx, snap.Owner, ev)
}

// Key routes a key edge to the active window.
func (r *InputRouter) Key(ctx context.Context, edge schema.KeyEdge, key, mod uint16, unicode rune) error {
	wid, ok := r.coord.Active(schema.DefaultGroup)
	if !ok {
		return r.drop(ctx, schema.KindKeyboard, "no active window")
	}
	snap, err := r.coord.Window(wid)
	if err != nil {
		return r.drop(ctx, schema.KindKeyboard, err.Error())
	}
	return r.deliver(ctx, snap.Owner, &schema.Keyboard{
		Header:  schema.Header{Origin: schema.InputThread},
		Window:  wid,
		Edge:    edge,
		Key:     key,
		Mod:     mod,
		Unicode: unicode,
	})
}

func (r *InputRouter) activate(ctx context.Context, wid schema.WindowID) {
	ev := &schema.Activate{Header: schema.Header{Origin: schema.InputThread}, Window: wid}
	if err := r.poster.Post(schema.ServerThread, ev); err != nil {
		logx.WithWindow(r.log, wid).Trace("input activate dropped", "err", err)
	}
}

func (r *InputRouter) deliver(ctx context.Context, owner schema.ThreadID, ev schema.Event) error {
	if err := r.poster.Post(owner, ev); err != nil {
		logx.WithEvent(r.log, ev).Trace("input dropped", "err", err)
		return err
	}
	return nil
}

func (r *InputRouter) drop(ctx context.Context, kind schema.Kind, reason string) error {
	r.rec.Dropped(ctx, kind, metrics.ReasonUnknownDestination)
	r.log.Trace("input dropped", "kind", kind, "reason", reason)
	return fmt.Errorf("input %s: %s: %w", kind, reason, schema.ErrUnknownDestination)
}
