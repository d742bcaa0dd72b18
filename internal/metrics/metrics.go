package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"pkt.systems/rtgui/schema"
)

// Scope is the instrumentation scope name.
const Scope = "pkt.systems/rtgui"

// Drop reasons reported on the dropped counter.
const (
	ReasonNoCapacity         = "no_capacity"
	ReasonUnknownDestination = "unknown_destination"
	ReasonClosed             = "closed"
)

// Recorder holds the core counters. A nil Recorder records nothing.
type Recorder struct {
	posted     metric.Int64Counter
	dropped    metric.Int64Counter
	misrouted  metric.Int64Counter
	timeouts   metric.Int64Counter
	recomputes metric.Int64Counter
}

// New builds a Recorder on the given meter.
func New(meter metric.Meter) (*Recorder, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(Scope)
	}
	var (
		r   Recorder
		err error
	)
	if r.posted, err = meter.Int64Counter("rtgui.messages.posted",
		metric.WithDescription("Messages accepted by a mailbox."),
		metric.WithUnit("{message}")); err != nil {
		return nil, err
	}
	if r.dropped, err = meter.Int64Counter("rtgui.messages.dropped",
		metric.WithDescription("Messages that could not be delivered."),
		metric.WithUnit("{message}")); err != nil {
		return nil, err
	}
	if r.misrouted, err = meter.Int64Counter("rtgui.messages.misrouted",
		metric.WithDescription("Messages naming an unknown or destroyed window."),
		metric.WithUnit("{message}")); err != nil {
		return nil, err
	}
	if r.timeouts, err = meter.Int64Counter("rtgui.calls.timeout",
		metric.WithDescription("Synchronous calls that ended without a reply."),
		metric.WithUnit("{call}")); err != nil {
		return nil, err
	}
	if r.recomputes, err = meter.Int64Counter("rtgui.clip.recomputes",
		metric.WithDescription("Clip recomputations over the stacking order."),
		metric.WithUnit("{recompute}")); err != nil {
		return nil, err
	}
	return &r, nil
}

// Global builds a Recorder on the process-wide meter provider.
func Global() *Recorder {
	r, err := New(otel.Meter(Scope))
	if err != nil {
		r, _ = New(nil)
	}
	return r
}

// Posted counts a delivered message.
func (r *Recorder) Posted(ctx context.Context, kind schema.Kind) {
	if r == nil {
		return
	}
	r.posted.Add(ctx, 1, metric.WithAttributes(kindAttr(kind)))
}

// Dropped counts an undeliverable message.
func (r *Recorder) Dropped(ctx context.Context, kind schema.Kind, reason string) {
	if r == nil {
		return
	}
	r.dropped.Add(ctx, 1, metric.WithAttributes(kindAttr(kind), attribute.String("reason", reason)))
}

// Misrouted counts a message naming a window that is not live.
func (r *Recorder) Misrouted(ctx context.Context, kind schema.Kind) {
	if r == nil {
		return
	}
	r.misrouted.Add(ctx, 1, metric.WithAttributes(kindAttr(kind)))
}

// CallTimeout counts a call that resolved with no response.
func (r *Recorder) CallTimeout(ctx context.Context, kind schema.Kind) {
	if r == nil {
		return
	}
	r.timeouts.Add(ctx, 1, metric.WithAttributes(kindAttr(kind)))
}

// ClipRecompute counts one recomputation and the number of clips it sent.
func (r *Recorder) ClipRecompute(ctx context.Context, delivered int) {
	if r == nil {
		return
	}
	r.recomputes.Add(ctx, 1, metric.WithAttributes(attribute.Int("delivered", delivered)))
}

func kindAttr(kind schema.Kind) attribute.KeyValue {
	return attribute.String("kind", kind.String())
}
