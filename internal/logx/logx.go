package logx

import (
	"context"
	"time"

	catrate "github.com/joeycumines/go-catrate"
	"pkt.systems/pslog"
	"pkt.systems/rtgui/schema"
)

type contextKey int

const (
	threadKey contextKey = iota
	windowKey
)

// WithThread annotates the logger with the thread id if present.
func WithThread(ctx context.Context, id schema.ThreadID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if id != "" {
		if current, ok := ctx.Value(threadKey).(schema.ThreadID); ok && current == id {
			return log
		}
		log = log.With("thread", id)
	}
	return log
}

// WithThreadWindow annotates the logger with thread and window identifiers.
func WithThreadWindow(ctx context.Context, id schema.ThreadID, wid schema.WindowID) pslog.Logger {
	log := WithThread(ctx, id)
	if !wid.IsZero() {
		if current, ok := ctx.Value(windowKey).(schema.WindowID); ok && current == wid {
			return log
		}
		log = log.With("wid", wid.String())
	}
	return log
}

// WithWindow annotates the logger with a window id when set.
func WithWindow(log pslog.Logger, wid schema.WindowID) pslog.Logger {
	if !wid.IsZero() {
		log = log.With("wid", wid.String())
	}
	return log
}

// WithKind annotates the logger with the message kind.
func WithKind(log pslog.Logger, kind schema.Kind) pslog.Logger {
	return log.With("kind", kind.String())
}

// WithEvent annotates the logger with the kind, origin, and target of ev.
func WithEvent(log pslog.Logger, ev schema.Event) pslog.Logger {
	if ev == nil {
		return log
	}
	log = WithKind(log, ev.Kind())
	if origin := ev.Head().Origin; origin != "" {
		log = log.With("origin", origin)
	}
	if wid, ok := schema.TargetOf(ev); ok {
		log = WithWindow(log, wid)
	}
	return log
}

// ContextWithThread stores the thread marker on the context for log de-duplication.
func ContextWithThread(ctx context.Context, id schema.ThreadID) context.Context {
	if ctx == nil || id == "" {
		return ctx
	}
	return context.WithValue(ctx, threadKey, id)
}

// ContextWithWindow stores the window marker on the context for log de-duplication.
func ContextWithWindow(ctx context.Context, wid schema.WindowID) context.Context {
	if ctx == nil || wid.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, windowKey, wid)
}

// ContextWithThreadLogger attaches the logger and thread marker to the context.
func ContextWithThreadLogger(ctx context.Context, log pslog.Logger, id schema.ThreadID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithThread(ctx, id)
}

// Throttle limits repeated warnings per category over a one-second and a
// one-minute sliding window.
type Throttle struct {
	limiter *catrate.Limiter
}

// NewThrottle builds a throttle. Non-positive limits disable throttling.
func NewThrottle(perSecond, perMinute int) *Throttle {
	if perSecond <= 0 || perMinute <= 0 {
		return &Throttle{}
	}
	if perSecond > perMinute {
		perSecond = perMinute
	}
	return &Throttle{limiter: catrate.NewLimiter(map[time.Duration]int{
		time.Second: perSecond,
		time.Minute: perMinute,
	})}
}

// Allow reports whether a warning in the category may be emitted now.
func (t *Throttle) Allow(category any) bool {
	if t == nil || t.limiter == nil {
		return true
	}
	_, ok := t.limiter.Allow(category)
	return ok
}
