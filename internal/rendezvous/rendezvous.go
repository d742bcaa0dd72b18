package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/rtgui/internal/metrics"
	"pkt.systems/rtgui/schema"
)

// Poster delivers messages to thread mailboxes.
type Poster interface {
	Post(dst schema.ThreadID, ev schema.Event) error
}

// Options tunes a Caller.
type Options struct {
	// Timeout bounds each call; zero selects schema.DefaultCallTimeout.
	Timeout time.Duration
	Logger  pslog.Logger
	Metrics *metrics.Recorder
}

// Caller performs synchronous post-and-wait calls.
type Caller struct {
	poster  Poster
	timeout time.Duration
	log     pslog.Logger
	rec     *metrics.Recorder
}

// New constructs a Caller.
func New(poster Poster, opts Options) *Caller {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = schema.DefaultCallTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Caller{poster: poster, timeout: timeout, log: logger, rec: opts.Metrics}
}

// Timeout returns the default per-call bound.
func (c *Caller) Timeout() time.Duration {
	return c.timeout
}

// Call posts req with a fresh acknowledgment handle and waits for the reply.
func (c *Caller) Call(ctx context.Context, dst schema.ThreadID, req schema.Event) (schema.Reply, error) {
	return c.CallTimeout(ctx, dst, req, c.timeout)
}

// CallTimeout is Call with an explicit bound. A reply with a non-OK status
// surfaces as *schema.RefusedError; a missing reply is schema.ErrNoResponse.
func (c *Caller) CallTimeout(ctx context.Context, dst schema.ThreadID, req schema.Event, timeout time.Duration) (schema.Reply, error) {
	if req == nil {
		return schema.Reply{}, errors.New("rendezvous: nil request")
	}
	kind := req.Kind()
	if !kind.Acknowledgeable() {
		return schema.Reply{}, fmt.Errorf("call %s: %w", kind, schema.ErrNotAcknowledgeable)
	}
	ack := schema.NewAck()
	if err := req.Head().AttachAck(ack); err != nil {
		return schema.Reply{}, fmt.Errorf("call %s: %w", kind, err)
	}
	if err := c.poster.Post(dst, req); err != nil {
		ack.Abandon()
		if errors.Is(err, schema.ErrUnknownDestination) {
			c.rec.CallTimeout(ctx, kind)
			return schema.Reply{}, fmt.Errorf("call %s to %q: %w: %w", kind, dst, schema.ErrNoResponse, schema.ErrUnknownDestination)
		}
		return schema.Reply{}, fmt.Errorf("call %s to %q: %w", kind, dst, err)
	}
	reply, err := ack.Wait(ctx, timeout)
	if err != nil {
		if errors.Is(err, schema.ErrNoResponse) {
			c.rec.CallTimeout(ctx, kind)
			c.log.With("thread", dst).Debug("rendezvous no response", "kind", kind, "ack", ack.ID(), "timeout", timeout)
		}
		return schema.Reply{}, fmt.Errorf("call %s to %q: %w", kind, dst, err)
	}
	if reply.Status != schema.StatusOK {
		return reply, &schema.RefusedError{Status: reply.Status, Reason: reply.Reason}
	}
	return reply, nil
}

// Respond answers ev's acknowledgment handle. Fire-and-forget messages are
// ignored. A second answer to the same handle returns schema.ErrDuplicateReply.
func Respond(ev schema.Event, reply schema.Reply) error {
	ack := ev.Head().Ack()
	if ack == nil {
		return nil
	}
	return ack.Reply(reply)
}

// RespondErr answers ev with the outcome of err.
func RespondErr(ev schema.Event, wid schema.WindowID, err error) error {
	if err == nil {
		return Respond(ev, schema.Reply{Status: schema.StatusOK, Window: wid})
	}
	status := schema.StatusError
	if errors.Is(err, schema.ErrNoCapacity) {
		status = schema.StatusNoResource
	}
	return Respond(ev, schema.Reply{Status: status, Window: wid, Reason: err.Error()})
}
