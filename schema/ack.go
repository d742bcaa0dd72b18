package schema

import (
	"context"
	"sync/atomic"
	"time"
)

// Reply is the answer posted to an acknowledgment handle.
type Reply struct {
	Status Status
	// Window is set by replies that allocate or name a window.
	Window WindowID
	Reason string
}

const (
	ackOpen uint32 = iota
	ackReplied
	ackAbandoned
)

var ackSeq atomic.Uint64

// Ack is a single-use acknowledgment handle. Exactly one Reply is accepted;
// a reply after the waiter gave up is discarded.
type Ack struct {
	id        uint64
	state     atomic.Uint32
	replies   chan Reply
	abandoned chan struct{}
}

// NewAck returns a fresh handle.
func NewAck() *Ack {
	return &Ack{
		id:        ackSeq.Add(1),
		replies:   make(chan Reply, 1),
		abandoned: make(chan struct{}),
	}
}

// ID returns the handle's diagnostic id.
func (a *Ack) ID() uint64 {
	if a == nil {
		return 0
	}
	return a.id
}

// Reply posts the answer. A second reply returns ErrDuplicateReply; a reply to
// an abandoned handle is dropped and returns nil.
func (a *Ack) Reply(r Reply) error {
	if a == nil {
		return ErrNoAck
	}
	if a.state.CompareAndSwap(ackOpen, ackReplied) {
		a.replies <- r
		return nil
	}
	if a.state.Load() == ackAbandoned {
		return nil
	}
	return ErrDuplicateReply
}

// Abandon releases the handle without a reply. A pending Wait resolves with
// ErrNoResponse. It reports whether the handle was still open.
func (a *Ack) Abandon() bool {
	if a == nil {
		return false
	}
	if a.state.CompareAndSwap(ackOpen, ackAbandoned) {
		close(a.abandoned)
		return true
	}
	return false
}

// Wait blocks until a reply arrives, the timeout elapses, or ctx ends. On
// timeout or abandonment it returns ErrNoResponse and the handle no longer
// accepts replies. A non-positive timeout waits on ctx alone.
func (a *Ack) Wait(ctx context.Context, timeout time.Duration) (Reply, error) {
	if a == nil {
		return Reply{}, ErrNoAck
	}
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case r := <-a.replies:
		return r, nil
	case <-a.abandoned:
		return Reply{}, ErrNoResponse
	case <-expired:
		return a.giveUp(ErrNoResponse)
	case <-ctx.Done():
		return a.giveUp(ctx.Err())
	}
}

func (a *Ack) giveUp(cause error) (Reply, error) {
	if a.Abandon() {
		return Reply{}, cause
	}
	if a.state.Load() == ackReplied {
		// The reply raced the deadline; it is already buffered.
		return <-a.replies, nil
	}
	return Reply{}, cause
}
