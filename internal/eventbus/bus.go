package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/rtgui/internal/metrics"
	"pkt.systems/rtgui/schema"
)

// DefaultDepth is the mailbox capacity used when none is configured.
const DefaultDepth = schema.DefaultChannelDepth

// Config tunes a Bus.
type Config struct {
	// Depth is the capacity of every mailbox.
	Depth   int
	Metrics *metrics.Recorder
}

// Bus routes messages to one bounded mailbox per registered thread.
type Bus struct {
	mu    sync.RWMutex
	boxes map[schema.ThreadID]*Mailbox
	log   pslog.Logger
	rec   *metrics.Recorder
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger, cfg Config) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	depth := cfg.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Bus{
		boxes: make(map[schema.ThreadID]*Mailbox),
		log:   logger,
		rec:   cfg.Metrics,
		depth: depth,
	}
}

// Register creates the inbound mailbox for a thread.
func (b *Bus) Register(id schema.ThreadID) (*Mailbox, error) {
	if err := schema.ValidateThreadID(id); err != nil {
		return nil, fmt.Errorf("register %q: %w", id, err)
	}
	mb := &Mailbox{
		id:   id,
		bus:  b,
		ch:   make(chan schema.Event, b.depth),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	if _, exists := b.boxes[id]; exists {
		b.mu.Unlock()
		return nil, fmt.Errorf("register %q: %w", id, schema.ErrDuplicateThread)
	}
	b.boxes[id] = mb
	count := len(b.boxes)
	b.mu.Unlock()
	b.log.With("thread", id).Debug("eventbus register", "threads", count, "depth", b.depth)
	return mb, nil
}

// Registered reports whether a mailbox exists for the thread.
func (b *Bus) Registered(id schema.ThreadID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.boxes[id]
	return ok
}

// Threads lists registered threads in sorted order.
func (b *Bus) Threads() []schema.ThreadID {
	b.mu.RLock()
	out := make([]schema.ThreadID, 0, len(b.boxes))
	for id := range b.boxes {
		out = append(out, id)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Post enqueues ev on the destination mailbox without blocking. Messages from
// one origin to one destination are received in posting order.
func (b *Bus) Post(dst schema.ThreadID, ev schema.Event) error {
	if ev == nil {
		return errors.New("eventbus: nil event")
	}
	b.mu.RLock()
	mb := b.boxes[dst]
	if mb == nil {
		b.mu.RUnlock()
		b.rec.Dropped(context.Background(), ev.Kind(), metrics.ReasonUnknownDestination)
		return fmt.Errorf("post %s to %q: %w", ev.Kind(), dst, schema.ErrUnknownDestination)
	}
	// The read lock is held across the send so Close cannot drain between the
	// lookup and the enqueue.
	select {
	case mb.ch <- ev:
		b.mu.RUnlock()
		b.rec.Posted(context.Background(), ev.Kind())
		return nil
	default:
		b.mu.RUnlock()
		b.rec.Dropped(context.Background(), ev.Kind(), metrics.ReasonNoCapacity)
		return fmt.Errorf("post %s to %q: %w", ev.Kind(), dst, schema.ErrNoCapacity)
	}
}

// Notify posts a non-critical message and drops it on failure.
func (b *Bus) Notify(dst schema.ThreadID, ev schema.Event) {
	if err := b.Post(dst, ev); err != nil {
		b.log.With("thread", dst).Trace("eventbus dropped", "kind", ev.Kind(), "err", err)
	}
}

func (b *Bus) unregister(mb *Mailbox) {
	b.mu.Lock()
	if b.boxes[mb.id] == mb {
		delete(b.boxes, mb.id)
	}
	b.mu.Unlock()
}

// Mailbox is the inbound channel of one thread. Only its owner receives.
type Mailbox struct {
	id        schema.ThreadID
	bus       *Bus
	ch        chan schema.Event
	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the owning thread.
func (m *Mailbox) ID() schema.ThreadID {
	return m.id
}

// Len returns the number of queued messages.
func (m *Mailbox) Len() int {
	return len(m.ch)
}

// Receive blocks until a message arrives, the mailbox closes, or ctx ends.
func (m *Mailbox) Receive(ctx context.Context) (schema.Event, error) {
	select {
	case ev := <-m.ch:
		return ev, nil
	default:
	}
	select {
	case ev := <-m.ch:
		return ev, nil
	case <-m.done:
		return nil, schema.ErrMailboxClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryReceive returns a queued message without blocking.
func (m *Mailbox) TryReceive() (schema.Event, bool) {
	select {
	case ev := <-m.ch:
		return ev, true
	default:
		return nil, false
	}
}

// Close unregisters the mailbox and drains it. Callers waiting on drained
// messages are released with no response.
func (m *Mailbox) Close() {
	m.closeOnce.Do(func() {
		m.bus.unregister(m)
		close(m.done)
		drained := 0
		for {
			select {
			case ev := <-m.ch:
				drained++
				ev.Head().Ack().Abandon()
				m.bus.rec.Dropped(context.Background(), ev.Kind(), metrics.ReasonClosed)
				continue
			default:
			}
			break
		}
		m.bus.log.With("thread", m.id).Debug("eventbus unregister", "drained", drained)
	})
}
