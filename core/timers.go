package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/rtgui/schema"
)

type timerEntry struct {
	owner  schema.ThreadID
	period time.Duration
	timer  *time.Timer
}

// Timers posts Timer messages to registrants on expiry.
type Timers struct {
	poster Poster
	log    pslog.Logger

	mu      sync.Mutex
	next    schema.TimerRef
	entries map[schema.TimerRef]*timerEntry
	closed  bool
}

// NewTimers constructs a timer service.
func NewTimers(poster Poster, logger pslog.Logger) *Timers {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Timers{
		poster:  poster,
		log:     logger.With("thread", schema.TimerThread),
		entries: make(map[schema.TimerRef]*timerEntry),
	}
}

// After posts one Timer to owner once d elapses.
func (t *Timers) After(owner schema.ThreadID, d time.Duration) (schema.TimerRef, error) {
	return t.start(owner, d, 0)
}

// Every posts a Timer to owner each period until stopped.
func (t *Timers) Every(owner schema.ThreadID, period time.Duration) (schema.TimerRef, error) {
	if period <= 0 {
		return 0, errors.New("timers: period must be positive")
	}
	return t.start(owner, period, period)
}

func (t *Timers) start(owner schema.ThreadID, d, period time.Duration) (schema.TimerRef, error) {
	if err := schema.ValidateThreadID(owner); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, schema.ErrShutdown
	}
	t.next++
	ref := t.next
	entry := &timerEntry{owner: owner, period: period}
	entry.timer = time.AfterFunc(d, func() { t.fire(ref) })
	t.entries[ref] = entry
	t.log.Debug("timer start", "ref", ref, "owner", owner, "delay", d, "period", period)
	return ref, nil
}

func (t *Timers) fire(ref schema.TimerRef) {
	t.mu.Lock()
	entry, ok := t.entries[ref]
	if !ok {
		t.mu.Unlock()
		return
	}
	if entry.period > 0 {
		entry.timer.Reset(entry.period)
	} else {
		delete(t.entries, ref)
	}
	owner := entry.owner
	t.mu.Unlock()

	err := t.poster.Post(owner, &schema.Timer{Header: schema.Header{Origin: schema.TimerThread}, Ref: ref})
	if err == nil {
		return
	}
	if errors.Is(err, schema.ErrUnknownDestination) {
		t.log.Debug("timer owner gone", "ref", ref, "owner", owner)
		t.Stop(ref)
		return
	}
	t.log.Trace("timer expiry dropped", "ref", ref, "owner", owner, "err", err)
}

// Stop cancels a timer and reports whether it was pending.
func (t *Timers) Stop(ref schema.TimerRef) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[ref]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(t.entries, ref)
	return true
}

// Pending returns the number of registered timers.
func (t *Timers) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close stops every timer; later registrations fail.
func (t *Timers) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for ref, entry := range t.entries {
		entry.timer.Stop()
		delete(t.entries, ref)
	}
}
