package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"pkt.systems/pslog"
	"pkt.systems/rtgui/internal/eventbus"
	"pkt.systems/rtgui/schema"
)

type paintLog struct {
	mu   sync.Mutex
	reqs []PaintRequest
}

func (l *paintLog) Paint(_ context.Context, _ *Toplevel, req PaintRequest) error {
	l.mu.Lock()
	l.reqs = append(l.reqs, req)
	l.mu.Unlock()
	return nil
}

func (l *paintLog) all() []PaintRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]PaintRequest{}, l.reqs...)
}

type kindLog struct {
	mu    sync.Mutex
	kinds []schema.Kind
}

func (l *kindLog) HandleEvent(_ context.Context, _ *Toplevel, ev schema.Event) error {
	l.mu.Lock()
	l.kinds = append(l.kinds, ev.Kind())
	l.mu.Unlock()
	return nil
}

func (l *kindLog) has(kind schema.Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range l.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

type stack struct {
	bus    *eventbus.Bus
	coord  *Coordinator
	cfg    schema.CoreConfig
	cancel context.CancelFunc
	done   sync.WaitGroup
}

func startStack(t *testing.T) *stack {
	t.Helper()
	return startStackWith(t, testConfig(), nil)
}

func startStackWith(t *testing.T, cfg schema.CoreConfig, logger pslog.Logger) *stack {
	t.Helper()
	bus := eventbus.New(nil, eventbus.Config{})
	coord, err := NewCoordinator(cfg, CoordinatorDeps{Poster: bus, Logger: logger})
	if err != nil {
		t.Fatalf("new coordinator: %v", err)
	}
	mb, err := bus.Register(schema.ServerThread)
	if err != nil {
		t.Fatalf("register server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &stack{bus: bus, coord: coord, cfg: cfg, cancel: cancel}
	srv := NewServer(coord, mb, logger)
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		_ = srv.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		mb.Close()
		s.done.Wait()
	})
	return s
}

func (s *stack) thread(t *testing.T, id schema.ThreadID, deps ThreadDeps) (*Thread, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	mb, err := s.bus.Register(id)
	if err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	deps.Poster = s.bus
	deps.Retirer = s.coord
	th, err := NewThread(mb, s.cfg, deps)
	if err != nil {
		t.Fatalf("new thread: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		_ = th.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-exited
	})
	return th, cancel, exited
}

func TestThreadPaintsAfterClipAndCloses(t *testing.T) {
	s := startStack(t)
	paints := &paintLog{}
	handler := &kindLog{}
	th, _, _ := s.thread(t, "app", ThreadDeps{Renderer: paints, Handler: handler})
	ctx := context.Background()

	rect := schema.R(10, 10, 110, 60)
	top, err := th.CreateWindow(ctx, schema.DefaultGroup, rect, "main")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := th.Client().Show(ctx, top.ID()); err != nil {
		t.Fatalf("show: %v", err)
	}
	waitFor(t, "first paint", func() bool { return len(paints.all()) > 0 })
	first := paints.all()[0]
	if !first.Full {
		t.Fatalf("expected first paint to be full, got %+v", first)
	}
	if diff := cmp.Diff([]schema.Rect{rect}, first.Clip); diff != "" {
		t.Fatalf("paint clip mismatch (-want +got):\n%s", diff)
	}

	if err := th.Client().Invalidate(top.ID(), schema.R(0, 0, 20, 20)); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	waitFor(t, "incremental paint", func() bool { return len(paints.all()) > 1 })
	second := paints.all()[1]
	if second.Full {
		t.Fatalf("expected incremental paint")
	}
	if diff := cmp.Diff([]schema.Rect{schema.R(10, 10, 20, 20)}, second.Damage); diff != "" {
		t.Fatalf("damage mismatch (-want +got):\n%s", diff)
	}

	wid := top.ID()
	if err := th.Client().Close(ctx, wid); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitFor(t, "retire", func() bool {
		_, err := s.coord.State(wid)
		return errors.Is(err, schema.ErrUnknownWindow)
	})
	if _, ok := th.Toplevel(wid); ok {
		t.Fatalf("expected toplevel released")
	}
	if !handler.has(schema.KindWinClose) || !handler.has(schema.KindWinDestroy) {
		t.Fatalf("expected handler to see close and destroy")
	}

	err = th.Client().Show(ctx, wid)
	if !errors.Is(err, schema.ErrRefused) {
		t.Fatalf("expected stale show refused, got %v", err)
	}
}

func TestThreadCloseVetoRefusesCall(t *testing.T) {
	s := startStack(t)
	th, _, _ := s.thread(t, "app", ThreadDeps{})
	ctx := context.Background()

	top, err := th.CreateWindow(ctx, schema.DefaultGroup, schema.R(0, 0, 10, 10), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.coord.SetCloseVeto(top.ID(), func(context.Context, schema.WindowID) error {
		return errors.New("busy")
	}); err != nil {
		t.Fatalf("set veto: %v", err)
	}
	err = th.Client().Close(ctx, top.ID())
	var refused *schema.RefusedError
	if !errors.As(err, &refused) || refused.Status != schema.StatusError {
		t.Fatalf("expected refusal, got %v", err)
	}
	if state, _ := s.coord.State(top.ID()); state != schema.StateCreated {
		t.Fatalf("expected state unchanged, got %s", state)
	}
	if _, ok := th.Toplevel(top.ID()); !ok {
		t.Fatalf("expected toplevel still hosted")
	}
}

func TestThreadExitRetiresWindows(t *testing.T) {
	s := startStack(t)
	th, cancel, exited := s.thread(t, "app", ThreadDeps{})
	ctx := context.Background()

	top, err := th.CreateWindow(ctx, schema.DefaultGroup, schema.R(0, 0, 10, 10), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := th.Client().Show(ctx, top.ID()); err != nil {
		t.Fatalf("show: %v", err)
	}
	cancel()
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatalf("thread did not exit")
	}
	waitFor(t, "orphan retire", func() bool {
		_, err := s.coord.State(top.ID())
		return errors.Is(err, schema.ErrUnknownWindow)
	})
}

func TestThreadFocusNotificationReachesHandler(t *testing.T) {
	s := startStack(t)
	handler := &kindLog{}
	th, _, _ := s.thread(t, "app", ThreadDeps{Handler: handler})
	ctx := context.Background()

	top, err := th.CreateWindow(ctx, schema.DefaultGroup, schema.R(0, 0, 10, 10), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ref := th.Widgets().Register(top.ID(), "field")
	if err := top.Focus().Set(ref); err != nil {
		t.Fatalf("focus: %v", err)
	}
	waitFor(t, "focused", func() bool { return handler.has(schema.KindFocused) })
}

func TestThreadMisroutedMessageAnswered(t *testing.T) {
	bus := eventbus.New(nil, eventbus.Config{})
	mb, err := bus.Register("app")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer mb.Close()
	th, err := NewThread(mb, testConfig(), ThreadDeps{Poster: bus})
	if err != nil {
		t.Fatalf("new thread: %v", err)
	}

	ev := &schema.Show{Window: schema.WindowID{Slot: 4, Gen: 2}}
	ack := schema.NewAck()
	if err := ev.AttachAck(ack); err != nil {
		t.Fatalf("attach: %v", err)
	}
	th.Handle(context.Background(), ev)
	reply, err := ack.Wait(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if reply.Status != schema.StatusError {
		t.Fatalf("expected error status, got %s", reply.Status)
	}
}

func TestServerForwardsInputAndRejectsClip(t *testing.T) {
	h := newHarness(t, "app")
	srv := NewServer(h.coord, h.boxes["app"], nil)
	ctx := context.Background()
	wid := h.create("app", schema.R(0, 0, 10, 10))

	cmd, err := schema.NewCommand("other", wid, schema.CmdUserInt, 7, "")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	srv.Handle(ctx, cmd)
	got := h.drain("app")
	if len(got) != 1 || got[0] != schema.Event(cmd) {
		t.Fatalf("expected command forwarded, got %d messages", len(got))
	}

	clip := schema.NewClip("app", wid, 99, schema.R(0, 0, 1, 1))
	srv.Handle(ctx, clip)
	if got := h.drain("app"); len(got) != 0 {
		t.Fatalf("expected clip from a client dropped, got %d messages", len(got))
	}
	if region, _ := h.coord.Clip(wid); len(region) != 0 {
		t.Fatalf("expected coordinator clip untouched, got %v", region)
	}

	stale := &schema.Keyboard{Window: schema.WindowID{Slot: 9, Gen: 9}}
	srv.Handle(ctx, stale)
	if got := h.drain("app"); len(got) != 0 {
		t.Fatalf("expected misrouted input dropped, got %d messages", len(got))
	}
}

func TestCommandCallReachesOwnerHandler(t *testing.T) {
	s := startStack(t)
	var mu sync.Mutex
	var texts []string
	handler := HandlerFunc(func(_ context.Context, _ *Toplevel, ev schema.Event) error {
		if cmd, ok := ev.(*schema.Command); ok {
			mu.Lock()
			texts = append(texts, cmd.Text())
			mu.Unlock()
		}
		return nil
	})
	app, _, _ := s.thread(t, "app", ThreadDeps{Handler: handler})
	ctl, _, _ := s.thread(t, "ctl", ThreadDeps{})
	ctx := context.Background()

	top, err := app.CreateWindow(ctx, schema.DefaultGroup, schema.R(0, 0, 10, 10), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	reply, err := ctl.Client().Command(ctx, top.ID(), schema.CmdUserString, 3, "hello")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	if reply.Status != schema.StatusOK {
		t.Fatalf("expected ok reply, got %s", reply.Status)
	}
	if err := ctl.Client().PostCommand(top.ID(), schema.CmdUserString, 4, "again"); err != nil {
		t.Fatalf("post command: %v", err)
	}
	waitFor(t, "posted command", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(texts) == 2
	})
	mu.Lock()
	got := append([]string(nil), texts...)
	mu.Unlock()
	if diff := cmp.Diff([]string{"hello", "again"}, got); diff != "" {
		t.Fatalf("command texts mismatch (-want +got):\n%s", diff)
	}

	if err := ctl.Client().PostCommand(top.ID(), schema.CmdUserString, 5, "seventeen bytes!!"); !errors.Is(err, schema.ErrCommandTooLong) {
		t.Fatalf("expected ErrCommandTooLong, got %v", err)
	}
}

// slowHandshake makes a stalled callback obvious against the elapsed time of
// a request issued from a handler.
func slowHandshake(t *testing.T) (*stack, *syncBuffer) {
	t.Helper()
	cfg := testConfig()
	cfg.HandshakeTimeout = 500 * time.Millisecond
	cfg.CallTimeout = 2 * time.Second
	logs := &syncBuffer{}
	logger := pslog.NewWithOptions(logs, pslog.Options{
		Mode:     pslog.ModeStructured,
		NoColor:  true,
		MinLevel: pslog.InfoLevel,
	})
	return startStackWith(t, cfg, logger), logs
}

func assertNoLog(t *testing.T, logs *syncBuffer, message string) {
	t.Helper()
	for _, entry := range logs.entries(t) {
		if logMessage(entry) == message {
			t.Fatalf("unexpected %q log: %+v", message, entry)
		}
	}
}

type callResult struct {
	err     error
	elapsed time.Duration
}

func awaitResult(t *testing.T, results <-chan callResult) callResult {
	t.Helper()
	select {
	case res := <-results:
		return res
	case <-time.After(3 * time.Second):
		t.Fatalf("handler call did not return")
		return callResult{}
	}
}

func TestHandlerClosesOwnWindow(t *testing.T) {
	s, logs := slowHandshake(t)
	results := make(chan callResult, 1)
	seen := &kindLog{}
	var app *Thread
	handler := HandlerFunc(func(ctx context.Context, top *Toplevel, ev schema.Event) error {
		_ = seen.HandleEvent(ctx, top, ev)
		if cmd, ok := ev.(*schema.Command); ok && cmd.Text() == "quit" {
			start := time.Now()
			err := app.Client().Close(ctx, top.ID())
			results <- callResult{err: err, elapsed: time.Since(start)}
		}
		return nil
	})
	app, _, _ = s.thread(t, "app", ThreadDeps{Handler: handler})
	ctl, _, _ := s.thread(t, "ctl", ThreadDeps{})
	ctx := context.Background()

	top, err := app.CreateWindow(ctx, schema.DefaultGroup, schema.R(0, 0, 40, 40), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	wid := top.ID()
	if err := app.Client().Show(ctx, wid); err != nil {
		t.Fatalf("show: %v", err)
	}
	if err := ctl.Client().PostCommand(wid, schema.CmdUserString, 1, "quit"); err != nil {
		t.Fatalf("post command: %v", err)
	}

	res := awaitResult(t, results)
	if res.err != nil {
		t.Fatalf("close from handler: %v", res.err)
	}
	if res.elapsed >= s.cfg.HandshakeTimeout {
		t.Fatalf("close from handler waited %s, handshake timeout is %s", res.elapsed, s.cfg.HandshakeTimeout)
	}
	waitFor(t, "retire", func() bool {
		_, err := s.coord.State(wid)
		return errors.Is(err, schema.ErrUnknownWindow)
	})
	if !seen.has(schema.KindWinClose) || !seen.has(schema.KindWinDestroy) {
		t.Fatalf("expected handler to see close and destroy")
	}
	assertNoLog(t, logs, "coordinator close cleanup incomplete")
}

type ordered struct {
	mu  sync.Mutex
	got []string
}

func (o *ordered) add(entry string) {
	o.mu.Lock()
	o.got = append(o.got, entry)
	o.mu.Unlock()
}

func (o *ordered) all() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.got...)
}

func TestHandlerActivatesOtherOwnersWindow(t *testing.T) {
	s, logs := slowHandshake(t)
	results := make(chan callResult, 1)
	alphaSeen := &ordered{}
	var alpha *Thread
	var target schema.WindowID
	alphaHandler := HandlerFunc(func(ctx context.Context, top *Toplevel, ev schema.Event) error {
		switch e := ev.(type) {
		case *schema.Command:
			alphaSeen.add("command")
			if e.Text() == "switch" {
				start := time.Now()
				err := alpha.Client().Activate(ctx, target)
				results <- callResult{err: err, elapsed: time.Since(start)}
			}
		case *schema.Deactivate:
			alphaSeen.add("deactivate")
		case *schema.Activate:
			alphaSeen.add("activate")
		}
		return nil
	})
	betaActivated := make(chan struct{}, 1)
	betaHandler := HandlerFunc(func(_ context.Context, _ *Toplevel, ev schema.Event) error {
		if _, ok := ev.(*schema.Activate); ok {
			select {
			case betaActivated <- struct{}{}:
			default:
			}
		}
		return nil
	})
	alpha, _, _ = s.thread(t, "alpha", ThreadDeps{Handler: alphaHandler})
	beta, _, _ := s.thread(t, "beta", ThreadDeps{Handler: betaHandler})
	ctl, _, _ := s.thread(t, "ctl", ThreadDeps{})
	ctx := context.Background()

	mine, err := alpha.CreateWindow(ctx, schema.DefaultGroup, schema.R(0, 0, 40, 40), "")
	if err != nil {
		t.Fatalf("create alpha: %v", err)
	}
	theirs, err := beta.CreateWindow(ctx, schema.DefaultGroup, schema.R(20, 20, 60, 60), "")
	if err != nil {
		t.Fatalf("create beta: %v", err)
	}
	target = theirs.ID()
	for _, step := range []func() error{
		func() error { return alpha.Client().Show(ctx, mine.ID()) },
		func() error { return beta.Client().Show(ctx, theirs.ID()) },
		func() error { return alpha.Client().Activate(ctx, mine.ID()) },
	} {
		if err := step(); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	waitFor(t, "alpha active", func() bool {
		state, _ := s.coord.State(mine.ID())
		return state == schema.StateActive && len(alphaSeen.all()) == 1
	})

	if err := ctl.Client().PostCommand(mine.ID(), schema.CmdUserString, 1, "switch"); err != nil {
		t.Fatalf("post command: %v", err)
	}
	res := awaitResult(t, results)
	if res.err != nil {
		t.Fatalf("activate from handler: %v", res.err)
	}
	if res.elapsed >= s.cfg.HandshakeTimeout {
		t.Fatalf("activate from handler waited %s, handshake timeout is %s", res.elapsed, s.cfg.HandshakeTimeout)
	}
	select {
	case <-betaActivated:
	case <-time.After(2 * time.Second):
		t.Fatalf("beta never activated")
	}
	waitFor(t, "alpha deactivated", func() bool { return len(alphaSeen.all()) == 3 })

	// The deactivation is the next thing alpha handles after its request.
	if diff := cmp.Diff([]string{"activate", "command", "deactivate"}, alphaSeen.all()); diff != "" {
		t.Fatalf("alpha delivery order mismatch (-want +got):\n%s", diff)
	}
	if active, ok := s.coord.Active(schema.DefaultGroup); !ok || active != target {
		t.Fatalf("expected %s active, got %s %v", target, active, ok)
	}
	assertNoLog(t, logs, "coordinator handshake incomplete")
}
