package rtgui

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
	"pkt.systems/pslog"
	"pkt.systems/rtgui/core"
	"pkt.systems/rtgui/internal/eventbus"
	"pkt.systems/rtgui/internal/metrics"
	"pkt.systems/rtgui/internal/version"
	"pkt.systems/rtgui/schema"
)

// ShellConfig configures the compositor.
type ShellConfig struct {
	Core            schema.CoreConfig
	ClickToActivate bool
}

// ShellDeps captures dependencies required to build the shell.
type ShellDeps struct {
	Logger    pslog.Logger
	EventSink core.EventSink
}

// ShellOption toggles shell components.
type ShellOption func(*shellOptions)

type shellOptions struct {
	enableInput  bool
	enableTimers bool
	meter        metric.Meter
}

// WithInput enables the input router.
func WithInput() ShellOption {
	return func(o *shellOptions) { o.enableInput = true }
}

// WithTimers enables the timer service.
func WithTimers() ShellOption {
	return func(o *shellOptions) { o.enableTimers = true }
}

// WithMeter records core metrics on meter instead of the global provider.
func WithMeter(meter metric.Meter) ShellOption {
	return func(o *shellOptions) { o.meter = meter }
}

// ThreadOptions configures a window-owning thread started by the shell.
type ThreadOptions struct {
	Renderer core.Renderer
	Handler  core.Handler
	Observer func(schema.Event)
}

// Shell composes the event bus, the window coordinator and its server loop,
// and optionally the input router and timers.
type Shell struct {
	cfg    schema.CoreConfig
	bus    *eventbus.Bus
	coord  *core.Coordinator
	server *core.Server
	srvBox *eventbus.Mailbox
	input  *core.InputRouter
	timers *core.Timers
	rec    *metrics.Recorder
	logger pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	done    chan struct{}
	started bool
	stopped bool
	pending []*core.Thread
}

// New constructs a shell.
func New(cfg ShellConfig, deps ShellDeps, opts ...ShellOption) (*Shell, error) {
	options := shellOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	normalized, err := schema.NormalizeCoreConfig(cfg.Core)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	rec := metrics.Global()
	if options.meter != nil {
		if rec, err = metrics.New(options.meter); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	bus := eventbus.New(logger, eventbus.Config{Depth: normalized.ChannelDepth, Metrics: rec})
	srvBox, err := bus.Register(schema.ServerThread)
	if err != nil {
		return nil, err
	}

	sinks := []core.EventSink{logSink{log: logger}}
	if deps.EventSink != nil {
		sinks = append(sinks, deps.EventSink)
	}
	coord, err := core.NewCoordinator(normalized, core.CoordinatorDeps{
		Poster:    bus,
		EventSink: eventFanout{sinks: sinks},
		Logger:    logger,
		Metrics:   rec,
	})
	if err != nil {
		return nil, err
	}

	s := &Shell{
		cfg:    normalized,
		bus:    bus,
		coord:  coord,
		server: core.NewServer(coord, srvBox, logger),
		srvBox: srvBox,
		rec:    rec,
		logger: logger,
	}
	if options.enableInput {
		s.input = core.NewInputRouter(coord, bus, core.InputOptions{
			ClickToActivate: cfg.ClickToActivate,
			Logger:          logger,
			Metrics:         rec,
		})
	}
	if options.enableTimers {
		s.timers = core.NewTimers(bus, logger)
	}
	return s, nil
}

// Config returns the normalized core configuration.
func (s *Shell) Config() schema.CoreConfig { return s.cfg }

// Coordinator returns the window coordinator.
func (s *Shell) Coordinator() *core.Coordinator { return s.coord }

// Input returns the input router, or nil when disabled.
func (s *Shell) Input() *core.InputRouter { return s.input }

// Timers returns the timer service, or nil when disabled.
func (s *Shell) Timers() *core.Timers { return s.timers }

// Post delivers a message to a thread mailbox.
func (s *Shell) Post(dst schema.ThreadID, ev schema.Event) error {
	return s.bus.Post(dst, ev)
}

// NewThread registers a window-owning thread. Its loop runs once the shell
// is started.
func (s *Shell) NewThread(id schema.ThreadID, opts ThreadOptions) (*core.Thread, error) {
	mb, err := s.bus.Register(id)
	if err != nil {
		return nil, err
	}
	th, err := core.NewThread(mb, s.cfg, core.ThreadDeps{
		Poster:   s.bus,
		Retirer:  s.coord,
		Renderer: opts.Renderer,
		Handler:  opts.Handler,
		Observer: opts.Observer,
		Logger:   s.logger,
		Metrics:  s.rec,
	})
	if err != nil {
		mb.Close()
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.stopped, s.started && s.ctx.Err() != nil:
		mb.Close()
		return nil, schema.ErrShutdown
	case s.started:
		s.runThread(th)
	default:
		s.pending = append(s.pending, th)
	}
	return th, nil
}

func (s *Shell) runThread(th *core.Thread) {
	ctx := s.ctx
	s.group.Go(func() error { return th.Run(ctx) })
}

// Start launches the server loop and every registered thread.
func (s *Shell) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		s.logger.Warn("shell start rejected", "reason", "already started")
		return errors.New("shell already started")
	}
	base, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(base)
	s.ctx, s.cancel, s.group = groupCtx, cancel, group
	s.done = make(chan struct{})
	s.started = true
	pending := s.pending
	s.pending = nil
	group.Go(func() error { return s.server.Run(groupCtx) })
	for _, th := range pending {
		s.runThread(th)
	}
	s.mu.Unlock()

	s.logger.Info(
		"shell start",
		"version", version.Current(),
		"screen", s.cfg.Screen.String(),
		"channel_depth", s.cfg.ChannelDepth,
		"threads", len(pending),
		"input", s.input != nil,
		"timers", s.timers != nil,
	)
	go func() {
		<-groupCtx.Done()
		s.teardown()
	}()
	return nil
}

// teardown runs once the shell context ends.
func (s *Shell) teardown() {
	if s.timers != nil {
		s.timers.Close()
	}
	err := s.group.Wait()
	s.srvBox.Close()
	s.coord.Shutdown()
	if err != nil {
		s.logger.Warn("shell stopped", "err", err)
	} else {
		s.logger.Info("shell stopped")
	}
	close(s.done)
}

// Wait blocks until the shell stops and returns the first loop error.
func (s *Shell) Wait() error {
	s.mu.Lock()
	started := s.started
	group := s.group
	done := s.done
	s.mu.Unlock()
	if !started {
		return errors.New("shell not started")
	}
	<-done
	return group.Wait()
}

// Stop cancels every loop and waits for teardown or ctx.
func (s *Shell) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	done := s.done
	s.stopped = true
	s.mu.Unlock()
	if !started {
		return nil
	}
	s.logger.Info("shell stop requested")
	cancel()
	if ctx == nil {
		<-done
		return nil
	}
	select {
	case <-ctx.Done():
		s.logger.Warn("shell stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
		return nil
	}
}
