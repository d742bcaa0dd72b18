package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/pslog"
	"pkt.systems/rtgui/internal/logx"
	"pkt.systems/rtgui/internal/rendezvous"
	"pkt.systems/rtgui/schema"
)

// Receiver is an inbound mailbox.
type Receiver interface {
	ID() schema.ThreadID
	Receive(ctx context.Context) (schema.Event, error)
}

// Server is the single consumer of lifecycle requests. It applies them to
// the coordinator in arrival order and answers every acknowledgment.
type Server struct {
	coord *Coordinator
	mb    Receiver
	log   pslog.Logger
}

// NewServer binds a coordinator to the server mailbox.
func NewServer(coord *Coordinator, mb Receiver, logger pslog.Logger) *Server {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Server{coord: coord, mb: mb, log: logger.With("thread", mb.ID())}
}

// Run serves requests until ctx ends or the mailbox closes.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("server loop start")
	for {
		ev, err := s.mb.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, schema.ErrMailboxClosed) {
				s.log.Info("server loop stop")
				return nil
			}
			return err
		}
		s.Handle(ctx, ev)
	}
}

// Handle applies one request.
func (s *Server) Handle(ctx context.Context, ev schema.Event) {
	log := logx.WithEvent(s.log, ev)
	wid, forwarded, err := s.dispatch(ctx, ev)
	if err != nil && Misrouted(err) {
		s.coord.reportMisrouted(ctx, ev, err)
		return
	}
	if forwarded {
		return
	}
	if err != nil {
		log.Debug("server request failed", "err", err)
	} else {
		log.Trace("server request applied")
	}
	if rerr := rendezvous.RespondErr(ev, wid, err); rerr != nil {
		log.Warn("server reply failed", "err", rerr)
	}
}

func (s *Server) dispatch(ctx context.Context, ev schema.Event) (schema.WindowID, bool, error) {
	c := s.coord
	ctx = withOrigin(ctx, ev.Head().Origin)
	switch e := ev.(type) {
	case *schema.Create:
		wid, err := c.Create(ctx, e.Origin, e.Group, e.Rect, e.Title)
		return wid, false, err
	case *schema.Destroy:
		return e.Window, false, c.Destroy(ctx, e.Window)
	case *schema.Show:
		return e.Window, false, c.Show(ctx, e.Window)
	case *schema.Hide:
		return e.Window, false, c.Hide(ctx, e.Window)
	case *schema.Activate:
		return e.Window, false, c.Activate(ctx, e.Window)
	case *schema.Deactivate:
		return e.Window, false, c.Deactivate(ctx, e.Window)
	case *schema.Close:
		return e.Window, false, c.Close(ctx, e.Window)
	case *schema.Maximize:
		return e.Window, false, c.Maximize(ctx, e.Window)
	case *schema.Minimize:
		return e.Window, false, c.Minimize(ctx, e.Window)
	case *schema.Move:
		return e.Window, false, c.Move(ctx, e.Window, e.X, e.Y)
	case *schema.Resize:
		return e.Window, false, c.Resize(ctx, e.Window, e.Rect)
	case *schema.Update:
		return e.Window, false, c.Invalidate(ctx, e.Window, e.Rect)
	case *schema.Paint:
		return e.Window, false, c.Repaint(ctx, e.Window)
	case *schema.Command:
		if e.Type == schema.CmdWMClose {
			return e.Window, false, c.Close(ctx, e.Window)
		}
		return s.forward(ctx, e)
	case *schema.MouseMotion:
		return s.forward(ctx, e)
	case *schema.MouseButton:
		return s.forward(ctx, e)
	case *schema.Keyboard:
		return s.forward(ctx, e)
	case *schema.Scrolled:
		return s.forward(ctx, e)
	case *schema.Focused:
		return s.forward(ctx, e)
	case *schema.Clip:
		logx.WithEvent(s.log, ev).Warn("server rejected clip from client")
		return e.Window, false, fmt.Errorf("clip from %s: %w", e.Origin, schema.ErrRefused)
	default:
		logx.WithEvent(s.log, ev).Debug("server ignored message")
		return schema.WindowID{}, false, nil
	}
}

func (s *Server) forward(ctx context.Context, ev schema.Targeted) (schema.WindowID, bool, error) {
	if err := s.coord.Forward(ctx, ev); err != nil {
		return ev.Target(), false, err
	}
	return ev.Target(), true, nil
}
