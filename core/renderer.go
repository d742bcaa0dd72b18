package core

import (
	"context"

	"pkt.systems/rtgui/schema"
)

// PaintRequest describes one repaint of a toplevel.
type PaintRequest struct {
	Window schema.WindowID
	// Clip is the visible region the renderer may touch.
	Clip []schema.Rect
	// Damage lists rectangles reported by Update since the last paint; it is
	// empty for full repaints.
	Damage []schema.Rect
	Full   bool
}

// Renderer draws a toplevel inside an open draw scope.
type Renderer interface {
	Paint(ctx context.Context, top *Toplevel, req PaintRequest) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, top *Toplevel, req PaintRequest) error

// Paint calls f.
func (f RendererFunc) Paint(ctx context.Context, top *Toplevel, req PaintRequest) error {
	return f(ctx, top, req)
}

type nopRenderer struct{}

func (nopRenderer) Paint(context.Context, *Toplevel, PaintRequest) error { return nil }
