package core

import (
	"context"
	"fmt"

	"pkt.systems/rtgui/internal/rendezvous"
	"pkt.systems/rtgui/schema"
)

// Client is a thread's view of the server. Lifecycle requests are calls;
// their outcome surfaces as an error.
type Client struct {
	origin schema.ThreadID
	server schema.ThreadID
	poster Poster
	caller *rendezvous.Caller
}

// NewClient builds a client posting as origin.
func NewClient(origin schema.ThreadID, poster Poster, opts rendezvous.Options) *Client {
	return &Client{
		origin: origin,
		server: schema.ServerThread,
		poster: poster,
		caller: rendezvous.New(poster, opts),
	}
}

// Origin returns the thread the client posts as.
func (c *Client) Origin() schema.ThreadID {
	return c.origin
}

func (c *Client) head() schema.Header {
	return schema.Header{Origin: c.origin}
}

func (c *Client) call(ctx context.Context, ev schema.Event) (schema.Reply, error) {
	return c.caller.Call(ctx, c.server, ev)
}

// Create allocates a hidden toplevel owned by the client's thread.
func (c *Client) Create(ctx context.Context, group schema.GroupID, rect schema.Rect, title string) (schema.WindowID, error) {
	reply, err := c.call(ctx, &schema.Create{Header: c.head(), Group: group, Rect: rect, Title: title})
	if err != nil {
		return schema.WindowID{}, err
	}
	if reply.Window.IsZero() {
		return schema.WindowID{}, fmt.Errorf("create: %w", schema.ErrUnknownWindow)
	}
	return reply.Window, nil
}

// Show makes a window visible.
func (c *Client) Show(ctx context.Context, wid schema.WindowID) error {
	_, err := c.call(ctx, &schema.Show{Header: c.head(), Window: wid})
	return err
}

// Hide makes a window invisible.
func (c *Client) Hide(ctx context.Context, wid schema.WindowID) error {
	_, err := c.call(ctx, &schema.Hide{Header: c.head(), Window: wid})
	return err
}

// Activate gives a window the active state of its group.
func (c *Client) Activate(ctx context.Context, wid schema.WindowID) error {
	_, err := c.call(ctx, &schema.Activate{Header: c.head(), Window: wid})
	return err
}

// Deactivate removes the active state from a window.
func (c *Client) Deactivate(ctx context.Context, wid schema.WindowID) error {
	_, err := c.call(ctx, &schema.Deactivate{Header: c.head(), Window: wid})
	return err
}

// Close asks a window to close; a veto surfaces as schema.ErrRefused.
func (c *Client) Close(ctx context.Context, wid schema.WindowID) error {
	_, err := c.call(ctx, &schema.Close{Header: c.head(), Window: wid})
	return err
}

// Destroy tears a window down.
func (c *Client) Destroy(ctx context.Context, wid schema.WindowID) error {
	_, err := c.call(ctx, &schema.Destroy{Header: c.head(), Window: wid})
	return err
}

// Maximize grows a window to the screen.
func (c *Client) Maximize(ctx context.Context, wid schema.WindowID) error {
	_, err := c.call(ctx, &schema.Maximize{Header: c.head(), Window: wid})
	return err
}

// Minimize removes a window from view.
func (c *Client) Minimize(ctx context.Context, wid schema.WindowID) error {
	_, err := c.call(ctx, &schema.Minimize{Header: c.head(), Window: wid})
	return err
}

// Move places a window's top-left corner.
func (c *Client) Move(ctx context.Context, wid schema.WindowID, x, y int) error {
	_, err := c.call(ctx, &schema.Move{Header: c.head(), Window: wid, X: x, Y: y})
	return err
}

// Resize replaces a window's rectangle.
func (c *Client) Resize(ctx context.Context, wid schema.WindowID, rect schema.Rect) error {
	_, err := c.call(ctx, &schema.Resize{Header: c.head(), Window: wid, Rect: rect})
	return err
}

// Invalidate reports a damaged rectangle; the server answers with Update and
// Paint for its visible part.
func (c *Client) Invalidate(wid schema.WindowID, rect schema.Rect) error {
	return c.poster.Post(c.server, &schema.Update{Header: c.head(), Window: wid, Rect: rect})
}

// Repaint requests a full repaint of a window.
func (c *Client) Repaint(wid schema.WindowID) error {
	return c.poster.Post(c.server, &schema.Paint{Header: c.head(), Window: wid, Full: true})
}

// Command sends a command to the window's owner through the server and
// waits for the owner's answer.
func (c *Client) Command(ctx context.Context, wid schema.WindowID, typ schema.CommandType, id int32, text string) (schema.Reply, error) {
	cmd, err := schema.NewCommand(c.origin, wid, typ, id, text)
	if err != nil {
		return schema.Reply{}, err
	}
	return c.call(ctx, cmd)
}

// PostCommand sends a command without waiting.
func (c *Client) PostCommand(wid schema.WindowID, typ schema.CommandType, id int32, text string) error {
	cmd, err := schema.NewCommand(c.origin, wid, typ, id, text)
	if err != nil {
		return err
	}
	return c.poster.Post(c.server, cmd)
}
