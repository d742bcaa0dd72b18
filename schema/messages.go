package schema

import "fmt"

// MaxCommandText is the fixed bound on Command text, in bytes.
const MaxCommandText = 16

// Header carries the fields shared by every message.
type Header struct {
	// Origin is the posting thread.
	Origin ThreadID
	// User is a free field for application use.
	User uint16
	ack  *Ack
}

// Ack returns the acknowledgment handle, or nil for fire-and-forget messages.
func (h *Header) Ack() *Ack {
	return h.ack
}

// AttachAck binds a handle to the message.
func (h *Header) AttachAck(a *Ack) error {
	if h.ack != nil {
		return ErrAckInUse
	}
	h.ack = a
	return nil
}

// Head returns the header; it lets every variant satisfy Event.
func (h *Header) Head() *Header {
	return h
}

// Event is a message of one of the kinds defined in this package.
type Event interface {
	Kind() Kind
	Head() *Header
	isEvent()
}

// Targeted is implemented by messages addressed to one window.
type Targeted interface {
	Event
	Target() WindowID
}

// Window lifecycle.

// Create requests a new toplevel. The server fills Window in its reply.
type Create struct {
	Header
	Group GroupID
	Rect  Rect
	Title string
}

// Destroy tears a window down, bypassing any close veto.
type Destroy struct {
	Header
	Window WindowID
}

// Show makes a window visible.
type Show struct {
	Header
	Window WindowID
}

// Hide makes a window invisible.
type Hide struct {
	Header
	Window WindowID
}

// Activate gives a window the active state of its group.
type Activate struct {
	Header
	Window WindowID
}

// Deactivate removes the active state from a window.
type Deactivate struct {
	Header
	Window WindowID
}

// Close asks a window to close; the window may veto.
type Close struct {
	Header
	Window WindowID
}

// Maximize grows a window to the screen.
type Maximize struct {
	Header
	Window WindowID
}

// Minimize removes a window from view without changing its lifecycle state.
type Minimize struct {
	Header
	Window WindowID
}

// Move places the window's top-left corner at X, Y.
type Move struct {
	Header
	Window WindowID
	X, Y   int
}

// Resize replaces the window's rectangle.
type Resize struct {
	Header
	Window WindowID
	Rect   Rect
}

// Regions.

// Update reports a damaged rectangle of a window needing repaint.
type Update struct {
	Header
	Window WindowID
	Rect   Rect
}

// Paint asks the owner to repaint a window; Full selects the whole subtree.
type Paint struct {
	Header
	Window WindowID
	Full   bool
}

// Timer reports the expiry of a registered timer.
type Timer struct {
	Header
	Ref TimerRef
}

// Clip carries the complete visible rectangle sequence of a window. The
// sequence is fixed at construction and is never mutated.
type Clip struct {
	Header
	Window WindowID
	serial uint64
	rects  []Rect
}

// NewClip builds a clip message owning an exact-length copy of rects.
func NewClip(origin ThreadID, wid WindowID, serial uint64, rects ...Rect) *Clip {
	owned := make([]Rect, len(rects))
	copy(owned, rects)
	return &Clip{
		Header: Header{Origin: origin},
		Window: wid,
		serial: serial,
		rects:  owned,
	}
}

// Serial orders clips for the same window; larger is newer.
func (c *Clip) Serial() uint64 {
	return c.serial
}

// Len returns the number of rectangles.
func (c *Clip) Len() int {
	return len(c.rects)
}

// Rect returns the i-th rectangle.
func (c *Clip) Rect(i int) Rect {
	return c.rects[i]
}

// Rects returns a copy of the sequence.
func (c *Clip) Rects() []Rect {
	out := make([]Rect, len(c.rects))
	copy(out, c.rects)
	return out
}

// Input.

// Mouse button and edge bits.
const (
	MouseButtonRight     uint16 = 0x01
	MouseButtonLeft      uint16 = 0x02
	MouseButtonMiddle    uint16 = 0x03
	MouseButtonWheelUp   uint16 = 0x04
	MouseButtonWheelDown uint16 = 0x08

	MouseButtonDown uint16 = 0x10
	MouseButtonUp   uint16 = 0x20
)

// MouseMotion reports pointer movement over a window.
type MouseMotion struct {
	Header
	Window WindowID
	X, Y   int
	Button uint16
}

// MouseButton reports a pointer button edge over a window.
type MouseButton struct {
	Header
	Window WindowID
	X, Y   int
	Button uint16
}

// Down reports whether the event is a press.
func (m *MouseButton) Down() bool {
	return m.Button&MouseButtonDown != 0
}

// KeyEdge is the direction of a key event.
type KeyEdge uint8

const (
	// KeyDown is a press.
	KeyDown KeyEdge = iota + 1
	// KeyUp is a release.
	KeyUp
)

// Key modifier bits.
const (
	ModNone   uint16 = 0x0000
	ModLShift uint16 = 0x0001
	ModRShift uint16 = 0x0002
	ModLCtrl  uint16 = 0x0040
	ModRCtrl  uint16 = 0x0080
	ModLAlt   uint16 = 0x0100
	ModRAlt   uint16 = 0x0200
	ModLMeta  uint16 = 0x0400
	ModRMeta  uint16 = 0x0800
	ModNum    uint16 = 0x1000
	ModCaps   uint16 = 0x2000
)

// Keyboard reports a key edge for a window.
type Keyboard struct {
	Header
	Window  WindowID
	Edge    KeyEdge
	Key     uint16
	Mod     uint16
	Unicode rune
}

// Ctrl reports whether either control key is held.
func (k *Keyboard) Ctrl() bool { return k.Mod&(ModLCtrl|ModRCtrl) != 0 }

// Alt reports whether either alt key is held.
func (k *Keyboard) Alt() bool { return k.Mod&(ModLAlt|ModRAlt) != 0 }

// Shift reports whether either shift key is held.
func (k *Keyboard) Shift() bool { return k.Mod&(ModLShift|ModRShift) != 0 }

// Commands.

// CommandType discriminates Command payloads.
type CommandType int32

const (
	CmdUnknown    CommandType = 0x00
	CmdWMClose    CommandType = 0x10
	CmdUserInt    CommandType = 0x20
	CmdUserString CommandType = 0x21
)

// Command carries a user-defined action.
type Command struct {
	Header
	Window WindowID
	Type   CommandType
	ID     int32
	text   string
}

// NewCommand builds a command. Text longer than MaxCommandText bytes is
// rejected, never truncated.
func NewCommand(origin ThreadID, wid WindowID, typ CommandType, id int32, text string) (*Command, error) {
	if len(text) > MaxCommandText {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrCommandTooLong, len(text), MaxCommandText)
	}
	return &Command{
		Header: Header{Origin: origin},
		Window: wid,
		Type:   typ,
		ID:     id,
		text:   text,
	}, nil
}

// Text returns the command text.
func (c *Command) Text() string {
	return c.text
}

// Widgets.

// ScrollAction is a scrollbar action.
type ScrollAction uint8

const (
	ScrollLineUp   ScrollAction = 0x01
	ScrollLineDown ScrollAction = 0x02
	ScrollPageUp   ScrollAction = 0x03
	ScrollPageDown ScrollAction = 0x04
)

// Scrolled reports a scrollbar action.
type Scrolled struct {
	Header
	Window WindowID
	Action ScrollAction
}

// Focused reports the now-focused widget of a toplevel; a zero Widget means
// focus was cleared.
type Focused struct {
	Header
	Window WindowID
	Widget WidgetRef
}

// WidgetResize reports a widget's new geometry.
type WidgetResize struct {
	Header
	Widget     WidgetRef
	X, Y, W, H int
}

func (*Create) Kind() Kind       { return KindWinCreate }
func (*Destroy) Kind() Kind      { return KindWinDestroy }
func (*Show) Kind() Kind         { return KindWinShow }
func (*Hide) Kind() Kind         { return KindWinHide }
func (*Activate) Kind() Kind     { return KindWinActivate }
func (*Deactivate) Kind() Kind   { return KindWinDeactivate }
func (*Close) Kind() Kind        { return KindWinClose }
func (*Maximize) Kind() Kind     { return KindWinMax }
func (*Minimize) Kind() Kind     { return KindWinMin }
func (*Move) Kind() Kind         { return KindWinMove }
func (*Resize) Kind() Kind       { return KindWinResize }
func (*Update) Kind() Kind       { return KindUpdate }
func (*Paint) Kind() Kind        { return KindPaint }
func (*Timer) Kind() Kind        { return KindTimer }
func (*Clip) Kind() Kind         { return KindClip }
func (*MouseMotion) Kind() Kind  { return KindMouseMotion }
func (*MouseButton) Kind() Kind  { return KindMouseButton }
func (*Keyboard) Kind() Kind     { return KindKeyboard }
func (*Command) Kind() Kind      { return KindCommand }
func (*Scrolled) Kind() Kind     { return KindScrolled }
func (*Focused) Kind() Kind      { return KindFocused }
func (*WidgetResize) Kind() Kind { return KindWidgetResize }

func (*Create) isEvent()       {}
func (*Destroy) isEvent()      {}
func (*Show) isEvent()         {}
func (*Hide) isEvent()         {}
func (*Activate) isEvent()     {}
func (*Deactivate) isEvent()   {}
func (*Close) isEvent()        {}
func (*Maximize) isEvent()     {}
func (*Minimize) isEvent()     {}
func (*Move) isEvent()         {}
func (*Resize) isEvent()       {}
func (*Update) isEvent()       {}
func (*Paint) isEvent()        {}
func (*Timer) isEvent()        {}
func (*Clip) isEvent()         {}
func (*MouseMotion) isEvent()  {}
func (*MouseButton) isEvent()  {}
func (*Keyboard) isEvent()     {}
func (*Command) isEvent()      {}
func (*Scrolled) isEvent()     {}
func (*Focused) isEvent()      {}
func (*WidgetResize) isEvent() {}

func (e *Destroy) Target() WindowID     { return e.Window }
func (e *Show) Target() WindowID        { return e.Window }
func (e *Hide) Target() WindowID        { return e.Window }
func (e *Activate) Target() WindowID    { return e.Window }
func (e *Deactivate) Target() WindowID  { return e.Window }
func (e *Close) Target() WindowID       { return e.Window }
func (e *Maximize) Target() WindowID    { return e.Window }
func (e *Minimize) Target() WindowID    { return e.Window }
func (e *Move) Target() WindowID        { return e.Window }
func (e *Resize) Target() WindowID      { return e.Window }
func (e *Update) Target() WindowID      { return e.Window }
func (e *Paint) Target() WindowID       { return e.Window }
func (e *Clip) Target() WindowID        { return e.Window }
func (e *MouseMotion) Target() WindowID { return e.Window }
func (e *MouseButton) Target() WindowID { return e.Window }
func (e *Keyboard) Target() WindowID    { return e.Window }
func (e *Command) Target() WindowID     { return e.Window }
func (e *Scrolled) Target() WindowID    { return e.Window }
func (e *Focused) Target() WindowID     { return e.Window }

// TargetOf returns the window a message names, if any.
func TargetOf(ev Event) (WindowID, bool) {
	if t, ok := ev.(Targeted); ok {
		return t.Target(), true
	}
	return WindowID{}, false
}
