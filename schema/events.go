package schema

import "strconv"

// Kind identifies the message variant.
type Kind uint16

const (
	// KindWinCreate creates a window.
	KindWinCreate Kind = iota + 8
	// KindWinDestroy destroys a window.
	KindWinDestroy
	// KindWinShow shows a window.
	KindWinShow
	// KindWinHide hides a window.
	KindWinHide
	// KindWinActivate activates a window.
	KindWinActivate
	// KindWinDeactivate deactivates a window.
	KindWinDeactivate
	// KindWinClose requests that a window close.
	KindWinClose
	// KindWinMax maximizes a window.
	KindWinMax
	// KindWinMin minimizes a window.
	KindWinMin
	// KindWinMove moves a window.
	KindWinMove
	// KindWinResize resizes a window.
	KindWinResize

	// KindUpdate reports a damaged rectangle.
	KindUpdate
	// KindPaint requests a repaint.
	KindPaint
	// KindTimer reports a timer expiry.
	KindTimer
	// KindClip carries the visible rectangles of a window.
	KindClip

	// KindMouseMotion reports pointer motion.
	KindMouseMotion
	// KindMouseButton reports a pointer button edge.
	KindMouseButton
	// KindKeyboard reports a key edge.
	KindKeyboard

	// KindCommand carries a user command.
	KindCommand

	// KindFocused reports the focused widget of a toplevel.
	KindFocused
	// KindScrolled reports a scrollbar action.
	KindScrolled
	// KindWidgetResize reports a widget geometry change.
	KindWidgetResize
)

var kindNames = map[Kind]string{
	KindWinCreate:     "win_create",
	KindWinDestroy:    "win_destroy",
	KindWinShow:       "win_show",
	KindWinHide:       "win_hide",
	KindWinActivate:   "win_activate",
	KindWinDeactivate: "win_deactivate",
	KindWinClose:      "win_close",
	KindWinMax:        "win_max",
	KindWinMin:        "win_min",
	KindWinMove:       "win_move",
	KindWinResize:     "win_resize",
	KindUpdate:        "update",
	KindPaint:         "paint",
	KindTimer:         "timer",
	KindClip:          "clip",
	KindMouseMotion:   "mouse_motion",
	KindMouseButton:   "mouse_button",
	KindKeyboard:      "keyboard",
	KindCommand:       "command",
	KindFocused:       "focused",
	KindScrolled:      "scrolled",
	KindWidgetResize:  "widget_resize",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Lifecycle reports whether the kind is a window lifecycle message.
func (k Kind) Lifecycle() bool {
	return k >= KindWinCreate && k <= KindWinResize
}

// Acknowledgeable reports whether messages of this kind may carry an
// acknowledgment handle. All other kinds are fire-and-forget.
func (k Kind) Acknowledgeable() bool {
	return k.Lifecycle() || k == KindCommand
}

// Critical reports whether a failed post of this kind must be propagated to
// the caller instead of being dropped.
func (k Kind) Critical() bool {
	return k.Lifecycle() || k == KindClip
}

// Status is the outcome carried by a reply.
type Status uint8

const (
	// StatusOK indicates success.
	StatusOK Status = iota
	// StatusError indicates a generic failure.
	StatusError
	// StatusNoResource indicates the destination ran out of resources.
	StatusNoResource
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusNoResource:
		return "no_resource"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}
