package schema

// WindowEventType describes a lifecycle or geometry change.
type WindowEventType string

const (
	// WindowEventCreated indicates a window was created.
	WindowEventCreated WindowEventType = "created"
	// WindowEventShown indicates a window became visible.
	WindowEventShown WindowEventType = "shown"
	// WindowEventHidden indicates a window became hidden.
	WindowEventHidden WindowEventType = "hidden"
	// WindowEventActivated indicates a window became active.
	WindowEventActivated WindowEventType = "activated"
	// WindowEventDeactivated indicates a window lost the active state.
	WindowEventDeactivated WindowEventType = "deactivated"
	// WindowEventCloseVetoed indicates a close request was refused.
	WindowEventCloseVetoed WindowEventType = "close_vetoed"
	// WindowEventClosing indicates a close request was accepted.
	WindowEventClosing WindowEventType = "closing"
	// WindowEventDestroyed indicates a window was destroyed.
	WindowEventDestroyed WindowEventType = "destroyed"
	// WindowEventRetired indicates a destroyed window's identity was retired.
	WindowEventRetired WindowEventType = "retired"
	// WindowEventGeometry indicates a move, resize, maximize, or minimize.
	WindowEventGeometry WindowEventType = "geometry"
)

// WindowEvent reports a change to a toplevel.
type WindowEvent struct {
	Type   WindowEventType
	Window WindowSnapshot
	// Active is the active window of the affected group after the change.
	Active WindowID
}
