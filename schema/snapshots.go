package schema

// WindowState is the lifecycle state of a toplevel.
type WindowState string

const (
	// StateCreated is a hidden window.
	StateCreated WindowState = "created"
	// StateShown is a visible, inactive window.
	StateShown WindowState = "shown"
	// StateActive is the visible window holding its group's active state.
	StateActive WindowState = "active"
	// StateClosing is a window whose close was accepted.
	StateClosing WindowState = "closing"
	// StateDestroyed is terminal.
	StateDestroyed WindowState = "destroyed"
)

// Visible reports whether the state is a shown state.
func (s WindowState) Visible() bool {
	return s == StateShown || s == StateActive
}

// WindowSnapshot is a read-only view of a toplevel for observers.
type WindowSnapshot struct {
	ID        WindowID
	Owner     ThreadID
	Group     GroupID
	Title     string
	State     WindowState
	Rect      Rect
	Maximized bool
	Minimized bool
	// Stack is the position in stacking order, 0 being frontmost; -1 when
	// the window is not stacked.
	Stack int
}
