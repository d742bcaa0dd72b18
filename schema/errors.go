package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownWindow indicates a message named a window that does not exist.
	ErrUnknownWindow = errors.New("unknown window")
	// ErrWindowDestroyed indicates a message named a destroyed window.
	ErrWindowDestroyed = errors.New("window destroyed")
	// ErrInvalidTransition indicates a lifecycle request not valid in the current state.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	// ErrCloseVetoed indicates a close request was refused by the window.
	ErrCloseVetoed = errors.New("close vetoed")
	// ErrInvalidRect indicates an empty or malformed rectangle.
	ErrInvalidRect = errors.New("invalid rect")
	// ErrShutdown indicates the coordinator was torn down.
	ErrShutdown = errors.New("coordinator shut down")

	// ErrUnknownDestination indicates no mailbox is registered for the thread.
	ErrUnknownDestination = errors.New("unknown destination")
	// ErrDuplicateThread indicates a mailbox is already registered for the thread.
	ErrDuplicateThread = errors.New("thread already registered")
	// ErrNoCapacity indicates the destination mailbox is full.
	ErrNoCapacity = errors.New("no capacity")
	// ErrMailboxClosed indicates the mailbox was closed.
	ErrMailboxClosed = errors.New("mailbox closed")

	// ErrNoResponse indicates a call timed out or its destination was unreachable.
	ErrNoResponse = errors.New("no response")
	// ErrRefused indicates the destination answered a call negatively.
	ErrRefused = errors.New("refused")
	// ErrDuplicateReply indicates a second reply on a single-use acknowledgment.
	ErrDuplicateReply = errors.New("duplicate reply")
	// ErrNotAcknowledgeable indicates a call was issued with a fire-and-forget message.
	ErrNotAcknowledgeable = errors.New("message kind is fire-and-forget")
	// ErrAckInUse indicates a message already carries an acknowledgment handle.
	ErrAckInUse = errors.New("acknowledgment already attached")
	// ErrNoAck indicates a wait on a message without an acknowledgment handle.
	ErrNoAck = errors.New("message has no acknowledgment")

	// ErrDrawDepthExceeded indicates nested draw scopes exceeded the configured bound.
	ErrDrawDepthExceeded = errors.New("drawing depth exceeded")
	// ErrNotDrawing indicates EndDraw without a matching BeginDraw.
	ErrNotDrawing = errors.New("no draw scope open")

	// ErrCommandTooLong indicates command text longer than MaxCommandText.
	ErrCommandTooLong = errors.New("command text too long")
	// ErrUnknownWidget indicates a widget reference that is not alive.
	ErrUnknownWidget = errors.New("unknown widget")
)

// RefusedError reports a negative reply from a call destination.
type RefusedError struct {
	Status Status
	Reason string
}

func (e *RefusedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("refused: %s", e.Status)
	}
	return fmt.Sprintf("refused: %s: %s", e.Status, e.Reason)
}

// Is reports ErrRefused so callers can match any refusal.
func (e *RefusedError) Is(target error) bool {
	return target == ErrRefused
}
