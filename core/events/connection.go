package events

import "github.com/koscakluka/ema-voice/core/transport"

const (
	// KindConnectionStateChanged identifies transport phase changes.
	KindConnectionStateChanged Kind = "connection.state_changed"
	// KindConnectionFailed identifies a terminal connection failure.
	KindConnectionFailed Kind = "connection.failed"
)

// ConnectionStateChanged carries the new transport state and the failure
// that caused the change, if any.
type ConnectionStateChanged struct {
	Base
	State transport.State
	Err   error
}

// NewConnectionStateChanged creates a connection state changed event.
func NewConnectionStateChanged(state transport.State, err error) ConnectionStateChanged {
	return ConnectionStateChanged{Base: NewBase(KindConnectionStateChanged), State: state, Err: err}
}

// ConnectionFailed reports that activation failed or reconnection was
// abandoned.
type ConnectionFailed struct {
	Base
	Err error
}

// NewConnectionFailed creates a connection failed event.
func NewConnectionFailed(err error) ConnectionFailed {
	return ConnectionFailed{Base: NewBase(KindConnectionFailed), Err: err}
}
