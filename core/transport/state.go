package transport

import "fmt"

type Phase int

const (
	Disconnected Phase = iota
	Connecting
	Connected
	Reconnecting
)

func (p Phase) String() string {
	switch p {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a point-in-time view of the connection. Attempt is only set while
// Reconnecting and counts from 1.
type State struct {
	Phase   Phase
	Attempt int
}

func (s State) String() string {
	if s.Phase == Reconnecting {
		return fmt.Sprintf("%s (attempt %d)", s.Phase, s.Attempt)
	}
	return s.Phase.String()
}

// Identity addresses the remote session. It is supplied per activation and
// reused for every reconnect attempt.
type Identity struct {
	UserID string
	Token  string
}

func (id Identity) Validate() error {
	if id.UserID == "" {
		return ErrMissingUserID
	}
	return nil
}
