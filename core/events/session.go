package events

// KindStateChanged identifies orchestrator state transitions.
const KindStateChanged Kind = "session.state_changed"

// StateChanged reports an orchestrator state transition.
type StateChanged struct {
	Base
	From string
	To   string
}

// NewStateChanged creates a session state changed event.
func NewStateChanged(from, to string) StateChanged {
	return StateChanged{Base: NewBase(KindStateChanged), From: from, To: to}
}
