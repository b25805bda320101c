package events

const (
	// KindWarning identifies a recoverable problem.
	KindWarning Kind = "diagnostics.warning"
	// KindError identifies a failure that ended a recording or playback.
	KindError Kind = "diagnostics.error"
)

// Warning carries a recoverable problem such as a dropped message.
type Warning struct {
	Base
	Err error
}

// NewWarning creates a warning event.
func NewWarning(err error) Warning {
	return Warning{Base: NewBase(KindWarning), Err: err}
}

// Error carries a failure. Fatal errors ended the activation.
type Error struct {
	Base
	Err   error
	Fatal bool
}

// NewError creates an error event.
func NewError(err error, fatal bool) Error {
	return Error{Base: NewBase(KindError), Err: err, Fatal: fatal}
}
