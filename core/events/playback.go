package events

const (
	// KindPlaybackQueued identifies an audio response waiting to play.
	KindPlaybackQueued Kind = "playback.queued"
	// KindPlaybackStarted identifies the start of an audio response.
	KindPlaybackStarted Kind = "playback.started"
	// KindPlaybackEnded identifies the end of an audio response.
	KindPlaybackEnded Kind = "playback.ended"
)

// PlaybackQueued carries the number of responses waiting, including this one.
type PlaybackQueued struct {
	Base
	Pending int
}

// NewPlaybackQueued creates a playback queued event.
func NewPlaybackQueued(pending int) PlaybackQueued {
	return PlaybackQueued{Base: NewBase(KindPlaybackQueued), Pending: pending}
}

// PlaybackStarted carries the number of responses still waiting behind this
// one.
type PlaybackStarted struct {
	Base
	Pending int
}

// NewPlaybackStarted creates a playback started event.
func NewPlaybackStarted(pending int) PlaybackStarted {
	return PlaybackStarted{Base: NewBase(KindPlaybackStarted), Pending: pending}
}

// PlaybackEnded reports whether the response was cut off before its end.
type PlaybackEnded struct {
	Base
	Interrupted bool
}

// NewPlaybackEnded creates a playback ended event.
func NewPlaybackEnded(interrupted bool) PlaybackEnded {
	return PlaybackEnded{Base: NewBase(KindPlaybackEnded), Interrupted: interrupted}
}
