package orchestration

import (
	"fmt"
	"time"

	"github.com/koscakluka/ema-voice/core/transport"
)

// State is the orchestrator's top level state. Waiting for a response after
// a recording is part of Idle.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateIdle
	StateRecording
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type RecordingState int

const (
	RecordingIdle RecordingState = iota
	Recording
	// RecordingStopping lasts from the stop request until the capture
	// session released the microphone.
	RecordingStopping
)

func (s RecordingState) String() string {
	switch s {
	case RecordingIdle:
		return "idle"
	case Recording:
		return "recording"
	case RecordingStopping:
		return "stopping"
	default:
		return fmt.Sprintf("recording(%d)", int(s))
	}
}

type PlaybackState int

const (
	PlaybackIdle PlaybackState = iota
	Playing
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackIdle:
		return "idle"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("playback(%d)", int(s))
	}
}

// LogEntry is one service message kept for the caller.
type LogEntry struct {
	ID          string
	Kind        transport.Kind
	Text        string
	Appointment *transport.Appointment
	ReceivedAt  time.Time
}

// Snapshot is a consistent, caller-owned copy of the orchestrator state.
type Snapshot struct {
	State      State
	Recording  RecordingState
	Playback   PlaybackState
	Connection transport.State

	IsRecording bool
	IsPlaying   bool
	IsConnected bool

	AudioLevel      float64
	LastError       error
	PendingPlayback int
	Messages        []LogEntry
}
