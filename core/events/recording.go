package events

import "github.com/google/uuid"

const (
	KindRecordingStarted  Kind = "recording.started"
	KindRecordingStopped  Kind = "recording.stopped"
	KindAudioLevelUpdated Kind = "recording.level_updated"
)

// StopReason says why a recording ended.
type StopReason string

const (
	StopReasonUser           StopReason = "user"
	StopReasonMaxDuration    StopReason = "max_duration"
	StopReasonConnectionLost StopReason = "connection_lost"
	StopReasonDeviceError    StopReason = "device_error"
	StopReasonTeardown       StopReason = "teardown"
)

// Discarded reports whether the recording was dropped instead of finished.
func (r StopReason) Discarded() bool {
	return r == StopReasonConnectionLost || r == StopReasonDeviceError || r == StopReasonTeardown
}

type RecordingStarted struct {
	Base
	SessionID uuid.UUID
}

func NewRecordingStarted(sessionID uuid.UUID) RecordingStarted {
	return RecordingStarted{Base: NewBase(KindRecordingStarted), SessionID: sessionID}
}

// RecordingStopped carries the recording locator, empty when nothing was
// written.
type RecordingStopped struct {
	Base
	SessionID uuid.UUID
	Locator   string
	Reason    StopReason
}

func NewRecordingStopped(sessionID uuid.UUID, locator string, reason StopReason) RecordingStopped {
	return RecordingStopped{Base: NewBase(KindRecordingStopped), SessionID: sessionID, Locator: locator, Reason: reason}
}

type AudioLevelUpdated struct {
	Base
	Level float64
}

func NewAudioLevelUpdated(level float64) AudioLevelUpdated {
	return AudioLevelUpdated{Base: NewBase(KindAudioLevelUpdated), Level: level}
}
