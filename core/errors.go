package orchestration

import "errors"

var (
	ErrClosed             = errors.New("orchestrator closed")
	ErrAlreadyActive      = errors.New("orchestrator already active")
	ErrNotActive          = errors.New("orchestrator not active")
	ErrNotConnected       = errors.New("voice service not connected")
	ErrPlaybackActive     = errors.New("cannot record while a response is playing")
	ErrRecordingStopping  = errors.New("recording is still stopping")
	ErrNoCaptureDevice    = errors.New("no capture device configured")
	ErrNoPlaybackDevice   = errors.New("no playback device configured")
	ErrInvalidChunkFrame  = errors.New("invalid chunk frame")
	ErrUnsupportedVersion = errors.New("unsupported chunk frame version")
)
