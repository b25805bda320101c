package orchestration

import (
	"log/slog"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/capture"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/playback"
	"github.com/koscakluka/ema-voice/core/transport"
)

type OrchestratorOption func(*Orchestrator)

// Config holds the streaming knobs. SampleRate and Channels describe the
// format requested from audio backends; the capture device's own encoding
// wins when they differ. The bit rate is derived, see BitRate.
type Config struct {
	Endpoint string

	SampleRate   int
	Channels     int
	ChunkCadence time.Duration

	MaxRecordingDuration time.Duration
	MaxReconnectAttempts int
	BaseBackoffDelay     time.Duration
	LevelPollInterval    time.Duration

	RecordingDir   string
	KeepRecordings bool
}

func DefaultConfig() Config {
	return Config{
		Endpoint:             transport.DefaultEndpoint,
		SampleRate:           audio.DefaultSampleRate,
		Channels:             audio.DefaultChannels,
		ChunkCadence:         capture.DefaultChunkCadence,
		MaxRecordingDuration: capture.DefaultMaxDuration,
		MaxReconnectAttempts: transport.DefaultMaxReconnectAttempts,
		BaseBackoffDelay:     transport.DefaultBaseBackoffDelay,
		LevelPollInterval:    100 * time.Millisecond,
		KeepRecordings:       true,
	}
}

// EncodingInfo is the requested capture format.
func (c Config) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		Format:     audio.EncodingLinear16,
	}
}

// BitRate is the linear16 bit rate of the requested format. audio_start
// announces the capture device's actual rate.
func (c Config) BitRate() int {
	return c.EncodingInfo().BitRate()
}

// CaptureDevice is a microphone. Devices may also implement
// capture.PermissionRequester and capture.FailureReporter.
type CaptureDevice interface {
	capture.Device
}

// PlaybackDevice is a speaker.
type PlaybackDevice interface {
	playback.Device
}

func WithConfig(cfg Config) OrchestratorOption {
	return func(o *Orchestrator) { o.cfg = cfg }
}

func WithEndpoint(endpoint string) OrchestratorOption {
	return func(o *Orchestrator) { o.cfg.Endpoint = endpoint }
}

func WithChunkCadence(cadence time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.cfg.ChunkCadence = cadence }
}

func WithMaxRecordingDuration(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.cfg.MaxRecordingDuration = d }
}

// WithReconnect sets the reconnect cap and the linear backoff unit.
func WithReconnect(maxAttempts int, baseDelay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cfg.MaxReconnectAttempts = maxAttempts
		o.cfg.BaseBackoffDelay = baseDelay
	}
}

func WithLevelPollInterval(interval time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.cfg.LevelPollInterval = interval }
}

// WithRecordingDir keeps a WAV file of every finished recording in dir.
func WithRecordingDir(dir string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.cfg.RecordingDir = dir
		o.cfg.KeepRecordings = true
	}
}

func WithoutRecordingFiles() OrchestratorOption {
	return func(o *Orchestrator) { o.cfg.KeepRecordings = false }
}

func WithCaptureDevice(device CaptureDevice) OrchestratorOption {
	return func(o *Orchestrator) { o.captureDevice = device }
}

func WithPlaybackDevice(device PlaybackDevice) OrchestratorOption {
	return func(o *Orchestrator) { o.playbackDevice = device }
}

// WithChunkFramer replaces the default HeaderChunkFramer.
func WithChunkFramer(framer ChunkFramer) OrchestratorOption {
	return func(o *Orchestrator) {
		if framer != nil {
			o.framer = framer
		}
	}
}

// WithTransportOptions passes extra options to the transport, applied after
// the ones derived from Config.
func WithTransportOptions(opts ...transport.Option) OrchestratorOption {
	return func(o *Orchestrator) { o.transportOpts = append(o.transportOpts, opts...) }
}

func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler receives every event. Handlers run on a dedicated
// goroutine in emission order and may call back into the orchestrator.
func WithEventHandler(handler func(events.Event)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onEvent = handler }
}

func WithStateChangedCallback(callback func(from, to State)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onStateChanged = callback }
}

func WithConnectionStateCallback(callback func(transport.State, error)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onConnectionState = callback }
}

func WithConnectionFailedCallback(callback func(error)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onConnectionFailed = callback }
}

func WithRecordingStoppedCallback(callback func(locator string, reason events.StopReason)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onRecordingStopped = callback }
}

func WithAppointmentCreatedCallback(callback func(transport.Appointment)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onAppointmentCreated = callback }
}

func WithAvailabilityCheckedCallback(callback func(text string)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onAvailabilityChecked = callback }
}

func WithServiceErrorCallback(callback func(text string)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onServiceError = callback }
}

func WithErrorCallback(callback func(err error)) OrchestratorOption {
	return func(o *Orchestrator) { o.callbacks.onError = callback }
}
