package orchestration

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-voice/core/capture"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/playback"
	"github.com/koscakluka/ema-voice/core/transport"
)

// Orchestrator wires a capture session, a playback session and the voice
// service connection into one push-to-talk client. Every state change runs
// as a step on a single runtime goroutine; device, network and timer work
// runs elsewhere and reports back by posting steps.
type Orchestrator struct {
	cfg            Config
	captureDevice  CaptureDevice
	playbackDevice PlaybackDevice
	framer         ChunkFramer
	transportOpts  []transport.Option
	logger         *slog.Logger
	callbacks      eventCallbacks

	transport *transport.Connection
	capture   *capture.Session
	player    *playback.Session
	emit      eventEmitter

	runtime   *runtime
	events    *runtime
	closeOnce sync.Once

	// stateMu is held by every step. Snapshot reads under RLock.
	stateMu sync.RWMutex

	state         State
	recording     RecordingState
	playbackState PlaybackState
	connection    transport.State
	audioLevel    float64
	lastError     error
	messages      []LogEntry
	pending       [][]byte

	epoch            uint64
	recordingEpoch   uint64
	playbackEpoch    uint64
	recordingSession uuid.UUID
	streamSession    uuid.UUID

	cancelActivation context.CancelFunc
	cancelRecording  context.CancelFunc
	cancelLevelPoll  context.CancelFunc
	cancelPlayback   context.CancelFunc
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		cfg:     DefaultConfig(),
		framer:  HeaderChunkFramer,
		logger:  logger,
		runtime: newRuntime(),
		events:  newRuntime(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "orchestrator")
	o.emit = newCallbackEventEmitter(o.callbacks)

	transportOpts := []transport.Option{
		transport.WithReconnect(o.cfg.MaxReconnectAttempts, o.cfg.BaseBackoffDelay),
		transport.WithLogger(o.logger),
	}
	if o.cfg.Endpoint != "" {
		transportOpts = append(transportOpts, transport.WithEndpoint(o.cfg.Endpoint))
	}
	o.transport = transport.New(append(transportOpts, o.transportOpts...)...)

	if o.captureDevice != nil {
		captureOpts := []capture.Option{
			capture.WithChunkCadence(o.cfg.ChunkCadence),
			capture.WithMaxDuration(o.cfg.MaxRecordingDuration),
			capture.WithAutoStopCallback(o.onCaptureAutoStop),
			capture.WithFailureCallback(o.onCaptureFailure),
			capture.WithLogger(o.logger),
		}
		switch {
		case !o.cfg.KeepRecordings:
			captureOpts = append(captureOpts, capture.WithoutRecordingFile())
		case o.cfg.RecordingDir != "":
			captureOpts = append(captureOpts, capture.WithRecordingDir(o.cfg.RecordingDir))
		}
		o.capture = capture.NewSession(o.captureDevice, captureOpts...)
	}
	if o.playbackDevice != nil {
		o.player = playback.NewSession(o.playbackDevice, playback.WithLogger(o.logger))
	}

	o.runtime.start()
	o.events.start()
	return o
}

// Activate starts connecting to the voice service and returns once the
// attempt is under way. The outcome arrives as a ConnectionStateChanged or
// ConnectionFailed event; ctx only carries values into the attempt.
func (o *Orchestrator) Activate(ctx context.Context, identity transport.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	return o.call(func() error {
		if o.state != StateUninitialized {
			return ErrAlreadyActive
		}

		o.epoch++
		epoch := o.epoch
		o.lastError = nil
		o.setState(StateConnecting)
		o.registerTransportHandlers(epoch)

		activationCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		o.cancelActivation = cancel
		o.spawn("activation", func() { o.runActivation(activationCtx, epoch, identity) })
		return nil
	})
}

// ToggleRecording starts a recording when idle and stops the active one
// otherwise.
func (o *Orchestrator) ToggleRecording() error {
	return o.call(func() error {
		switch o.recording {
		case RecordingIdle:
			return o.startRecording()
		case Recording:
			o.stopRecording(events.StopReasonUser)
			return nil
		default:
			return ErrRecordingStopping
		}
	})
}

// SendControlMessage forwards msg to the voice service as a JSON text frame.
// Messages are dropped with a warning while the connection is down.
func (o *Orchestrator) SendControlMessage(msg map[string]any) error {
	return o.call(func() error {
		if o.state == StateUninitialized {
			return ErrNotActive
		}
		o.transport.SendControl(msg)
		return nil
	})
}

// Teardown releases the connection and both devices and returns to
// Uninitialized. It is safe to call in any state and more than once.
func (o *Orchestrator) Teardown() {
	err := o.call(func() error {
		o.teardown(nil)
		return nil
	})
	if err != nil {
		o.logger.Debug("teardown skipped", "error", err)
	}
}

// Close tears the orchestrator down, delivers the remaining events and stops
// both runtimes. It must not be called from an event handler.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.Teardown()
		o.runtime.end()
		o.runtime.wait()
		o.events.end()
		o.events.wait()
	})
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()

	snapshot := Snapshot{
		State:           o.state,
		Recording:       o.recording,
		Playback:        o.playbackState,
		Connection:      o.connection,
		IsRecording:     o.recording != RecordingIdle,
		IsPlaying:       o.playbackState == Playing,
		IsConnected:     o.connection.Phase == transport.Connected,
		AudioLevel:      o.audioLevel,
		LastError:       o.lastError,
		PendingPlayback: len(o.pending),
	}
	if len(o.messages) > 0 {
		if err := copier.CopyWithOption(&snapshot.Messages, &o.messages, copier.Option{DeepCopy: true}); err != nil {
			o.logger.Warn("failed to copy message log", "error", err)
			snapshot.Messages = append([]LogEntry(nil), o.messages...)
		}
	}
	return snapshot
}

// step posts fn to the runtime. It reports false once the orchestrator is
// closed.
func (o *Orchestrator) step(fn func()) bool {
	return o.runtime.post(func() {
		o.stateMu.Lock()
		defer o.stateMu.Unlock()
		stepsRun.Add(context.Background(), 1)
		fn()
	})
}

// call runs fn as a step and waits for its result.
func (o *Orchestrator) call(fn func() error) error {
	return o.runtime.do(func() error {
		o.stateMu.Lock()
		defer o.stateMu.Unlock()
		stepsRun.Add(context.Background(), 1)
		return fn()
	})
}

func (o *Orchestrator) emitEvent(event events.Event) {
	emit := o.emit
	if !o.events.post(func() { emit(event) }) {
		o.logger.Debug("event dropped after close", "kind", event.Kind())
	}
}

func (o *Orchestrator) setState(next State) {
	if o.state == next {
		return
	}
	previous := o.state
	o.state = next
	o.logger.Debug("state changed", "from", previous, "to", next)
	o.emitEvent(events.NewStateChanged(previous.String(), next.String()))
}

func (o *Orchestrator) fail(err error) {
	o.lastError = err
	o.emitEvent(events.NewError(err, false))
}

// teardown must run inside a step.
func (o *Orchestrator) teardown(cause error) {
	o.epoch++
	if o.cancelActivation != nil {
		o.cancelActivation()
		o.cancelActivation = nil
	}

	o.setState(StateUninitialized)
	o.pending = nil
	o.stopPlayback()
	o.abortRecording(events.StopReasonTeardown)

	o.transport.Disconnect()
	o.connection = transport.State{}
	o.audioLevel = 0
	if cause != nil {
		o.lastError = cause
	}
}
