package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep/wav"
	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrAlreadyRecording = errors.New("capture session already recording")

// Device is a microphone that streams PCM frames to a callback while
// started.
type Device interface {
	EncodingInfo() audio.EncodingInfo
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

// PermissionRequester is implemented by devices that have to ask the
// platform before recording.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) error
}

// FailureReporter is implemented by devices that can fail mid-stream.
type FailureReporter interface {
	OnFailure(func(error))
}

// Chunk is a fixed-length slice of captured audio. The receiver owns Data.
type Chunk struct {
	SessionID  uuid.UUID
	Seq        uint64
	Data       []byte
	CapturedAt time.Time
}

type phase int

const (
	phaseIdle phase = iota
	phaseRecording
)

// Session turns a device's frame stream into fixed-cadence chunks, stops
// itself after MaxDuration and records a WAV artifact of everything it
// captured.
type Session struct {
	device   Device
	cfg      Config
	logger   *slog.Logger
	encoding audio.EncodingInfo

	// lifecycle serializes Start and Stop; mu guards the fields below.
	lifecycle sync.Mutex
	mu        sync.Mutex

	phase      phase
	generation uint64
	id         uuid.UUID
	seq        uint64
	chunkSize  int
	pending    []byte
	recorded   []byte
	onChunk    func(Chunk)
	timer      *time.Timer
	startedAt  time.Time

	level atomic.Uint64
}

func NewSession(device Device, opts ...Option) *Session {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.ChunkCadence <= 0 {
		cfg.ChunkCadence = DefaultChunkCadence
	}

	sessionLogger := cfg.Logger
	if sessionLogger == nil {
		sessionLogger = logger
	}

	s := &Session{
		device: device,
		cfg:    cfg,
		logger: sessionLogger.With("component", "capture"),
	}

	if reporter, ok := device.(FailureReporter); ok {
		reporter.OnFailure(s.fail)
	}

	return s
}

// Start acquires the device and streams chunks to onChunk until Stop.
// onChunk runs on the device thread and must not block.
func (s *Session) Start(ctx context.Context, onChunk func(Chunk)) (err error) {
	if !s.lifecycle.TryLock() {
		return ErrAlreadyRecording
	}
	defer s.lifecycle.Unlock()

	ctx, span := tracer.Start(ctx, "start capture")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	s.mu.Lock()
	active := s.phase != phaseIdle
	s.mu.Unlock()
	if active {
		return ErrAlreadyRecording
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if requester, ok := s.device.(PermissionRequester); ok {
		if err := requester.RequestPermission(ctx); err != nil {
			if errors.Is(err, audio.ErrPermissionDenied) {
				return err
			}
			return fmt.Errorf("%w: %w", audio.ErrPermissionDenied, err)
		}
	}

	encoding := s.device.EncodingInfo()
	chunkSize := encoding.BytesFor(s.cfg.ChunkCadence)
	if chunkSize <= 0 {
		return audio.NewDeviceError("capture", "configure", fmt.Errorf("unusable encoding %+v", encoding))
	}

	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.phase = phaseRecording
	s.id = uuid.New()
	s.seq = 0
	s.encoding = encoding
	s.chunkSize = chunkSize
	s.pending = nil
	s.recorded = nil
	s.onChunk = onChunk
	s.startedAt = time.Now()
	s.level.Store(0)
	id := s.id
	s.mu.Unlock()

	span.SetAttributes(attribute.String("capture.session_id", id.String()))

	if err := s.device.StartCapture(ctx, s.handleAudio(generation)); err != nil {
		s.mu.Lock()
		s.reset()
		s.mu.Unlock()

		var deviceErr *audio.DeviceError
		if errors.As(err, &deviceErr) || errors.Is(err, audio.ErrPermissionDenied) {
			return err
		}
		return audio.NewDeviceError("capture", "start", err)
	}

	s.mu.Lock()
	if s.cfg.MaxDuration > 0 && s.generation == generation {
		s.timer = time.AfterFunc(s.cfg.MaxDuration, func() { s.autoStop(generation) })
	}
	s.mu.Unlock()

	s.logger.Info("capture started", "session_id", id, "chunk_bytes", chunkSize)
	return nil
}

func (s *Session) handleAudio(generation uint64) func([]byte) {
	return func(frame []byte) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.generation != generation || s.phase != phaseRecording {
			return
		}

		s.level.Store(math.Float64bits(audio.Level(frame, s.encoding)))
		if s.cfg.KeepRecording {
			s.recorded = append(s.recorded, frame...)
		}

		s.pending = append(s.pending, frame...)
		for len(s.pending) >= s.chunkSize {
			s.emit(s.pending[:s.chunkSize])
			s.pending = s.pending[s.chunkSize:]
		}
	}
}

// emit must be called with mu held.
func (s *Session) emit(data []byte) {
	chunk := Chunk{
		SessionID:  s.id,
		Seq:        s.seq,
		Data:       append([]byte(nil), data...),
		CapturedAt: time.Now(),
	}
	s.seq++
	chunksEmitted.Add(context.Background(), 1)
	if s.onChunk != nil {
		s.onChunk(chunk)
	}
}

// reset must be called with mu held.
func (s *Session) reset() {
	s.phase = phaseIdle
	s.generation++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.recorded = nil
	s.onChunk = nil
	s.level.Store(0)
}

// Stop releases the device, flushes the trailing partial chunk and writes
// the recording. It returns the artifact path, or "" when nothing was
// captured or the session was not recording.
func (s *Session) Stop() (string, error) {
	locator, _, err := s.stop(0, true)
	return locator, err
}

// Discard releases the device and drops the in-flight recording without
// flushing or writing it.
func (s *Session) Discard() error {
	_, _, err := s.stop(0, false)
	return err
}

// stop ends the session. A non-zero generation only stops that session.
func (s *Session) stop(generation uint64, finalize bool) (locator string, stopped bool, err error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.phase != phaseRecording || (generation != 0 && generation != s.generation) {
		s.mu.Unlock()
		return "", false, nil
	}
	if finalize && len(s.pending) > 0 {
		s.emit(s.pending)
	}
	id, recorded, encoding := s.id, s.recorded, s.encoding
	duration := time.Since(s.startedAt)
	s.reset()
	s.mu.Unlock()

	var stopErr error
	if err := s.device.StopCapture(); err != nil {
		stopErr = err
		s.logger.Warn("failed to stop capture device", "session_id", id, "error", err)
	}

	if !finalize {
		s.logger.Info("capture discarded", "session_id", id)
		return "", true, stopErr
	}

	locator, err = s.writeRecording(id, recorded, encoding)
	s.logger.Info("capture stopped", "session_id", id, "duration", duration, "locator", locator)
	return locator, true, errors.Join(stopErr, err)
}

func (s *Session) writeRecording(id uuid.UUID, recorded []byte, encoding audio.EncodingInfo) (string, error) {
	if !s.cfg.KeepRecording || len(recorded) < encoding.BytesPerFrame() {
		return "", nil
	}

	_, span := tracer.Start(context.Background(), "write recording", trace.WithAttributes(
		attribute.String("capture.session_id", id.String()),
		attribute.Int("capture.bytes", len(recorded)),
	))
	defer span.End()

	if err := os.MkdirAll(s.cfg.RecordingDir, 0o755); err != nil {
		err = fmt.Errorf("failed to create recording dir: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	locator := filepath.Join(s.cfg.RecordingDir, "recording-"+id.String()+".wav")
	file, err := os.Create(locator)
	if err != nil {
		err = fmt.Errorf("failed to create recording file: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer file.Close()

	if err := wav.Encode(file, audio.NewPCMStreamer(recorded, encoding), audio.BeepFormat(encoding)); err != nil {
		err = fmt.Errorf("failed to encode recording: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return locator, nil
}

func (s *Session) autoStop(generation uint64) {
	s.mu.Lock()
	id := s.id
	s.mu.Unlock()

	locator, stopped, err := s.stop(generation, true)
	if stopped {
		s.logger.Info("maximum recording duration reached", "max_duration", s.cfg.MaxDuration)
	}
	if err != nil {
		s.logger.Warn("auto stop finished with errors", "error", err)
	}

	if stopped && s.cfg.onAutoStop != nil {
		s.cfg.onAutoStop(id, locator)
	}
}

func (s *Session) fail(cause error) {
	s.mu.Lock()
	generation := s.generation
	id := s.id
	recording := s.phase == phaseRecording
	s.mu.Unlock()
	if !recording {
		return
	}

	s.logger.Error("capture device failed", "error", cause)
	go func() {
		if _, _, err := s.stop(generation, false); err != nil {
			s.logger.Warn("failed to release capture device", "error", err)
		}

		var deviceErr *audio.DeviceError
		if !errors.As(cause, &deviceErr) {
			cause = audio.NewDeviceError("capture", "stream", cause)
		}
		if s.cfg.onFailure != nil {
			s.cfg.onFailure(id, cause)
		}
	}()
}

// CurrentLevel is the RMS level of the latest frame in [0, 1], or 0 when not
// recording.
func (s *Session) CurrentLevel() float64 {
	return math.Float64frombits(s.level.Load())
}

func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == phaseRecording
}

// SessionID is the id of the active recording, or uuid.Nil.
func (s *Session) SessionID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != phaseRecording {
		return uuid.Nil
	}
	return s.id
}
