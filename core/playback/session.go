package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Device is a speaker that plays queued PCM and reports marks once the audio
// queued before them has played.
type Device interface {
	EncodingInfo() audio.EncodingInfo
	StartPlayback(ctx context.Context) error
	StopPlayback() error
	SendAudio(audio []byte) error
	ClearBuffer()
	Mark(mark string, callback func(string)) error
}

type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger.With("component", "playback")
	}
}

// Session plays one payload at a time. Starting a new payload unloads the
// current one, which then never reports completion.
type Session struct {
	device Device
	logger *slog.Logger

	mu     sync.Mutex
	active *activePlayback
}

type activePlayback struct {
	mark       string
	onComplete func()
	span       trace.Span
}

func NewSession(device Device, opts ...Option) *Session {
	s := &Session{
		device: device,
		logger: logger.With("component", "playback"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Play decodes payload and plays it to the end, then calls onComplete
// exactly once from a separate goroutine.
func (s *Session) Play(ctx context.Context, payload []byte, onComplete func()) error {
	ctx, span := tracer.Start(ctx, "play audio", trace.WithAttributes(
		attribute.Int("playback.payload_bytes", len(payload)),
	))

	pcm, err := Decode(payload, s.device.EncodingInfo())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return err
	}
	span.SetAttributes(attribute.String("playback.duration", s.device.EncodingInfo().DurationOf(len(pcm)).String()))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		span.End()
		return err
	}

	s.unloadLocked()
	if err := s.device.StartPlayback(ctx); err != nil {
		return s.failLocked(span, err, "start")
	}

	playback := &activePlayback{
		mark:       uuid.NewString(),
		onComplete: onComplete,
		span:       span,
	}
	s.active = playback

	if err := s.device.SendAudio(pcm); err != nil {
		s.active = nil
		s.device.ClearBuffer()
		return s.failLocked(span, err, "write")
	}
	if err := s.device.Mark(playback.mark, func(string) { s.complete(playback) }); err != nil {
		s.active = nil
		s.device.ClearBuffer()
		return s.failLocked(span, err, "mark")
	}

	s.logger.Debug("playback started", "mark", playback.mark, "bytes", len(pcm))
	return nil
}

func (s *Session) failLocked(span trace.Span, err error, op string) error {
	err = asDeviceError(err, op)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
	return err
}

func (s *Session) complete(playback *activePlayback) {
	s.mu.Lock()
	if s.active != playback {
		s.mu.Unlock()
		return
	}
	s.active = nil
	if err := s.device.StopPlayback(); err != nil {
		s.logger.Warn("failed to release playback device", "error", err)
	}
	s.mu.Unlock()

	playback.span.End()
	s.logger.Debug("playback completed", "mark", playback.mark)
	if playback.onComplete != nil {
		playback.onComplete()
	}
}

// unloadLocked must be called with mu held.
func (s *Session) unloadLocked() {
	if s.active == nil {
		return
	}
	s.device.ClearBuffer()
	s.active.span.SetAttributes(attribute.Bool("playback.interrupted", true))
	s.active.span.End()
	s.active = nil
}

// Stop interrupts the current playback and releases the device. The
// interrupted playback never reports completion.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unloadLocked()
	if err := s.device.StopPlayback(); err != nil {
		return asDeviceError(err, "stop")
	}
	return nil
}

func asDeviceError(err error, op string) error {
	var deviceErr *audio.DeviceError
	if errors.As(err, &deviceErr) {
		return err
	}
	return audio.NewDeviceError("playback", op, err)
}

func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}
