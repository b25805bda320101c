package orchestration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/capture"
	"github.com/koscakluka/ema-voice/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// startRecording must run inside a step.
func (o *Orchestrator) startRecording() error {
	switch {
	case o.state == StateUninitialized || o.state == StateConnecting:
		return ErrNotActive
	case o.capture == nil:
		return ErrNoCaptureDevice
	case !o.transport.IsConnected():
		return ErrNotConnected
	case o.playbackState == Playing:
		return ErrPlaybackActive
	}

	o.recordingEpoch++
	epoch := o.recordingEpoch
	o.recording = Recording
	o.recordingSession = uuid.Nil
	o.streamSession = uuid.Nil
	o.setState(StateRecording)

	ctx, cancel := context.WithCancel(context.Background())
	o.cancelRecording = cancel

	session := o.capture
	o.spawn("capture start", func() {
		err := session.Start(ctx, func(chunk capture.Chunk) {
			o.step(func() { o.forwardChunk(epoch, chunk) })
		})
		sessionID := session.SessionID()
		o.step(func() { o.handleCaptureStarted(epoch, sessionID, err) })
	})
	return nil
}

func (o *Orchestrator) handleCaptureStarted(epoch uint64, sessionID uuid.UUID, err error) {
	if epoch != o.recordingEpoch {
		return
	}
	if err != nil {
		o.logger.Error("failed to start recording", "error", err)
		o.resetRecording()
		o.fail(err)
		o.playNext()
		return
	}
	if sessionID == uuid.Nil {
		// the session already ended on its own, its callback finishes it
		return
	}

	o.recordingSession = sessionID
	o.logger.Info("recording started", "session_id", sessionID)
	o.emitEvent(events.NewRecordingStarted(sessionID))
	o.startLevelPolling(epoch)
}

func (o *Orchestrator) forwardChunk(epoch uint64, chunk capture.Chunk) {
	if epoch != o.recordingEpoch || o.recording == RecordingIdle {
		chunksDiscarded.Add(context.Background(), 1)
		return
	}

	if o.streamSession != chunk.SessionID {
		o.streamSession = chunk.SessionID
		o.transport.SendControl(o.audioStartMessage(chunk.SessionID))
	}
	o.transport.SendBinary(o.framer(chunk))
	chunksForwarded.Add(context.Background(), 1, metric.WithAttributes(attribute.Int("chunk.bytes", len(chunk.Data))))
}

func (o *Orchestrator) audioStartMessage(sessionID uuid.UUID) map[string]any {
	encoding := o.captureDevice.EncodingInfo()
	return map[string]any{
		"action":      "audio_start",
		"session_id":  sessionID.String(),
		"encoding":    encoding.Format.Name(),
		"sample_rate": encoding.SampleRate,
		"channels":    encoding.ChannelCount(),
		"bit_rate":    encoding.BitRate(),
	}
}

// stopRecording must run inside a step. The capture session flushes the
// trailing chunk before Stop returns, so audio_end follows every chunk.
func (o *Orchestrator) stopRecording(reason events.StopReason) {
	o.recording = RecordingStopping
	o.stopLevelPolling()

	epoch := o.recordingEpoch
	session := o.capture
	o.spawn("capture stop", func() {
		locator, err := session.Stop()
		o.step(func() { o.handleCaptureStopped(epoch, reason, locator, err) })
	})
}

func (o *Orchestrator) handleCaptureStopped(epoch uint64, reason events.StopReason, locator string, err error) {
	if epoch != o.recordingEpoch {
		return
	}
	if err != nil {
		o.logger.Warn("recording stopped with errors", "error", err)
		o.emitEvent(events.NewWarning(err))
	}
	o.finishRecording(reason, o.recordingSession, locator)
	o.playNext()
}

func (o *Orchestrator) onCaptureAutoStop(sessionID uuid.UUID, locator string) {
	o.step(func() {
		if !o.ownsRecording(sessionID) {
			return
		}
		o.logger.Info("recording reached its maximum duration", "session_id", sessionID)
		o.finishRecording(events.StopReasonMaxDuration, sessionID, locator)
		o.playNext()
	})
}

func (o *Orchestrator) onCaptureFailure(sessionID uuid.UUID, err error) {
	o.step(func() {
		if !o.ownsRecording(sessionID) {
			return
		}
		o.logger.Error("capture device failed", "session_id", sessionID, "error", err)
		o.finishRecording(events.StopReasonDeviceError, sessionID, "")
		o.fail(err)
		o.playNext()
	})
}

// ownsRecording reports whether a callback for sessionID belongs to the
// active recording. Before the start completes the id is still unknown.
func (o *Orchestrator) ownsRecording(sessionID uuid.UUID) bool {
	if o.recording == RecordingIdle {
		return false
	}
	return o.recordingSession == uuid.Nil || o.recordingSession == sessionID
}

// abortRecording drops the active recording without flushing it.
func (o *Orchestrator) abortRecording(reason events.StopReason) {
	if o.recording == RecordingIdle {
		return
	}
	if o.cancelRecording != nil {
		o.cancelRecording()
	}

	session := o.capture
	o.spawn("capture discard", func() {
		if err := session.Discard(); err != nil {
			o.logger.Warn("failed to release capture device", "error", err)
		}
	})
	o.finishRecording(reason, o.recordingSession, "")
}

// finishRecording must run inside a step.
func (o *Orchestrator) finishRecording(reason events.StopReason, sessionID uuid.UUID, locator string) {
	if o.streamSession != uuid.Nil && !reason.Discarded() {
		o.transport.SendControl(map[string]any{
			"action":     "audio_end",
			"session_id": o.streamSession.String(),
			"reason":     string(reason),
		})
	}
	if sessionID == uuid.Nil {
		sessionID = o.streamSession
	}
	o.resetRecording()

	o.logger.Info("recording stopped", "session_id", sessionID, "reason", reason, "locator", locator)
	o.emitEvent(events.NewRecordingStopped(sessionID, locator, reason))
}

func (o *Orchestrator) resetRecording() {
	o.recordingEpoch++
	o.stopLevelPolling()
	if o.cancelRecording != nil {
		o.cancelRecording()
		o.cancelRecording = nil
	}

	o.streamSession = uuid.Nil
	o.recordingSession = uuid.Nil
	o.recording = RecordingIdle
	o.audioLevel = 0
	if o.state == StateRecording {
		o.setState(StateIdle)
	}
}

func (o *Orchestrator) startLevelPolling(epoch uint64) {
	if o.cfg.LevelPollInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.cancelLevelPoll = cancel

	session := o.capture
	interval := o.cfg.LevelPollInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				level := session.CurrentLevel()
				o.step(func() {
					if epoch != o.recordingEpoch || o.recording != Recording {
						return
					}
					o.audioLevel = level
					o.emitEvent(events.NewAudioLevelUpdated(level))
				})
			}
		}
	}()
}

func (o *Orchestrator) stopLevelPolling() {
	if o.cancelLevelPoll != nil {
		o.cancelLevelPoll()
		o.cancelLevelPoll = nil
	}
}
