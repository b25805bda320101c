package orchestration

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/playback"
)

func (o *Orchestrator) enqueuePayload(payload []byte) {
	if o.player == nil {
		o.logger.Warn("dropping audio payload", "error", ErrNoPlaybackDevice)
		o.emitEvent(events.NewWarning(ErrNoPlaybackDevice))
		return
	}

	o.pending = append(o.pending, payload)
	if !o.canPlay() {
		o.logger.Debug("audio payload queued", "pending", len(o.pending))
		o.emitEvent(events.NewPlaybackQueued(len(o.pending)))
		return
	}
	o.playNext()
}

// canPlay holds while nothing owns the speaker and the microphone is free.
func (o *Orchestrator) canPlay() bool {
	return o.player != nil &&
		o.state == StateIdle &&
		o.recording == RecordingIdle &&
		o.playbackState == PlaybackIdle
}

// playNext must run inside a step.
func (o *Orchestrator) playNext() {
	if !o.canPlay() || len(o.pending) == 0 {
		return
	}

	payload := o.pending[0]
	o.pending[0] = nil
	o.pending = o.pending[1:]

	o.playbackEpoch++
	epoch := o.playbackEpoch
	o.playbackState = Playing
	o.setState(StatePlaying)
	o.emitEvent(events.NewPlaybackStarted(len(o.pending)))

	ctx, cancel := context.WithCancel(context.Background())
	o.cancelPlayback = cancel

	player := o.player
	o.spawn("playback", func() {
		err := player.Play(ctx, payload, func() {
			o.step(func() { o.handlePlaybackEnded(epoch, nil) })
		})
		if err != nil {
			o.step(func() { o.handlePlaybackEnded(epoch, err) })
		}
	})
}

func (o *Orchestrator) handlePlaybackEnded(epoch uint64, err error) {
	if epoch != o.playbackEpoch {
		return
	}
	o.resetPlayback()

	if err != nil {
		var decodeErr *playback.DecodeError
		if errors.As(err, &decodeErr) {
			o.logger.Warn("dropping undecodable audio payload", "error", err)
			o.emitEvent(events.NewWarning(err))
		} else {
			o.logger.Error("playback failed", "error", err)
			o.fail(err)
		}
	}
	o.emitEvent(events.NewPlaybackEnded(err != nil))
	o.playNext()
}

// stopPlayback interrupts the active payload and waits for the device to be
// released.
func (o *Orchestrator) stopPlayback() {
	if o.playbackState != Playing {
		return
	}
	o.resetPlayback()
	if err := o.player.Stop(); err != nil {
		o.logger.Warn("failed to stop playback", "error", err)
	}
	o.emitEvent(events.NewPlaybackEnded(true))
}

func (o *Orchestrator) resetPlayback() {
	o.playbackEpoch++
	if o.cancelPlayback != nil {
		o.cancelPlayback()
		o.cancelPlayback = nil
	}
	o.playbackState = PlaybackIdle
	if o.state == StatePlaying {
		o.setState(StateIdle)
	}
}
