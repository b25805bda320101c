package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/capture"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/transport"
	"go.opentelemetry.io/otel/attribute"
)

// registerTransportHandlers must run inside a step. The transport clears its
// handlers on Disconnect, so every activation registers a fresh set.
func (o *Orchestrator) registerTransportHandlers(epoch uint64) {
	o.transport.OnStateChange(func(state transport.State, cause error) {
		o.step(func() { o.handleConnectionState(epoch, state, cause) })
	})
	o.transport.OnDecodeError(func(err error) {
		o.step(func() {
			if epoch != o.epoch {
				return
			}
			o.logger.Warn("dropping undecodable message", "error", err)
			o.emitEvent(events.NewWarning(err))
		})
	})

	o.transport.OnMessage(transport.KindAny, func(message transport.Message) {
		o.logger.Debug("message received", "kind", message.Kind())
	})
	forward := func(message transport.Message) {
		o.step(func() { o.handleMessage(epoch, message) })
	}
	for _, kind := range []transport.Kind{
		transport.KindAppointmentCreated,
		transport.KindAvailabilityChecked,
		transport.KindServiceError,
		transport.KindAudioPayload,
		transport.KindOther,
	} {
		o.transport.OnMessage(kind, forward)
	}
}

func (o *Orchestrator) runActivation(ctx context.Context, epoch uint64, identity transport.Identity) {
	ctx, span := tracer.Start(ctx, "activate")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", identity.UserID))

	err := o.requestPermission(ctx)
	if err == nil {
		err = o.transport.Connect(ctx, identity)
	}
	if err != nil {
		recordSpanError(span, err)
	}

	o.step(func() { o.handleActivation(epoch, err) })
}

func (o *Orchestrator) requestPermission(ctx context.Context) error {
	requester, ok := o.captureDevice.(capture.PermissionRequester)
	if !ok {
		return nil
	}
	if err := requester.RequestPermission(ctx); err != nil {
		if errors.Is(err, audio.ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("%w: %w", audio.ErrPermissionDenied, err)
	}
	return nil
}

func (o *Orchestrator) handleActivation(epoch uint64, err error) {
	if epoch != o.epoch || o.state != StateConnecting {
		return
	}
	if o.cancelActivation != nil {
		o.cancelActivation()
		o.cancelActivation = nil
	}

	if err != nil {
		o.logger.Error("activation failed", "error", err)
		o.teardown(err)
		o.emitEvent(events.NewConnectionFailed(err))
		return
	}

	o.connection = o.transport.State()
	o.logger.Info("voice service connected")
	o.setState(StateIdle)
	o.playNext()
}

func (o *Orchestrator) handleConnectionState(epoch uint64, state transport.State, cause error) {
	if epoch != o.epoch {
		return
	}
	o.connection = state
	o.emitEvent(events.NewConnectionStateChanged(state, cause))

	if o.state == StateConnecting || o.state == StateUninitialized {
		return
	}

	switch state.Phase {
	case transport.Reconnecting:
		if o.recording != RecordingIdle {
			o.logger.Warn("connection lost while recording", "error", cause)
			o.abortRecording(events.StopReasonConnectionLost)
			o.playNext()
		}
	case transport.Disconnected:
		if cause == nil {
			cause = ErrNotConnected
		}
		o.logger.Error("voice service connection failed", "error", cause)
		o.abortRecording(events.StopReasonConnectionLost)
		o.teardown(cause)
		o.emitEvent(events.NewConnectionFailed(cause))
	}
}
