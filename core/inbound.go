package orchestration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/transport"
)

// handleMessage must run inside a step.
func (o *Orchestrator) handleMessage(epoch uint64, message transport.Message) {
	if epoch != o.epoch {
		return
	}

	switch msg := message.(type) {
	case transport.AppointmentCreated:
		appointment := msg.Appointment
		o.appendLog(LogEntry{Kind: msg.Kind(), Text: msg.Text, Appointment: &appointment})
		o.emitEvent(events.NewAppointmentCreated(msg.Appointment, msg.Text))
	case transport.AvailabilityChecked:
		o.emitEvent(events.NewAvailabilityChecked(msg.Text))
	case transport.ServiceError:
		o.lastError = fmt.Errorf("voice service error: %s", msg.Text)
		o.appendLog(LogEntry{Kind: msg.Kind(), Text: msg.Text})
		o.emitEvent(events.NewServiceError(msg.Text))
	case transport.AudioPayload:
		o.enqueuePayload(msg.Audio)
	case transport.Other:
		o.emitEvent(events.NewMessageReceived(msg.Action, msg.Raw))
	default:
		o.logger.Warn("unhandled message", "kind", message.Kind())
	}
}

func (o *Orchestrator) appendLog(entry LogEntry) {
	entry.ID = uuid.NewString()
	entry.ReceivedAt = time.Now()
	o.messages = append(o.messages, entry)
}
