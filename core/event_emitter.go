package orchestration

import (
	events "github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/transport"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

type eventCallbacks struct {
	onEvent               func(events.Event)
	onStateChanged        func(from, to State)
	onConnectionState     func(transport.State, error)
	onConnectionFailed    func(error)
	onRecordingStopped    func(locator string, reason events.StopReason)
	onAppointmentCreated  func(transport.Appointment)
	onAvailabilityChecked func(text string)
	onServiceError        func(text string)
	onError               func(error)
}

func (c eventCallbacks) isEmpty() bool {
	return c.onEvent == nil &&
		c.onStateChanged == nil &&
		c.onConnectionState == nil &&
		c.onConnectionFailed == nil &&
		c.onRecordingStopped == nil &&
		c.onAppointmentCreated == nil &&
		c.onAvailabilityChecked == nil &&
		c.onServiceError == nil &&
		c.onError == nil
}

func newCallbackEventEmitter(callbacks eventCallbacks) eventEmitter {
	if callbacks.isEmpty() {
		return noopEventEmitter
	}

	return func(event events.Event) {
		if callbacks.onEvent != nil {
			callbacks.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.StateChanged:
			if callbacks.onStateChanged != nil {
				callbacks.onStateChanged(parseState(typedEvent.From), parseState(typedEvent.To))
			}
		case events.ConnectionStateChanged:
			if callbacks.onConnectionState != nil {
				callbacks.onConnectionState(typedEvent.State, typedEvent.Err)
			}
		case events.ConnectionFailed:
			if callbacks.onConnectionFailed != nil {
				callbacks.onConnectionFailed(typedEvent.Err)
			}
		case events.RecordingStopped:
			if callbacks.onRecordingStopped != nil {
				callbacks.onRecordingStopped(typedEvent.Locator, typedEvent.Reason)
			}
		case events.AppointmentCreated:
			if callbacks.onAppointmentCreated != nil {
				callbacks.onAppointmentCreated(typedEvent.Appointment)
			}
		case events.AvailabilityChecked:
			if callbacks.onAvailabilityChecked != nil {
				callbacks.onAvailabilityChecked(typedEvent.Text)
			}
		case events.ServiceError:
			if callbacks.onServiceError != nil {
				callbacks.onServiceError(typedEvent.Text)
			}
		case events.Error:
			if callbacks.onError != nil {
				callbacks.onError(typedEvent.Err)
			}
		}
	}
}

func parseState(name string) State {
	for state := StateUninitialized; state <= StatePlaying; state++ {
		if state.String() == name {
			return state
		}
	}
	return StateUninitialized
}
