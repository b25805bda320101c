package events

import (
	"encoding/json"

	"github.com/koscakluka/ema-voice/core/transport"
)

const (
	KindAppointmentCreated  Kind = "service.appointment_created"
	KindAvailabilityChecked Kind = "service.availability_checked"
	KindServiceError        Kind = "service.error"
	KindMessageReceived     Kind = "service.message_received"
)

type AppointmentCreated struct {
	Base
	Appointment transport.Appointment
	Text        string
}

func NewAppointmentCreated(appointment transport.Appointment, text string) AppointmentCreated {
	return AppointmentCreated{Base: NewBase(KindAppointmentCreated), Appointment: appointment, Text: text}
}

type AvailabilityChecked struct {
	Base
	Text string
}

func NewAvailabilityChecked(text string) AvailabilityChecked {
	return AvailabilityChecked{Base: NewBase(KindAvailabilityChecked), Text: text}
}

type ServiceError struct {
	Base
	Text string
}

func NewServiceError(text string) ServiceError {
	return ServiceError{Base: NewBase(KindServiceError), Text: text}
}

// MessageReceived carries an action without a dedicated event, with the raw
// envelope.
type MessageReceived struct {
	Base
	Action string
	Raw    json.RawMessage
}

func NewMessageReceived(action string, raw json.RawMessage) MessageReceived {
	return MessageReceived{Base: NewBase(KindMessageReceived), Action: action, Raw: raw}
}
