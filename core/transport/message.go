package transport

import (
	"encoding/base64"
	"encoding/json"

	"github.com/gorilla/websocket"
)

// Kind identifies a decoded inbound message variant.
type Kind string

const (
	// KindAny registers a wildcard observer that sees every message.
	KindAny Kind = "*"

	KindAppointmentCreated  Kind = "appointment_created"
	KindAvailabilityChecked Kind = "availability_checked"
	KindServiceError        Kind = "error"
	KindAudioPayload        Kind = "audio"
	KindOther               Kind = "other"
)

// Message is an inbound message decoded once at the transport boundary.
type Message interface {
	Kind() Kind
}

// Appointment is the booking the service reports after creating it.
type Appointment struct {
	Service    string `json:"service" jsonschema:"description=Booked service name"`
	Date       string `json:"date" jsonschema:"description=Appointment date as sent by the service"`
	Time       string `json:"time" jsonschema:"description=Appointment time as sent by the service"`
	ClientName string `json:"client_name" jsonschema:"description=Name the appointment was booked under"`
}

type AppointmentCreated struct {
	Appointment Appointment
	Text        string
}

func (AppointmentCreated) Kind() Kind { return KindAppointmentCreated }

type AvailabilityChecked struct {
	Text string
}

func (AvailabilityChecked) Kind() Kind { return KindAvailabilityChecked }

type ServiceError struct {
	Text string
}

func (ServiceError) Kind() Kind { return KindServiceError }

// AudioPayload is a self-contained audio response ready for playback.
type AudioPayload struct {
	Audio []byte
}

func (AudioPayload) Kind() Kind { return KindAudioPayload }

// Other carries any action the client has no dedicated variant for.
type Other struct {
	Action string
	Raw    json.RawMessage
}

func (Other) Kind() Kind { return KindOther }

// Envelope is the JSON text frame sent by the voice service.
type Envelope struct {
	Action  string          `json:"action"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Audio   string          `json:"audio,omitempty"`
}

// Decode turns one websocket frame into the messages it carries. A text
// envelope yields its action variant followed by an AudioPayload when it
// embeds audio. A binary frame is an AudioPayload.
func Decode(messageType int, frame []byte) ([]Message, error) {
	switch messageType {
	case websocket.BinaryMessage:
		if len(frame) == 0 {
			return nil, &DecodeError{Reason: "empty binary frame"}
		}
		audio := make([]byte, len(frame))
		copy(audio, frame)
		return []Message{AudioPayload{Audio: audio}}, nil
	case websocket.TextMessage:
		return decodeEnvelope(frame)
	default:
		return nil, &DecodeError{Reason: "unsupported frame type", Frame: frame}
	}
}

func decodeEnvelope(frame []byte) ([]Message, error) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return nil, &DecodeError{Reason: "invalid json", Frame: frame, Err: err}
	}
	if envelope.Action == "" {
		return nil, &DecodeError{Reason: "missing action", Frame: frame}
	}

	var messages []Message
	switch Kind(envelope.Action) {
	case KindAppointmentCreated:
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return nil, &DecodeError{Reason: "appointment_created without data", Frame: frame}
		}
		var appointment Appointment
		if err := json.Unmarshal(envelope.Data, &appointment); err != nil {
			return nil, &DecodeError{Reason: "invalid appointment data", Frame: frame, Err: err}
		}
		messages = append(messages, AppointmentCreated{Appointment: appointment, Text: envelope.Message})
	case KindAvailabilityChecked:
		messages = append(messages, AvailabilityChecked{Text: envelope.Message})
	case KindServiceError:
		messages = append(messages, ServiceError{Text: envelope.Message})
	case KindAudioPayload:
		// bare audio envelope, handled below
	default:
		raw := make(json.RawMessage, len(frame))
		copy(raw, frame)
		messages = append(messages, Other{Action: envelope.Action, Raw: raw})
	}

	if envelope.Audio != "" {
		audio, err := base64.StdEncoding.DecodeString(envelope.Audio)
		if err != nil {
			return nil, &DecodeError{Reason: "invalid base64 audio", Frame: frame, Err: err}
		}
		messages = append(messages, AudioPayload{Audio: audio})
	} else if Kind(envelope.Action) == KindAudioPayload {
		return nil, &DecodeError{Reason: "audio envelope without audio", Frame: frame}
	}

	return messages, nil
}
