package transport

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/gorilla/websocket"
)

func TestDecodeAppointmentCreated(t *testing.T) {
	messages, err := Decode(websocket.TextMessage, []byte(`{"action":"appointment_created","message":"Booked","data":{"service":"Haircut","date":"2024-05-01","time":"10:00","client_name":"Ana"}}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	created, ok := messages[0].(AppointmentCreated)
	if !ok {
		t.Fatalf("expected AppointmentCreated, got %T", messages[0])
	}
	if created.Appointment.Service != "Haircut" || created.Appointment.ClientName != "Ana" {
		t.Fatalf("expected decoded appointment, got %+v", created.Appointment)
	}
	if created.Text != "Booked" {
		t.Fatalf("expected message text, got %q", created.Text)
	}
}

func TestDecodeServiceErrorAndAvailability(t *testing.T) {
	messages, err := Decode(websocket.TextMessage, []byte(`{"action":"error","message":"slot taken"}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got, ok := messages[0].(ServiceError); !ok || got.Text != "slot taken" {
		t.Fatalf("expected ServiceError with text, got %#v", messages[0])
	}

	messages, err = Decode(websocket.TextMessage, []byte(`{"action":"availability_checked","message":"free at 3"}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got, ok := messages[0].(AvailabilityChecked); !ok || got.Text != "free at 3" {
		t.Fatalf("expected AvailabilityChecked with text, got %#v", messages[0])
	}
}

func TestDecodeEnvelopeWithAudioYieldsActionThenAudio(t *testing.T) {
	audio := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	messages, err := Decode(websocket.TextMessage, []byte(`{"action":"availability_checked","message":"ok","audio":"`+audio+`"}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Kind() != KindAvailabilityChecked || messages[1].Kind() != KindAudioPayload {
		t.Fatalf("expected availability then audio, got %s then %s", messages[0].Kind(), messages[1].Kind())
	}
	if payload := messages[1].(AudioPayload); string(payload.Audio) != string([]byte{1, 2, 3}) {
		t.Fatalf("expected decoded audio bytes, got %v", payload.Audio)
	}
}

func TestDecodeUnknownActionIsOther(t *testing.T) {
	frame := `{"action":"greeting","message":"hi"}`
	messages, err := Decode(websocket.TextMessage, []byte(frame))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	other, ok := messages[0].(Other)
	if !ok {
		t.Fatalf("expected Other, got %T", messages[0])
	}
	if other.Action != "greeting" || string(other.Raw) != frame {
		t.Fatalf("expected raw greeting envelope, got %+v", other)
	}
}

func TestDecodeBinaryFrameIsAudio(t *testing.T) {
	frame := []byte{9, 8, 7}
	messages, err := Decode(websocket.BinaryMessage, frame)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	payload := messages[0].(AudioPayload)
	frame[0] = 0
	if payload.Audio[0] != 9 {
		t.Fatalf("expected payload to own its bytes")
	}
}

func TestDecodeRejectsMalformedEnvelopes(t *testing.T) {
	testCases := []struct {
		name  string
		frame string
	}{
		{name: "invalid json", frame: `{"action":`},
		{name: "missing action", frame: `{"message":"hello"}`},
		{name: "appointment without data", frame: `{"action":"appointment_created"}`},
		{name: "bad base64", frame: `{"action":"audio","audio":"***"}`},
		{name: "audio without payload", frame: `{"action":"audio"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(websocket.TextMessage, []byte(tc.frame))
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
		})
	}
}

func TestEnvelopeSchemaDocumentsAction(t *testing.T) {
	schema := EnvelopeSchema()
	if _, ok := schema.Properties.Get("action"); !ok {
		t.Fatalf("expected action property in schema")
	}
	if _, ok := schema.Properties.Get("data"); !ok {
		t.Fatalf("expected data property in schema")
	}

	found := false
	for _, required := range schema.Required {
		if required == "action" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected action to be required, got %v", schema.Required)
	}
}
