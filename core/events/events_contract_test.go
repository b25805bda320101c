package events

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/transport"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "state changed", event: NewStateChanged("idle", "recording"), expected: KindStateChanged},
		{name: "connection state changed", event: NewConnectionStateChanged(transport.State{Phase: transport.Connected}, nil), expected: KindConnectionStateChanged},
		{name: "connection failed", event: NewConnectionFailed(errors.New("x")), expected: KindConnectionFailed},
		{name: "recording started", event: NewRecordingStarted(uuid.New()), expected: KindRecordingStarted},
		{name: "recording stopped", event: NewRecordingStopped(uuid.New(), "", StopReasonUser), expected: KindRecordingStopped},
		{name: "audio level updated", event: NewAudioLevelUpdated(0.5), expected: KindAudioLevelUpdated},
		{name: "playback queued", event: NewPlaybackQueued(1), expected: KindPlaybackQueued},
		{name: "playback started", event: NewPlaybackStarted(0), expected: KindPlaybackStarted},
		{name: "playback ended", event: NewPlaybackEnded(false), expected: KindPlaybackEnded},
		{name: "appointment created", event: NewAppointmentCreated(transport.Appointment{}, ""), expected: KindAppointmentCreated},
		{name: "availability checked", event: NewAvailabilityChecked("free"), expected: KindAvailabilityChecked},
		{name: "service error", event: NewServiceError("boom"), expected: KindServiceError},
		{name: "message received", event: NewMessageReceived("greeting", nil), expected: KindMessageReceived},
		{name: "warning", event: NewWarning(errors.New("x")), expected: KindWarning},
		{name: "error", event: NewError(errors.New("x"), false), expected: KindError},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected a timestamp")
			}
		})
	}
}

func TestKindNamespace(t *testing.T) {
	if got := KindRecordingStopped.Namespace(); got != "recording" {
		t.Fatalf("expected recording namespace, got %q", got)
	}
	if got := Kind("plain").Namespace(); got != "plain" {
		t.Fatalf("expected kind without dot to be its own namespace, got %q", got)
	}
}

func TestDiscardedStopReasons(t *testing.T) {
	if StopReasonUser.Discarded() || StopReasonMaxDuration.Discarded() {
		t.Fatalf("expected user and max duration stops to keep the recording")
	}
	if !StopReasonConnectionLost.Discarded() {
		t.Fatalf("expected connection loss to discard the recording")
	}
}
