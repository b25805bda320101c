package commands

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/transport"
)

type fakeController struct {
	toggles  int
	sent     []map[string]any
	snapshot orchestration.Snapshot
}

func (c *fakeController) ToggleRecording() error {
	c.toggles++
	return nil
}

func (c *fakeController) SendControlMessage(msg map[string]any) error {
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeController) Snapshot() orchestration.Snapshot {
	return c.snapshot
}

func TestHandleCommandDispatches(t *testing.T) {
	c := &fakeController{}
	var out bytes.Buffer

	if err := handleCommand("r", &out, c); err != nil || c.toggles != 1 {
		t.Fatalf("expected one toggle, got %d (%v)", c.toggles, err)
	}
	if err := handleCommand(`s {"action":"check_availability","date":"2026-10-20"}`, &out, c); err != nil {
		t.Fatalf("expected control message to be sent, got %v", err)
	}
	if len(c.sent) != 1 || c.sent[0]["action"] != "check_availability" {
		t.Fatalf("expected parsed control message, got %v", c.sent)
	}
	if err := handleCommand("s not-json", &out, c); err == nil {
		t.Fatalf("expected invalid json to be rejected")
	}
	if err := handleCommand("dance", &out, c); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if err := handleCommand("q", &out, c); !errors.Is(err, errQuit) {
		t.Fatalf("expected quit, got %v", err)
	}
}

func TestStatusPrintsSnapshot(t *testing.T) {
	c := &fakeController{snapshot: orchestration.Snapshot{
		State:      orchestration.StateIdle,
		Connection: transport.State{Phase: transport.Connected},
		Messages: []orchestration.LogEntry{{
			Kind:        transport.KindAppointmentCreated,
			Appointment: &transport.Appointment{Service: "haircut", Date: "2026-10-20", Time: "10:00", ClientName: "Ana"},
			ReceivedAt:  time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		}},
	}}
	var out bytes.Buffer

	if err := handleCommand("status", &out, c); err != nil {
		t.Fatalf("expected status to succeed, got %v", err)
	}
	if got := out.String(); !strings.Contains(got, "state: idle, connection: connected") || !strings.Contains(got, "haircut on 2026-10-20 at 10:00 for Ana") {
		t.Fatalf("expected state and appointment, got %q", got)
	}
}

func TestReadCommandsStopsAtQuitOrEOF(t *testing.T) {
	c := &fakeController{}
	var out bytes.Buffer

	if err := readCommands(context.Background(), strings.NewReader("r\nbogus\nq\nr\n"), &out, c); err != nil {
		t.Fatalf("expected clean exit, got %v", err)
	}
	if c.toggles != 1 {
		t.Fatalf("expected commands after quit to be ignored, got %d toggles", c.toggles)
	}
	if !strings.Contains(out.String(), `unknown command "bogus"`) {
		t.Fatalf("expected error for unknown command, got %q", out.String())
	}

	if err := readCommands(context.Background(), strings.NewReader("r\n"), &out, c); err != nil {
		t.Fatalf("expected EOF to end the loop, got %v", err)
	}
}

func TestSchemaCommandPrintsEnvelopeSchema(t *testing.T) {
	var out bytes.Buffer
	schemaCmd.SetOut(&out)
	if err := schemaCmd.RunE(schemaCmd, nil); err != nil {
		t.Fatalf("expected schema to render, got %v", err)
	}
	if !strings.Contains(out.String(), `"client_name"`) {
		t.Fatalf("expected appointment fields in schema, got %s", out.String())
	}
}
