package orchestration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/transport"
)

// fakeMicrophone delivers frames only when the test pushes them. It reports
// 1000 Hz linear16 mono, so a 10ms cadence cuts 20 byte chunks.
type fakeMicrophone struct {
	mu        sync.Mutex
	onAudio   func([]byte)
	onFailure func(error)
	permErr   error

	started    atomic.Bool
	startCalls atomic.Int32
	stopCalls  atomic.Int32
}

func (m *fakeMicrophone) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: 1000, Channels: 1, Format: audio.EncodingLinear16}
}

func (m *fakeMicrophone) StartCapture(_ context.Context, onAudio func([]byte)) error {
	m.startCalls.Add(1)
	if !m.started.CompareAndSwap(false, true) {
		return audio.NewDeviceError("capture", "start", audio.ErrDeviceBusy)
	}
	m.mu.Lock()
	m.onAudio = onAudio
	m.mu.Unlock()
	return nil
}

func (m *fakeMicrophone) StopCapture() error {
	m.stopCalls.Add(1)
	m.started.Store(false)
	m.mu.Lock()
	m.onAudio = nil
	m.mu.Unlock()
	return nil
}

func (m *fakeMicrophone) OnFailure(callback func(error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFailure = callback
}

func (m *fakeMicrophone) push(frame []byte) {
	m.mu.Lock()
	onAudio := m.onAudio
	m.mu.Unlock()
	if onAudio != nil {
		onAudio(frame)
	}
}

func (m *fakeMicrophone) breakDown(err error) {
	m.mu.Lock()
	onFailure := m.onFailure
	m.mu.Unlock()
	if onFailure != nil {
		onFailure(err)
	}
}

type permissionMicrophone struct {
	*fakeMicrophone
}

func (m permissionMicrophone) RequestPermission(context.Context) error {
	return m.permErr
}

// fakeSpeaker plays instantly unless the test holds marks back.
type fakeSpeaker struct {
	mu        sync.Mutex
	played    [][]byte
	marks     []func()
	holdMarks bool

	active    atomic.Bool
	stopCalls atomic.Int32
}

func (s *fakeSpeaker) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: 8000, Channels: 1, Format: audio.EncodingLinear16}
}

func (s *fakeSpeaker) StartPlayback(context.Context) error {
	s.active.Store(true)
	return nil
}

func (s *fakeSpeaker) StopPlayback() error {
	s.stopCalls.Add(1)
	s.active.Store(false)
	s.ClearBuffer()
	return nil
}

func (s *fakeSpeaker) SendAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, append([]byte(nil), pcm...))
	return nil
}

func (s *fakeSpeaker) ClearBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks = nil
}

func (s *fakeSpeaker) Mark(mark string, callback func(string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fire := func() { go callback(mark) }
	if s.holdMarks {
		s.marks = append(s.marks, fire)
		return nil
	}
	fire()
	return nil
}

func (s *fakeSpeaker) releaseMarks() {
	s.mu.Lock()
	marks := s.marks
	s.marks = nil
	s.mu.Unlock()
	for _, fire := range marks {
		fire()
	}
}

func (s *fakeSpeaker) heldMarks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.marks)
}

func (s *fakeSpeaker) playedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

type receivedFrame struct {
	messageType int
	data        []byte
}

// voiceServer is an in-process stand-in for the voice service.
type voiceServer struct {
	*httptest.Server

	upgrader    websocket.Upgrader
	connections atomic.Int32
	reject      atomic.Int32

	mu     sync.Mutex
	conns  []*websocket.Conn
	frames []receivedFrame
	paths  []string
}

func newVoiceServer(t *testing.T) *voiceServer {
	t.Helper()

	s := &voiceServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(func() {
		s.dropAll()
		s.Close()
	})
	return s
}

func (s *voiceServer) endpoint() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

func (s *voiceServer) handle(w http.ResponseWriter, r *http.Request) {
	if status := s.reject.Load(); status != 0 {
		http.Error(w, http.StatusText(int(status)), int(status))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.paths = append(s.paths, r.URL.RequestURI())
	s.mu.Unlock()
	s.connections.Add(1)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.frames = append(s.frames, receivedFrame{messageType: messageType, data: data})
		s.mu.Unlock()
	}
}

func (s *voiceServer) latest() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		return nil
	}
	return s.conns[len(s.conns)-1]
}

func (s *voiceServer) dropAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (s *voiceServer) send(t *testing.T, messageType int, data []byte) {
	t.Helper()
	conn := s.latest()
	if conn == nil {
		t.Fatalf("expected an accepted connection")
	}
	if err := conn.WriteMessage(messageType, data); err != nil {
		t.Fatalf("expected server write to succeed, got %v", err)
	}
}

func (s *voiceServer) sendText(t *testing.T, envelope string) {
	t.Helper()
	s.send(t, websocket.TextMessage, []byte(envelope))
}

func (s *voiceServer) receivedFrames() []receivedFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]receivedFrame(nil), s.frames...)
}

// eventRecorder collects every emitted event.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *eventRecorder) ofKind(kind events.Kind) []events.Event {
	var matched []events.Event
	for _, event := range r.all() {
		if event.Kind() == kind {
			matched = append(matched, event)
		}
	}
	return matched
}

func (r *eventRecorder) count(kind events.Kind) int {
	return len(r.ofKind(kind))
}

type testRig struct {
	orchestrator *Orchestrator
	server       *voiceServer
	mic          *fakeMicrophone
	speaker      *fakeSpeaker
	events       *eventRecorder
}

func newTestRig(t *testing.T, opts ...OrchestratorOption) *testRig {
	t.Helper()

	rig := &testRig{
		server:  newVoiceServer(t),
		mic:     &fakeMicrophone{},
		speaker: &fakeSpeaker{},
		events:  &eventRecorder{},
	}

	base := []OrchestratorOption{
		WithEndpoint(rig.server.endpoint()),
		WithChunkCadence(10 * time.Millisecond),
		WithReconnect(3, 10*time.Millisecond),
		WithLevelPollInterval(5 * time.Millisecond),
		WithoutRecordingFiles(),
		WithCaptureDevice(rig.mic),
		WithPlaybackDevice(rig.speaker),
		WithEventHandler(rig.events.record),
	}
	rig.orchestrator = NewOrchestrator(append(base, opts...)...)
	t.Cleanup(rig.orchestrator.Close)
	return rig
}

var testIdentity = transport.Identity{UserID: "user-1", Token: "secret"}

// activate connects the rig and waits until the orchestrator is idle.
func (r *testRig) activate(t *testing.T) {
	t.Helper()
	connections := r.server.connections.Load()
	if err := r.orchestrator.Activate(context.Background(), testIdentity); err != nil {
		t.Fatalf("expected activate to succeed, got %v", err)
	}
	r.waitForState(t, StateIdle)
	waitFor(t, "server connection", func() bool { return r.server.connections.Load() > connections })
}

func (r *testRig) waitForState(t *testing.T, state State) {
	t.Helper()
	waitFor(t, "state "+state.String(), func() bool {
		return r.orchestrator.Snapshot().State == state
	})
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
