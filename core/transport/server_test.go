package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type receivedFrame struct {
	messageType int
	data        []byte
}

// voiceServer is an in-process stand-in for the voice service.
type voiceServer struct {
	*httptest.Server

	upgrader    websocket.Upgrader
	connections atomic.Int32
	reject      atomic.Int32 // HTTP status to answer handshakes with, 0 accepts

	mu     sync.Mutex
	conns  []*websocket.Conn
	frames []receivedFrame
	paths  []string
	authz  []string
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
	s.authz = append(s.authz, r.Header.Get("Authorization"))
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

// dropAll closes every accepted connection without a close handshake.
func (s *voiceServer) dropAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (s *voiceServer) send(t *testing.T, messageType int, data string) {
	t.Helper()
	conn := s.latest()
	if conn == nil {
		t.Fatalf("expected an accepted connection")
	}
	if err := conn.WriteMessage(messageType, []byte(data)); err != nil {
		t.Fatalf("expected server write to succeed, got %v", err)
	}
}

func (s *voiceServer) receivedFrames() []receivedFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]receivedFrame(nil), s.frames...)
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
