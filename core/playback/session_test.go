package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-voice/core/audio"
)

// fakeSpeaker plays instantly: a mark fires as soon as it is placed unless
// the test holds marks back.
type fakeSpeaker struct {
	mu        sync.Mutex
	played    [][]byte
	marks     []func()
	holdMarks bool

	startCalls atomic.Int32
	stopCalls  atomic.Int32
	clears     atomic.Int32
}

func (s *fakeSpeaker) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: 8000, Channels: 1, Format: audio.EncodingLinear16}
}

func (s *fakeSpeaker) StartPlayback(context.Context) error {
	s.startCalls.Add(1)
	return nil
}

func (s *fakeSpeaker) StopPlayback() error {
	s.stopCalls.Add(1)
	s.ClearBuffer()
	return nil
}

func (s *fakeSpeaker) SendAudio(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, pcm)
	return nil
}

func (s *fakeSpeaker) ClearBuffer() {
	s.clears.Add(1)
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

func TestPlaySignalsCompletionOnce(t *testing.T) {
	speaker := &fakeSpeaker{}
	session := NewSession(speaker)

	var completions atomic.Int32
	done := make(chan struct{})
	err := session.Play(context.Background(), make([]byte, 64), func() {
		completions.Add(1)
		close(done)
	})
	if err != nil {
		t.Fatalf("expected play to succeed, got %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected completion")
	}
	time.Sleep(10 * time.Millisecond)
	if got := completions.Load(); got != 1 {
		t.Fatalf("expected exactly one completion, got %d", got)
	}
	if session.IsPlaying() {
		t.Fatalf("expected playback to be released after completion")
	}
	if got := speaker.stopCalls.Load(); got != 1 {
		t.Fatalf("expected device to be released once, got %d", got)
	}
}

func TestStopSuppressesCompletion(t *testing.T) {
	speaker := &fakeSpeaker{holdMarks: true}
	session := NewSession(speaker)

	completed := make(chan struct{}, 1)
	if err := session.Play(context.Background(), make([]byte, 64), func() { completed <- struct{}{} }); err != nil {
		t.Fatalf("expected play to succeed, got %v", err)
	}
	if !session.IsPlaying() {
		t.Fatalf("expected playback to be active")
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("expected second stop to succeed, got %v", err)
	}
	speaker.releaseMarks()

	select {
	case <-completed:
		t.Fatalf("expected interrupted playback not to complete")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestPlayReplacesActivePlayback(t *testing.T) {
	speaker := &fakeSpeaker{holdMarks: true}
	session := NewSession(speaker)

	var first, second atomic.Int32
	if err := session.Play(context.Background(), make([]byte, 64), func() { first.Add(1) }); err != nil {
		t.Fatalf("expected first play to succeed, got %v", err)
	}
	// the first mark is dropped when the buffer is cleared
	if err := session.Play(context.Background(), make([]byte, 32), func() { second.Add(1) }); err != nil {
		t.Fatalf("expected second play to succeed, got %v", err)
	}
	speaker.releaseMarks()

	deadline := time.Now().Add(time.Second)
	for second.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if first.Load() != 0 || second.Load() != 1 {
		t.Fatalf("expected only the replacement to complete, got first=%d second=%d", first.Load(), second.Load())
	}
}

func TestPlayRejectsUndecodablePayload(t *testing.T) {
	speaker := &fakeSpeaker{}
	session := NewSession(speaker)

	err := session.Play(context.Background(), []byte{1, 2, 3}, func() {
		t.Errorf("expected no completion for an undecodable payload")
	})
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if got := speaker.startCalls.Load(); got != 0 {
		t.Fatalf("expected device not to be started, got %d", got)
	}
}
