package orchestration

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/capture"
)

func TestHeaderChunkFramerRoundTrip(t *testing.T) {
	chunk := capture.Chunk{SessionID: uuid.New(), Seq: 7, Data: []byte{1, 2, 3, 4}}

	frame := HeaderChunkFramer(chunk)
	if len(frame) != chunkFrameHeaderSize+len(chunk.Data) {
		t.Fatalf("expected %d byte frame, got %d", chunkFrameHeaderSize+len(chunk.Data), len(frame))
	}

	sessionID, seq, payload, err := ParseChunkFrame(frame)
	if err != nil {
		t.Fatalf("expected frame to parse, got %v", err)
	}
	if sessionID != chunk.SessionID || seq != 7 || !bytes.Equal(payload, chunk.Data) {
		t.Fatalf("expected %s/7/%v, got %s/%d/%v", chunk.SessionID, chunk.Data, sessionID, seq, payload)
	}
}

func TestHeaderChunkFramerKeepsFullSequence(t *testing.T) {
	previous := HeaderChunkFramer(capture.Chunk{SessionID: uuid.New(), Seq: math.MaxUint32})
	next := HeaderChunkFramer(capture.Chunk{SessionID: uuid.New(), Seq: math.MaxUint32 + 1})

	_, previousSeq, _, err := ParseChunkFrame(previous)
	if err != nil {
		t.Fatalf("expected frame to parse, got %v", err)
	}
	_, nextSeq, _, err := ParseChunkFrame(next)
	if err != nil {
		t.Fatalf("expected frame to parse, got %v", err)
	}
	if nextSeq != math.MaxUint32+1 || nextSeq <= previousSeq {
		t.Fatalf("expected sequence to keep increasing past 32 bits, got %d after %d", nextSeq, previousSeq)
	}
}

func TestParseChunkFrameRejectsBrokenFrames(t *testing.T) {
	if _, _, _, err := ParseChunkFrame(make([]byte, chunkFrameHeaderSize-1)); !errors.Is(err, ErrInvalidChunkFrame) {
		t.Fatalf("expected invalid frame error, got %v", err)
	}

	frame := HeaderChunkFramer(capture.Chunk{SessionID: uuid.New()})
	frame[0] = 9
	if _, _, _, err := ParseChunkFrame(frame); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected unsupported version error, got %v", err)
	}
}

func TestRawChunkFramerSendsAudioOnly(t *testing.T) {
	data := []byte{5, 6}
	if frame := RawChunkFramer(capture.Chunk{SessionID: uuid.New(), Data: data}); !bytes.Equal(frame, data) {
		t.Fatalf("expected raw audio, got %v", frame)
	}
}
