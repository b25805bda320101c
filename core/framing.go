package orchestration

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/capture"
)

// ChunkFramer turns a captured chunk into the binary frame sent to the voice
// service.
type ChunkFramer func(chunk capture.Chunk) []byte

const (
	chunkFrameVersion    = 1
	chunkFrameHeaderSize = 1 + 16 + 8
)

// HeaderChunkFramer prefixes the audio with a version byte, the 16 byte
// recording session id and the big-endian 64 bit sequence number.
func HeaderChunkFramer(chunk capture.Chunk) []byte {
	frame := make([]byte, 0, chunkFrameHeaderSize+len(chunk.Data))
	frame = append(frame, chunkFrameVersion)
	frame = append(frame, chunk.SessionID[:]...)
	frame = binary.BigEndian.AppendUint64(frame, chunk.Seq)
	return append(frame, chunk.Data...)
}

// RawChunkFramer sends the audio bytes as they are.
func RawChunkFramer(chunk capture.Chunk) []byte {
	return chunk.Data
}

// ParseChunkFrame reverses HeaderChunkFramer.
func ParseChunkFrame(frame []byte) (sessionID uuid.UUID, seq uint64, payload []byte, err error) {
	if len(frame) < chunkFrameHeaderSize {
		return uuid.Nil, 0, nil, fmt.Errorf("%w: %d byte frame is shorter than the header", ErrInvalidChunkFrame, len(frame))
	}
	if frame[0] != chunkFrameVersion {
		return uuid.Nil, 0, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, frame[0])
	}

	copy(sessionID[:], frame[1:17])
	seq = binary.BigEndian.Uint64(frame[17:chunkFrameHeaderSize])
	return sessionID, seq, frame[chunkFrameHeaderSize:], nil
}
