package playback

import (
	"bytes"
	"fmt"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	"github.com/koscakluka/ema-voice/core/audio"
)

// DecodeError reports a payload that could not be turned into playable PCM.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to decode %s payload", e.Format)
	}
	return fmt.Sprintf("failed to decode %s payload: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

const (
	formatWAV = "wav"
	formatMP3 = "mp3"
	formatPCM = "pcm"
)

func detectFormat(payload []byte) string {
	switch {
	case len(payload) >= 12 && string(payload[:4]) == "RIFF" && string(payload[8:12]) == "WAVE":
		return formatWAV
	case len(payload) >= 3 && string(payload[:3]) == "ID3":
		return formatMP3
	case len(payload) >= 2 && payload[0] == 0xFF && payload[1]&0xE0 == 0xE0:
		return formatMP3
	default:
		return formatPCM
	}
}

// Decode converts a self-contained WAV or MP3 payload into PCM in the target
// encoding. Anything else is taken as PCM already in the target encoding.
func Decode(payload []byte, target audio.EncodingInfo) ([]byte, error) {
	format := detectFormat(payload)
	if len(payload) == 0 {
		return nil, &DecodeError{Format: format, Err: io.ErrUnexpectedEOF}
	}

	var (
		streamer beep.StreamSeekCloser
		source   beep.Format
		err      error
	)
	switch format {
	case formatWAV:
		streamer, source, err = wav.Decode(bytes.NewReader(payload))
	case formatMP3:
		streamer, source, err = mp3.Decode(io.NopCloser(bytes.NewReader(payload)))
	default:
		frameSize := target.BytesPerFrame()
		if frameSize <= 0 || len(payload)%frameSize != 0 {
			return nil, &DecodeError{Format: format, Err: fmt.Errorf("%d bytes is not a whole number of %d byte frames", len(payload), frameSize)}
		}
		return append([]byte(nil), payload...), nil
	}
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	defer streamer.Close()

	pcm, err := audio.Render(streamer, source, target)
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	if len(pcm) == 0 {
		return nil, &DecodeError{Format: format, Err: io.ErrUnexpectedEOF}
	}
	return pcm, nil
}
