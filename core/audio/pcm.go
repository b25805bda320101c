package audio

import (
	"fmt"

	"github.com/faiface/beep"
)

const resampleQuality = 4

// BeepFormat maps a linear16 encoding onto the equivalent beep format.
func BeepFormat(info EncodingInfo) beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(info.SampleRate),
		NumChannels: info.ChannelCount(),
		Precision:   2,
	}
}

// NewPCMStreamer streams a linear16 buffer as beep samples. A trailing
// partial frame is ignored.
func NewPCMStreamer(pcm []byte, info EncodingInfo) beep.Streamer {
	format := BeepFormat(info)
	width := format.Width()
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		for i := range samples {
			if len(pcm) < width {
				return i, i > 0
			}
			samples[i], _ = format.DecodeSigned(pcm[:width])
			pcm = pcm[width:]
		}
		return len(samples), true
	})
}

// Render drains s, resampling it to the target rate when needed, and encodes
// the result as linear16 in the target channel layout.
func Render(s beep.Streamer, from beep.Format, target EncodingInfo) ([]byte, error) {
	if target.Format != EncodingLinear16 {
		return nil, fmt.Errorf("unsupported target format %q", target.Format.Name())
	}

	to := BeepFormat(target)
	if from.SampleRate != to.SampleRate {
		s = beep.Resample(resampleQuality, from.SampleRate, to.SampleRate, s)
	}

	var (
		out     []byte
		samples = make([][2]float64, 512)
		frame   = make([]byte, to.Width())
	)
	for {
		n, ok := s.Stream(samples)
		for _, sample := range samples[:n] {
			to.EncodeSigned(frame, sample)
			out = append(out, frame...)
		}
		if !ok {
			break
		}
	}

	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("failed to render audio: %w", err)
	}

	return out, nil
}
