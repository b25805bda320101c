package audio

import (
	"encoding/binary"
	"math"
)

// Level returns the RMS level of a linear16 buffer normalized to [0, 1].
// Other formats report 0.
func Level(pcm []byte, info EncodingInfo) float64 {
	if info.Format != EncodingLinear16 || len(pcm) < 2 {
		return 0
	}

	samples := len(pcm) / 2
	var sum float64
	for i := 0; i < samples; i++ {
		sample := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += sample * sample
	}

	return min(math.Sqrt(sum/float64(samples)), 1)
}
