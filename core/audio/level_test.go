package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func linear16(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	return buf
}

func TestLevelOfSilenceIsZero(t *testing.T) {
	if got := Level(linear16(0, 0, 0, 0), GetDefaultEncodingInfo()); got != 0 {
		t.Fatalf("expected 0, got %f", got)
	}
}

func TestLevelOfFullScaleSquareIsOne(t *testing.T) {
	got := Level(linear16(math.MinInt16, math.MinInt16, math.MinInt16), GetDefaultEncodingInfo())
	if got != 1 {
		t.Fatalf("expected 1, got %f", got)
	}
}

func TestLevelStaysWithinUnitRange(t *testing.T) {
	got := Level(linear16(16384, -16384, 16384, -16384), GetDefaultEncodingInfo())
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected 0.5, got %f", got)
	}
}

func TestLevelIgnoresNonLinearFormats(t *testing.T) {
	info := EncodingInfo{SampleRate: 8000, Format: EncodingALaw}
	if got := Level([]byte{0x10, 0x20}, info); got != 0 {
		t.Fatalf("expected 0 for alaw, got %f", got)
	}
}
