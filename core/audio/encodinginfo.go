package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		Format:     encodingFormat(DefaultFormat),
	}
}

// EncodingInfo describes interleaved PCM audio flowing between a device and
// the rest of the client.
type EncodingInfo struct {
	SampleRate int
	Channels   int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// ChannelCount treats an unset channel count as mono.
func (e EncodingInfo) ChannelCount() int {
	if e.Channels <= 0 {
		return 1
	}
	return e.Channels
}

// BytesPerFrame is the size of one sample across all channels.
func (e EncodingInfo) BytesPerFrame() int {
	size := e.Format.ByteSize()
	if size <= 0 {
		return 0
	}
	return size * e.ChannelCount()
}

// BitRate is the uncompressed bit rate of the stream in bits per second.
func (e EncodingInfo) BitRate() int {
	return e.SampleRate * e.BytesPerFrame() * 8
}

// BytesFor returns the whole-frame byte length of d worth of audio.
func (e EncodingInfo) BytesFor(d time.Duration) int {
	frames := int(int64(e.SampleRate) * int64(d) / int64(time.Second))
	return frames * e.BytesPerFrame()
}

// DurationOf returns how long n bytes of audio play for.
func (e EncodingInfo) DurationOf(n int) time.Duration {
	bytesPerSecond := e.SampleRate * e.BytesPerFrame()
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(bytesPerSecond))
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case encodingFormat("alaw"):
		return 0x55
	case encodingFormat("mulaw"):
		return 0xFF
	case encodingFormat("linear16"):
		return 0
	}

	return 0
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case encodingFormat("mulaw"), encodingFormat("alaw"):
		return 1
	case encodingFormat("linear16"):
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
