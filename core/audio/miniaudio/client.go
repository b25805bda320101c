package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

// Client owns a miniaudio context together with one capture and one playback
// device opened on it.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	capture  *CaptureDevice
	playback *PlaybackDevice
}

type Option func(*options)

type options struct {
	captureEncoding  audio.EncodingInfo
	playbackEncoding audio.EncodingInfo
}

// WithCaptureEncoding sets the microphone sample rate and channel count.
// Only linear16 is supported.
func WithCaptureEncoding(info audio.EncodingInfo) Option {
	return func(o *options) {
		o.captureEncoding = info
	}
}

// WithPlaybackEncoding sets the speaker sample rate and channel count.
func WithPlaybackEncoding(info audio.EncodingInfo) Option {
	return func(o *options) {
		o.playbackEncoding = info
	}
}

func NewClient(opts ...Option) (*Client, error) {
	o := options{
		captureEncoding:  audio.GetDefaultEncodingInfo(),
		playbackEncoding: audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, audio.NewDeviceError("audio", "init context", err)
	}

	client := Client{
		audioContext: audioCtx,
		capture:      &CaptureDevice{},
		playback:     &PlaybackDevice{},
	}

	if err := client.playback.init(audioCtx, o.playbackEncoding); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := client.capture.init(audioCtx, o.captureEncoding); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return &client, nil
}

func (c *Client) Capture() *CaptureDevice {
	return c.capture
}

func (c *Client) Playback() *PlaybackDevice {
	return c.playback
}

func (c *Client) Close() {
	_ = c.capture.uninit()
	_ = c.playback.uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

func deviceConfig(deviceType malgo.DeviceType, info audio.EncodingInfo) (malgo.DeviceConfig, error) {
	if info.Format != audio.EncodingLinear16 {
		return malgo.DeviceConfig{}, fmt.Errorf("unsupported format %q", info.Format.Name())
	}

	config := malgo.DefaultDeviceConfig(deviceType)
	config.SampleRate = uint32(info.SampleRate)
	config.Alsa.NoMMap = 1
	switch deviceType {
	case malgo.Capture:
		config.Capture.Format = malgo.FormatS16
		config.Capture.Channels = uint32(info.ChannelCount())
		config.PerformanceProfile = malgo.LowLatency
		config.PeriodSizeInFrames = uint32(info.SampleRate / 100) // 10ms periods
		config.Periods = 3
	case malgo.Playback:
		config.Playback.Format = malgo.FormatS16
		config.Playback.Channels = uint32(info.ChannelCount())
		config.PeriodSizeInFrames = uint32(info.SampleRate / 10) // ~100ms of audio
		config.Periods = 4
	}
	return config, nil
}
