package commands

import (
	"fmt"

	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/audio/miniaudio"
	"github.com/koscakluka/ema-voice/core/audio/portaudio"
	"github.com/koscakluka/ema-voice/internal/config"
)

type devices struct {
	capture  orchestration.CaptureDevice
	playback orchestration.PlaybackDevice
	close    func()
}

func openDevices(cfg config.Config) (*devices, error) {
	encoding := cfg.Orchestration().EncodingInfo()

	switch cfg.Backend {
	case config.BackendMiniaudio:
		client, err := miniaudio.NewClient(
			miniaudio.WithCaptureEncoding(encoding),
			miniaudio.WithPlaybackEncoding(encoding),
		)
		if err != nil {
			return nil, fmt.Errorf("open miniaudio devices: %w", err)
		}
		return &devices{capture: client.Capture(), playback: client.Playback(), close: client.Close}, nil
	case config.BackendPortaudio:
		client, err := portaudio.NewClient(cfg.BufferSize, encoding)
		if err != nil {
			return nil, fmt.Errorf("open portaudio devices: %w", err)
		}
		return &devices{capture: client, playback: client, close: client.Close}, nil
	default:
		return nil, fmt.Errorf("%w %q", config.ErrUnknownBackend, cfg.Backend)
	}
}
