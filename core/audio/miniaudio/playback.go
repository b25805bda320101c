package miniaudio

import (
	"context"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

// PlaybackDevice plays queued PCM through a malgo playback device and fires
// marks once the audio queued before them has been handed to the device.
type PlaybackDevice struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig
	encodingInfo audio.EncodingInfo

	leftoverAudio []byte
	marks         []playbackMark

	mu      sync.Mutex
	audioMu sync.Mutex
}

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

func (c *PlaybackDevice) init(audioContext *malgo.AllocatedContext, info audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	config, err := deviceConfig(malgo.Playback, info)
	if err != nil {
		return audio.NewDeviceError("playback", "configure", err)
	}

	c.config = config
	c.encodingInfo = info
	c.audioContext = audioContext

	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(info.BytesPerFrame())},
	); err != nil {
		return audio.NewDeviceError("playback", "init", err)
	}

	return nil
}

func (c *PlaybackDevice) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo
}

func (c *PlaybackDevice) StartPlayback(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return audio.NewDeviceError("playback", "start", audio.ErrDeviceNotInitialized)
	} else if c.device.IsStarted() {
		return nil
	}

	if err := c.device.Start(); err != nil {
		return audio.NewDeviceError("playback", "start", err)
	}

	return nil
}

func (c *PlaybackDevice) StopPlayback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return audio.NewDeviceError("playback", "stop", audio.ErrDeviceNotInitialized)
	}

	c.ClearBuffer()
	if !c.device.IsStarted() {
		return nil
	}

	if err := c.device.Stop(); err != nil {
		return audio.NewDeviceError("playback", "stop", err)
	}

	return nil
}

func (c *PlaybackDevice) SendAudio(pcm []byte) error {
	c.mu.Lock()
	started := c.device != nil && c.device.IsStarted()
	c.mu.Unlock()
	if !started {
		return audio.NewDeviceError("playback", "write", audio.ErrDeviceNotInitialized)
	}

	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = append(c.leftoverAudio, pcm...)
	return nil
}

// ClearBuffer drops queued audio together with any marks that have not fired.
func (c *PlaybackDevice) ClearBuffer() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = nil
	c.marks = nil
}

// Mark registers callback to run once every byte queued so far was played.
func (c *PlaybackDevice) Mark(mark string, callback func(string)) error {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.marks = append(c.marks, playbackMark{
		name:     mark,
		position: len(c.leftoverAudio),
		callback: callback,
	})
	return nil
}

func (c *PlaybackDevice) uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}

	c.device.Uninit()
	c.device = nil
	return nil
}

func (c *PlaybackDevice) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := min(int(frameCount)*bytesPerFrame, len(pOutput))

		c.audioMu.Lock()
		played := copy(pOutput[:need], c.leftoverAudio)
		c.leftoverAudio = c.leftoverAudio[played:]
		passed := c.advanceMarks(played)
		c.audioMu.Unlock()

		if len(passed) > 0 {
			go func() {
				for _, mark := range passed {
					mark.callback(mark.name)
				}
			}()
		}
	}
}

// advanceMarks must be called with audioMu held.
func (c *PlaybackDevice) advanceMarks(played int) []playbackMark {
	passedMarks := 0
	for i := range c.marks {
		if c.marks[i].position <= played {
			passedMarks++
			continue
		}
		c.marks[i].position -= played
	}
	if passedMarks == 0 {
		return nil
	}

	passed := c.marks[:passedMarks]
	c.marks = c.marks[passedMarks:]
	return passed
}
