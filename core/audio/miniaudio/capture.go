package miniaudio

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

// CaptureDevice streams microphone frames from a malgo capture device. The
// device can be owned by one consumer at a time.
type CaptureDevice struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig
	encodingInfo audio.EncodingInfo

	// Read from the audio thread, so it must never wait on mu.
	onAudio   atomic.Pointer[func(audio []byte)]
	onFailure atomic.Pointer[func(error)]
	stopping  atomic.Bool

	mu sync.Mutex
}

func (c *CaptureDevice) init(audioContext *malgo.AllocatedContext, info audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	config, err := deviceConfig(malgo.Capture, info)
	if err != nil {
		return audio.NewDeviceError("capture", "configure", err)
	}
	bytesPerFrame := info.BytesPerFrame()

	c.config = config
	c.encodingInfo = info
	c.audioContext = audioContext

	c.device, err = malgo.InitDevice(c.audioContext.Context, c.config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			if onAudio := c.onAudio.Load(); onAudio != nil {
				// pInput is reused by miniaudio once the callback returns
				frame := make([]byte, n)
				copy(frame, pInput[:n])
				(*onAudio)(frame)
			}
		},
		Stop: func() {
			if c.stopping.Load() {
				return
			}
			if onFailure := c.onFailure.Load(); onFailure != nil {
				(*onFailure)(audio.NewDeviceError("capture", "stream", audio.ErrDeviceStopped))
			}
		},
	})
	if err != nil {
		return audio.NewDeviceError("capture", "init", err)
	}

	return nil
}

func (c *CaptureDevice) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo
}

// OnFailure registers a callback for the device stopping on its own.
func (c *CaptureDevice) OnFailure(callback func(error)) {
	if callback == nil {
		c.onFailure.Store(nil)
		return
	}
	c.onFailure.Store(&callback)
}

func (c *CaptureDevice) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return audio.NewDeviceError("capture", "start", audio.ErrDeviceNotInitialized)
	} else if c.device.IsStarted() {
		return audio.NewDeviceError("capture", "start", audio.ErrDeviceBusy)
	}

	c.onAudio.Store(&onAudio)
	c.stopping.Store(false)
	if err := c.device.Start(); err != nil {
		c.onAudio.Store(nil)
		return audio.NewDeviceError("capture", "start", err)
	}

	return nil
}

func (c *CaptureDevice) StopCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return audio.NewDeviceError("capture", "stop", audio.ErrDeviceNotInitialized)
	}

	c.onAudio.Store(nil)
	if !c.device.IsStarted() {
		return nil
	}

	c.stopping.Store(true)
	if err := c.device.Stop(); err != nil {
		return audio.NewDeviceError("capture", "stop", err)
	}

	return nil
}

func (c *CaptureDevice) uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onAudio.Store(nil)
	if c.device != nil {
		c.stopping.Store(true)
		c.device.Uninit()
		c.device = nil
	}

	return nil
}
