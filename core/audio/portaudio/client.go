package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-voice/core/audio"
)

// Client opens blocking PortAudio streams on the default input and output
// devices. Capture runs a read loop, playback a write loop fed from a
// buffer.
type Client struct {
	encodingInfo audio.EncodingInfo
	bufferSize   int

	input *portaudio.Stream
	in    []int16

	output *portaudio.Stream
	out    []int16

	captureMu     sync.Mutex
	stopCapture   context.CancelFunc
	captureDone   chan struct{}
	onFailure     func(error)
	playbackMu    sync.Mutex
	stopPlayback  context.CancelFunc
	playbackDone  chan struct{}
	leftoverAudio []byte
	marks         []playbackMark
	audioMu       sync.Mutex
	audioReady    chan struct{}
}

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

// NewClient initializes PortAudio with bufferSize frames per read and write.
func NewClient(bufferSize int, info audio.EncodingInfo) (*Client, error) {
	if info.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("unsupported format %q", info.Format.Name())
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, audio.NewDeviceError("audio", "init", err)
	}

	channels := info.ChannelCount()
	in := make([]int16, bufferSize*channels)
	input, err := portaudio.OpenDefaultStream(channels, 0, float64(info.SampleRate), bufferSize, in)
	if err != nil {
		portaudio.Terminate()
		return nil, audio.NewDeviceError("capture", "open", err)
	}

	out := make([]int16, bufferSize*channels)
	output, err := portaudio.OpenDefaultStream(0, channels, float64(info.SampleRate), bufferSize, out)
	if err != nil {
		input.Close()
		portaudio.Terminate()
		return nil, audio.NewDeviceError("playback", "open", err)
	}

	return &Client{
		encodingInfo: info,
		bufferSize:   bufferSize,
		input:        input,
		in:           in,
		output:       output,
		out:          out,
		audioReady:   make(chan struct{}, 1),
	}, nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo
}

func (c *Client) OnFailure(callback func(error)) {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	c.onFailure = callback
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	if c.stopCapture != nil {
		return audio.NewDeviceError("capture", "start", audio.ErrDeviceBusy)
	}

	if err := c.input.Start(); err != nil {
		return audio.NewDeviceError("capture", "start", err)
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.stopCapture = cancel
	c.captureDone = make(chan struct{})
	go c.readLoop(ctx, c.captureDone, onAudio)
	return nil
}

func (c *Client) readLoop(ctx context.Context, done chan struct{}, onAudio func(audio []byte)) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.input.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				logger.Warn("input overflowed, dropping frames")
				continue
			}
			if ctx.Err() != nil {
				return
			}

			c.captureMu.Lock()
			onFailure := c.onFailure
			c.captureMu.Unlock()
			if onFailure != nil {
				go onFailure(audio.NewDeviceError("capture", "read", err))
			}
			return
		}

		audioBuffer := bytes.Buffer{}
		_ = binary.Write(&audioBuffer, binary.LittleEndian, c.in)
		onAudio(audioBuffer.Bytes())
	}
}

func (c *Client) StopCapture() error {
	c.captureMu.Lock()
	cancel, done := c.stopCapture, c.captureDone
	c.stopCapture, c.captureDone = nil, nil
	c.captureMu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	<-done
	if err := c.input.Stop(); err != nil {
		return audio.NewDeviceError("capture", "stop", err)
	}
	return nil
}

func (c *Client) StartPlayback(ctx context.Context) error {
	c.playbackMu.Lock()
	defer c.playbackMu.Unlock()
	if c.stopPlayback != nil {
		return nil
	}

	if err := c.output.Start(); err != nil {
		return audio.NewDeviceError("playback", "start", err)
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.stopPlayback = cancel
	c.playbackDone = make(chan struct{})
	go c.writeLoop(ctx, c.playbackDone)
	return nil
}

func (c *Client) writeLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	chunkSize := len(c.out) * 2
	for {
		c.audioMu.Lock()
		chunk := c.leftoverAudio[:min(chunkSize, len(c.leftoverAudio))]
		c.leftoverAudio = c.leftoverAudio[len(chunk):]
		passed := c.advanceMarks(len(chunk))
		c.audioMu.Unlock()

		for _, mark := range passed {
			go mark.callback(mark.name)
		}

		if len(chunk) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-c.audioReady:
				continue
			}
		}

		clear(c.out)
		_ = binary.Read(bytes.NewReader(chunk), binary.LittleEndian, c.out[:len(chunk)/2])
		if err := c.output.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			logger.Warn("failed to write to output stream", "error", err)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Client) StopPlayback() error {
	c.playbackMu.Lock()
	cancel, done := c.stopPlayback, c.playbackDone
	c.stopPlayback, c.playbackDone = nil, nil
	c.playbackMu.Unlock()

	c.ClearBuffer()
	if cancel == nil {
		return nil
	}

	cancel()
	<-done
	if err := c.output.Stop(); err != nil {
		return audio.NewDeviceError("playback", "stop", err)
	}
	return nil
}

func (c *Client) SendAudio(pcm []byte) error {
	c.playbackMu.Lock()
	started := c.stopPlayback != nil
	c.playbackMu.Unlock()
	if !started {
		return audio.NewDeviceError("playback", "write", audio.ErrDeviceNotInitialized)
	}

	c.audioMu.Lock()
	c.leftoverAudio = append(c.leftoverAudio, pcm...)
	c.audioMu.Unlock()
	c.signalAudio()
	return nil
}

func (c *Client) ClearBuffer() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.leftoverAudio = nil
	c.marks = nil
}

func (c *Client) Mark(mark string, callback func(string)) error {
	c.audioMu.Lock()
	c.marks = append(c.marks, playbackMark{
		name:     mark,
		position: len(c.leftoverAudio),
		callback: callback,
	})
	c.audioMu.Unlock()
	c.signalAudio()
	return nil
}

func (c *Client) signalAudio() {
	select {
	case c.audioReady <- struct{}{}:
	default:
	}
}

// advanceMarks must be called with audioMu held.
func (c *Client) advanceMarks(played int) []playbackMark {
	passedMarks := 0
	for i := range c.marks {
		if c.marks[i].position <= played {
			passedMarks++
			continue
		}
		c.marks[i].position -= played
	}

	passed := c.marks[:passedMarks]
	c.marks = c.marks[passedMarks:]
	return passed
}

func (c *Client) Close() {
	_ = c.StopCapture()
	_ = c.StopPlayback()
	c.input.Close()
	c.output.Close()
	portaudio.Terminate()
}
