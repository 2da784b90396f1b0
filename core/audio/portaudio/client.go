//go:build cgo

// Package portaudio backs the audio pipeline with a PortAudio duplex
// stream. Simpler than the miniaudio backend but it polls capture on the
// caller's goroutine.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/otolabs/oto-core/core/audio"
)

type Client struct {
	bufferSize int
	stream     *portaudio.Stream
	encoding   audio.EncodingInfo

	mu       sync.Mutex
	queued   []byte
	capture  context.CancelFunc
	captured sync.WaitGroup

	in  []int16
	out []int16
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, &audio.CaptureError{Device: "portaudio", Err: err}
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		encoding:   audio.GetDefaultEncodingInfo(),
		in:         in,
		out:        out,
	}, nil
}

// StartCapture drives the blocking read loop on its own goroutine and emits
// one frame per buffer until the context is cancelled or StopCapture runs.
func (c *Client) StartCapture(ctx context.Context, onFrame func(frame []byte)) error {
	c.mu.Lock()
	if c.capture != nil {
		c.mu.Unlock()
		return nil
	}
	if err := c.stream.Start(); err != nil {
		c.mu.Unlock()
		return &audio.CaptureError{Device: "portaudio", Err: err}
	}
	ctx, cancel := context.WithCancel(ctx)
	c.capture = cancel
	c.captured.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.captured.Done()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := c.stream.Read(); err != nil {
				continue
			}
			buffer := bytes.Buffer{}
			_ = binary.Write(&buffer, binary.LittleEndian, c.in)
			onFrame(buffer.Bytes())
		}
	}()
	return nil
}

func (c *Client) StopCapture() error {
	c.mu.Lock()
	cancel := c.capture
	c.capture = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	c.captured.Wait()
	return nil
}

func (c *Client) StartPlayback(context.Context) error {
	// The duplex stream starts with capture; nothing extra to do.
	return nil
}

func (c *Client) StopPlayback() error {
	c.ClearBuffer()
	return nil
}

// Play writes whole buffers to the stream and carries the remainder to the
// next call.
func (c *Client) Play(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bufferSize := c.bufferSize * 2
	queued := append(c.queued, frame...)
	for len(queued) >= bufferSize {
		if err := binary.Read(bytes.NewBuffer(queued[:bufferSize]), binary.LittleEndian, c.out); err != nil {
			return fmt.Errorf("failed to stage playback buffer: %w", err)
		}
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write playback buffer: %w", err)
		}
		queued = queued[bufferSize:]
	}
	c.queued = append([]byte(nil), queued...)
	return nil
}

func (c *Client) ClearBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queued = nil
}

func (c *Client) Close() error {
	_ = c.StopCapture()
	err := c.stream.Close()
	if terminateErr := portaudio.Terminate(); err == nil {
		err = terminateErr
	}
	return err
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}
