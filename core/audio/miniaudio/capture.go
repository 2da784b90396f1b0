//go:build cgo

package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/otolabs/oto-core/core/audio"
)

// chunkIntervalMs fixes the cadence of outbound frames.
const chunkIntervalMs = 20

type captureClient struct {
	device *malgo.Device
	config malgo.DeviceConfig

	onFrame func(frame []byte)

	mu sync.Mutex
}

func (c *captureClient) Init(audioContext *malgo.AllocatedContext, encoding audio.EncodingInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	format := malgo.FormatS16
	channels := encoding.Channels
	if channels == 0 {
		channels = 1
	}
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Capture)
	c.config.SampleRate = uint32(encoding.SampleRate)
	c.config.Capture.Format = format
	c.config.Capture.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PerformanceProfile = malgo.LowLatency
	c.config.PeriodSizeInFrames = uint32(encoding.SampleRate * chunkIntervalMs / 1000)
	c.config.Periods = 3

	var err error
	c.device, err = malgo.InitDevice(audioContext.Context, c.config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			if c.onFrame != nil {
				c.onFrame(pInput[:n])
			}
		},
	})
	if err != nil {
		return &audio.CaptureError{Device: "miniaudio", Err: err}
	}

	return nil
}

func (c *captureClient) Start(onFrame func(frame []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return &audio.CaptureError{Device: "miniaudio", Err: fmt.Errorf("device not initialized")}
	} else if c.device.IsStarted() {
		return nil
	}

	c.onFrame = onFrame
	if err := c.device.Start(); err != nil {
		c.onFrame = nil
		return &audio.CaptureError{Device: "miniaudio", Err: err}
	}
	return nil
}

func (c *captureClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		return nil
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}

	c.onFrame = nil
	return nil
}

func (c *captureClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.onFrame = nil
	return nil
}
