package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/otolabs/oto-core/core/audio"
)

// audioInput wraps the configured capture device so the client can meter,
// caption, and transmit every frame through a single tap.
type audioInput struct {
	mu     sync.Mutex
	device audio.InputDevice
	meter  *audio.Meter

	capturing atomic.Bool

	// onFrame receives every captured frame, already metered.
	onFrame func(frame []byte)
}

func newAudioInput(onFrame func(frame []byte)) *audioInput {
	if onFrame == nil {
		onFrame = func([]byte) {}
	}
	return &audioInput{
		meter:   audio.NewMeter(audio.GetDefaultEncodingInfo()),
		onFrame: onFrame,
	}
}

func (a *audioInput) Set(device audio.InputDevice) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.device = device
	if device != nil {
		a.meter = audio.NewMeter(device.EncodingInfo())
	}
}

func (a *audioInput) IsConfigured() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.device != nil
}

func (a *audioInput) IsCapturing() bool {
	return a.capturing.Load()
}

// Level reports the instantaneous level of the most recent captured frame.
func (a *audioInput) Level() float64 {
	return a.meter.Value()
}

func (a *audioInput) Encoding() audio.EncodingInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.device == nil {
		return audio.GetDefaultEncodingInfo()
	}
	return a.device.EncodingInfo()
}

func (a *audioInput) Start(ctx context.Context) error {
	a.mu.Lock()
	device := a.device
	a.mu.Unlock()

	if device == nil {
		return &audio.CaptureError{Device: "none", Err: errNoInputDevice}
	}
	if a.capturing.Load() {
		return nil
	}

	if err := device.StartCapture(ctx, func(frame []byte) {
		a.meter.Update(frame)
		a.onFrame(frame)
	}); err != nil {
		return err
	}
	a.capturing.Store(true)
	return nil
}

func (a *audioInput) Stop() error {
	a.mu.Lock()
	device := a.device
	a.mu.Unlock()

	if device == nil || !a.capturing.Load() {
		return nil
	}
	err := device.StopCapture()
	a.capturing.Store(false)
	a.meter.Reset()
	return err
}
