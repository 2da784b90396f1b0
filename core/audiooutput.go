package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/otolabs/oto-core/core/audio"
)

var (
	errNoInputDevice  = errors.New("no audio input device configured")
	errNoOutputDevice = errors.New("no audio output device configured")
)

// playbackQueueSize bounds how many inbound frames may wait for the device.
// At 20ms per frame this is several seconds of audio.
const playbackQueueSize = 256

// audioOutput decouples frame arrival from device playback: inbound frames
// are queued and drained on a dedicated goroutine so a slow decode never
// stalls the control-event path.
type audioOutput struct {
	mu     sync.Mutex
	device audio.OutputDevice
	meter  *audio.Meter

	frames chan []byte
	cancel context.CancelFunc

	// onLevel observes the level of each played frame.
	onLevel func(level float64)
}

func newAudioOutput() *audioOutput {
	return &audioOutput{
		meter: audio.NewMeter(audio.GetDefaultEncodingInfo()),
	}
}

func (a *audioOutput) Set(device audio.OutputDevice) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.device = device
	if device != nil {
		a.meter = audio.NewMeter(device.EncodingInfo())
	}
}

func (a *audioOutput) IsConfigured() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.device != nil
}

// Level reports the instantaneous level of the most recent played frame.
func (a *audioOutput) Level() float64 {
	return a.meter.Value()
}

func (a *audioOutput) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.device == nil {
		return errNoOutputDevice
	}
	if a.frames != nil {
		return nil
	}
	if err := a.device.StartPlayback(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.frames = make(chan []byte, playbackQueueSize)
	go a.drain(ctx, a.device, a.frames)
	return nil
}

func (a *audioOutput) drain(ctx context.Context, device audio.OutputDevice, frames <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-frames:
			level := a.meter.Update(frame)
			if a.onLevel != nil {
				a.onLevel(level)
			}
			if err := device.Play(frame); err != nil {
				logger.Warn("failed to play audio frame", "error", err)
			}
		}
	}
}

// Enqueue schedules an inbound frame without blocking. When the queue is
// full the oldest frame is dropped to keep playback close to realtime.
func (a *audioOutput) Enqueue(frame []byte) {
	a.mu.Lock()
	frames := a.frames
	a.mu.Unlock()
	if frames == nil {
		return
	}

	for {
		select {
		case frames <- frame:
			return
		default:
		}
		select {
		case <-frames:
		default:
		}
	}
}

func (a *audioOutput) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.frames = nil
	a.meter.Reset()

	if a.device == nil {
		return nil
	}
	a.device.ClearBuffer()
	return a.device.StopPlayback()
}
