package audio

import "context"

// InputDevice acquires microphone audio and emits raw frames at a fixed
// cadence until capture stops.
type InputDevice interface {
	StartCapture(ctx context.Context, onFrame func(frame []byte)) error
	StopCapture() error
	EncodingInfo() EncodingInfo
}

// OutputDevice schedules inbound frames for playback in arrival order.
type OutputDevice interface {
	StartPlayback(ctx context.Context) error
	StopPlayback() error
	Play(frame []byte) error
	ClearBuffer()
	EncodingInfo() EncodingInfo
}

// Device is a full-duplex audio backend.
type Device interface {
	InputDevice
	OutputDevice
	Close() error
}
