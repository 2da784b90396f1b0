//go:build cgo

// Package miniaudio backs the audio pipeline with malgo devices.
package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/otolabs/oto-core/core/audio"
)

// Client owns one capture and one playback device on a shared malgo context.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	encoding audio.EncodingInfo
	playbackClient
	captureClient
}

type Option func(*Client)

// WithEncoding overrides the default capture/playback encoding. Only
// linear16 is representable on malgo devices here.
func WithEncoding(info audio.EncodingInfo) Option {
	return func(c *Client) {
		c.encoding = info
	}
}

func NewClient(opts ...Option) (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
		encoding:     audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&client)
	}

	if err := client.playbackClient.Init(audioCtx, client.encoding); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := client.captureClient.Init(audioCtx, client.encoding); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return &client, nil
}

func (c *Client) StartCapture(_ context.Context, onFrame func(frame []byte)) error {
	return c.captureClient.Start(onFrame)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

func (c *Client) StartPlayback(_ context.Context) error {
	return c.playbackClient.Start()
}

func (c *Client) StopPlayback() error {
	return c.playbackClient.Stop()
}

func (c *Client) Play(frame []byte) error {
	return c.playbackClient.Play(frame)
}

func (c *Client) ClearBuffer() {
	c.playbackClient.ClearBuffer()
}

func (c *Client) Close() error {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	err := c.audioContext.Uninit()
	c.audioContext.Free()
	return err
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}
