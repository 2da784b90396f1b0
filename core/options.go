package engine

import (
	"context"

	"github.com/otolabs/oto-core/core/audio"
	"github.com/otolabs/oto-core/core/captions"
	"github.com/otolabs/oto-core/core/connection"
	"github.com/otolabs/oto-core/core/history"
)

type ClientOption func(*Client)

// WithEndpoint sets the realtime stream endpoint.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.config.Endpoint = endpoint
	}
}

// WithCredential sets the bearer credential presented on connect and on
// history requests.
func WithCredential(credential string) ClientOption {
	return func(c *Client) {
		c.config.Credential = credential
	}
}

// WithReconnectPolicy overrides the default reconnection backoff.
func WithReconnectPolicy(policy connection.BackoffPolicy) ClientOption {
	return func(c *Client) {
		c.config.Reconnect = policy
	}
}

// WithRespectTurnState controls outbound gating during assistant turns.
// Enabled by default; disabling allows barge-in style input.
func WithRespectTurnState(respect bool) ClientOption {
	return func(c *Client) {
		c.respectTurns = respect
	}
}

// WithAudioInput configures the capture device.
func WithAudioInput(device audio.InputDevice) ClientOption {
	return func(c *Client) {
		c.input.Set(device)
	}
}

// WithAudioOutput configures the playback device.
func WithAudioOutput(device audio.OutputDevice) ClientOption {
	return func(c *Client) {
		c.output.Set(device)
	}
}

// WithAudioDevice configures a full-duplex device for both directions.
func WithAudioDevice(device audio.Device) ClientOption {
	return func(c *Client) {
		c.input.Set(device)
		c.output.Set(device)
	}
}

// WithDialer injects the transport dialer, primarily for tests.
func WithDialer(dial connection.DialFunc) ClientOption {
	return func(c *Client) {
		c.dial = dial
	}
}

// Captioner produces live captions from outbound microphone audio.
type Captioner interface {
	Start(ctx context.Context, opts ...captions.Option) error
	SendAudio(frame []byte) error
	Stop() error
}

// WithCaptioner enables local captioning of captured audio.
func WithCaptioner(captioner Captioner) ClientOption {
	return func(c *Client) {
		c.captioner = captioner
	}
}

// WithHistoryBaseURL enables session resumption through the history
// endpoint. The connection credential is reused.
func WithHistoryBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.historyBaseURL = baseURL
	}
}

// WithHistoryClient injects a preconfigured history client, overriding
// WithHistoryBaseURL.
func WithHistoryClient(client *history.Client) ClientOption {
	return func(c *Client) {
		c.history = client
	}
}

// WithTool registers a client-side tool at construction. Registration
// failures surface on first use; prefer RegisterTool when the error matters.
func WithTool(tool Tool) ClientOption {
	return func(c *Client) {
		if err := c.tools.register(tool); err != nil {
			logger.Warn("failed to register tool", "tool", tool.Name, "error", err)
		}
	}
}
