// Package deepgram captions outbound microphone audio through Deepgram's
// realtime listen API.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/otolabs/oto-core/core/audio"
	"github.com/otolabs/oto-core/core/captions"
)

const (
	listenURL         = "wss://api.deepgram.com/v1/listen"
	keepAliveInterval = 5 * time.Second
)

// CaptionClient streams audio to Deepgram and surfaces caption callbacks.
// One client carries at most one listen stream at a time.
type CaptionClient struct {
	apiKey string

	connMu      sync.Mutex
	conn        *websocket.Conn
	lastAudioAt time.Time

	// accumulated collects finalized segments until the utterance ends.
	accumulated   string
	openUtterance bool

	cancelKeepAlive context.CancelFunc
}

type ClientOption func(*CaptionClient)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment lookup.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *CaptionClient) {
		c.apiKey = apiKey
	}
}

func NewCaptionClient(opts ...ClientOption) *CaptionClient {
	client := &CaptionClient{}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Start opens the listen stream and begins dispatching captions.
func (c *CaptionClient) Start(ctx context.Context, opts ...captions.Option) error {
	options := &captions.Options{EncodingInfo: audio.GetDefaultEncodingInfo()}
	for _, opt := range opts {
		opt(options)
	}

	encoding, err := convertEncoding(options.EncodingInfo)
	if err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	apiKey := c.apiKey
	if apiKey == "" {
		var ok bool
		if apiKey, ok = os.LookupEnv("DEEPGRAM_API_KEY"); !ok {
			return fmt.Errorf("deepgram api key not found")
		}
	}

	conn, err := dialListen(apiKey, encoding, options)
	if err != nil {
		return fmt.Errorf("failed to open caption stream: %w", err)
	}

	keepAliveCtx, cancel := context.WithCancel(ctx)

	c.connMu.Lock()
	c.conn = conn
	c.lastAudioAt = time.Now()
	c.cancelKeepAlive = cancel
	c.connMu.Unlock()

	go c.readLoop(conn, *options)
	go c.keepAliveLoop(keepAliveCtx)
	return nil
}

func dialListen(apiKey string, encoding *streamEncoding, options *captions.Options) (*websocket.Conn, error) {
	endpoint, _ := url.Parse(listenURL)
	query := endpoint.Query()
	query.Set("encoding", encoding.Format)
	query.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	query.Set("channels", "1")
	query.Set("model", "nova-3")
	query.Set("smart_format", "true")
	query.Set("endpointing", "300")
	if options.CaptionCallback != nil || options.SpeechEndedCallback != nil {
		query.Set("utterance_end_ms", "1000")
		query.Set("interim_results", "true")
	} else if options.InterimCaptionCallback != nil {
		query.Set("interim_results", "true")
	}
	if options.SpeechStartedCallback != nil || options.SpeechEndedCallback != nil {
		query.Set("vad_events", "true")
	}
	endpoint.RawQuery = query.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(endpoint.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SendAudio forwards one captured frame to the caption stream.
func (c *CaptionClient) SendAudio(frame []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("caption stream is not open")
	}
	c.lastAudioAt = time.Now()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to write to caption stream: %w", err)
	}
	return nil
}

// Stop flushes the provider's buffer and closes the stream.
func (c *CaptionClient) Stop() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.cancelKeepAlive != nil {
		c.cancelKeepAlive()
		c.cancelKeepAlive = nil
	}
	if c.conn == nil {
		return nil
	}
	if err := c.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to flush caption stream: %w", err)
	}
	return nil
}

func (c *CaptionClient) readLoop(conn *websocket.Conn, options captions.Options) {
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if err.Error() != "websocket: close 1000 (normal)" {
				log.Println("Failed to read caption stream message", "error", err)
			}

			c.connMu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.connMu.Unlock()
			conn.Close()
			return
		}
		if messageType != websocket.BinaryMessage {
			c.processMessage(message, options)
		}
	}
}

func (c *CaptionClient) processMessage(message []byte, options captions.Options) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		log.Println("Failed to unmarshal caption stream message", "error", err)
		return
	}

	switch api.TypeResponse(envelope.Type) {
	case api.TypeMessageResponse:
		var response api.MessageResponse
		if err := json.Unmarshal(message, &response); err != nil {
			log.Println("Failed to unmarshal caption result", err)
			return
		}
		c.processResult(response, options)

	case api.TypeUtteranceEndResponse:
		if c.openUtterance {
			c.flushUtterance(options)
		}

	case api.TypeSpeechStartedResponse:
		c.openUtterance = true
		if options.SpeechStartedCallback != nil {
			options.SpeechStartedCallback()
		}
	}
}

func (c *CaptionClient) processResult(response api.MessageResponse, options captions.Options) {
	if len(response.Channel.Alternatives) == 0 {
		return
	}
	segment := strings.TrimSpace(response.Channel.Alternatives[0].Transcript)

	if response.IsFinal {
		if len(segment) > 0 {
			c.accumulated += " " + segment
		}
		if response.SpeechFinal {
			c.flushUtterance(options)
		}
		return
	}

	if options.InterimCaptionCallback != nil && len(segment) > 0 {
		options.InterimCaptionCallback(strings.TrimSpace(c.accumulated + " " + segment))
	}
}

func (c *CaptionClient) flushUtterance(options captions.Options) {
	c.openUtterance = false
	caption := strings.TrimSpace(c.accumulated)
	c.accumulated = ""
	if options.CaptionCallback != nil && len(caption) > 0 {
		options.CaptionCallback(caption)
	}
	if options.SpeechEndedCallback != nil {
		options.SpeechEndedCallback()
	}
}

// keepAliveLoop keeps the provider from closing an idle stream while capture
// is paused.
func (c *CaptionClient) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastKeepAlive time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.Lock()
			idle := time.Since(c.lastAudioAt) > keepAliveInterval
			conn := c.conn
			if idle && conn != nil && time.Since(lastKeepAlive) > keepAliveInterval {
				lastKeepAlive = time.Now()
				if err := conn.WriteJSON(struct {
					Type string `json:"type"`
				}{Type: "KeepAlive"}); err != nil {
					log.Println("Failed to write caption stream keep-alive", "error", err)
				}
			}
			c.connMu.Unlock()
		}
	}
}
