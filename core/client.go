// Package engine is the client-side protocol and session engine for the
// realtime conversation stream: connection lifecycle, turn-taking, the
// session log, the renderable transcript, and bidirectional audio.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/otolabs/oto-core/core/captions"
	"github.com/otolabs/oto-core/core/connection"
	"github.com/otolabs/oto-core/core/events"
	"github.com/otolabs/oto-core/core/history"
	"github.com/otolabs/oto-core/core/protocol"
	"github.com/otolabs/oto-core/core/sessions"
	"github.com/otolabs/oto-core/core/transcript"
	"github.com/otolabs/oto-core/core/turns"
	"go.opentelemetry.io/otel/codes"
)

// Client is an explicitly constructed, caller-owned engine instance. Its
// lifetime belongs to whoever constructs it; Close tears everything down.
type Client struct {
	config       connection.Config
	respectTurns bool

	dial connection.DialFunc
	conn *connection.Manager

	turns      *turns.Tracker
	sessions   *sessions.Store
	transcript *transcript.Processor
	subs       *subscriptions
	tools      *toolRegistry

	input  *audioInput
	output *audioOutput

	captioner      Captioner
	history        *history.Client
	historyBaseURL string

	// pendingMu guards the replacement snapshot queued behind an open
	// streaming message.
	pendingMu          sync.Mutex
	pendingReplacement *protocol.SessionSnapshot

	baseCtx   context.Context
	closeOnce sync.Once
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		config:       connection.Config{Reconnect: connection.DefaultBackoffPolicy()},
		respectTurns: true,
		subs:         newSubscriptions(),
		tools:        newToolRegistry(),
		sessions:     sessions.NewStore(),
		output:       newAudioOutput(),
		baseCtx:      context.Background(),
	}
	c.input = newAudioInput(c.handleCapturedFrame)
	c.output.onLevel = func(level float64) {
		c.subs.publish(events.NewOutputLevel(level))
	}
	c.transcript = transcript.NewProcessor(transcript.Callbacks{
		OnAppend: func(index int) { c.subs.publish(events.NewTranscriptItemAppended(index)) },
		OnUpdate: func(index int) { c.subs.publish(events.NewTranscriptItemUpdated(index)) },
		OnReset:  func(count int) { c.subs.publish(events.NewTranscriptReset(count)) },
	})

	for _, opt := range opts {
		opt(c)
	}

	c.turns = turns.NewTracker(c.respectTurns)
	if c.history == nil && c.historyBaseURL != "" {
		c.history = history.NewClient(c.historyBaseURL, c.config.Credential)
	}
	c.conn = connection.NewManagerWithDialer(c.config, connection.Callbacks{
		OnControl:       c.handleControl,
		OnBinary:        c.handleBinary,
		OnStateChanged:  c.handleStateChanged,
		OnConnected:     c.handleConnected,
		OnDisconnected:  c.handleDisconnected,
		OnProtocolError: c.handleProtocolError,
		OnTerminalError: c.handleTerminalError,
	}, c.dial)

	return c
}

// Connect establishes the stream. Concurrent calls share one attempt.
func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Connect(ctx)
}

// Disconnect closes the stream deliberately, cancelling any reconnection.
func (c *Client) Disconnect() error {
	return c.conn.Disconnect()
}

// Close tears the engine down: capture, playback, captions, the socket, and
// all subscriptions. The client is not reusable afterwards.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if stopErr := c.StopCapture(); stopErr != nil {
			err = fmt.Errorf("failed to stop capture: %w", stopErr)
		}
		if stopErr := c.output.Stop(); stopErr != nil && err == nil {
			err = fmt.Errorf("failed to stop playback: %w", stopErr)
		}
		if disconnectErr := c.conn.Disconnect(); disconnectErr != nil && err == nil {
			err = fmt.Errorf("failed to disconnect: %w", disconnectErr)
		}
		c.subs.clear()
	})
	return err
}

// State reports the connection lifecycle state.
func (c *Client) State() connection.State {
	return c.conn.State()
}

// Subscribe attaches a listener for the named event kinds; with no kinds it
// receives every event. Detach through the returned handle.
func (c *Client) Subscribe(handler func(events.Event), kinds ...events.Kind) Subscription {
	return c.subs.subscribe(handler, kinds...)
}

// RegisterTool adds a client-side tool the service may call.
func (c *Client) RegisterTool(tool Tool) error {
	return c.tools.register(tool)
}

// SendText transmits user text, honoring turn gating.
func (c *Client) SendText(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "send text")
	defer span.End()

	if err := c.turns.Gate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := c.conn.Send(protocol.NewUserMessage(text)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// SendAudio transmits one outbound audio frame, honoring turn gating.
func (c *Client) SendAudio(frame []byte) error {
	if err := c.turns.Gate(); err != nil {
		return err
	}
	return c.conn.SendBinary(frame)
}

// StartCapture begins microphone acquisition; every captured frame is
// metered, captioned when a captioner is configured, and transmitted.
func (c *Client) StartCapture(ctx context.Context) error {
	if err := c.input.Start(ctx); err != nil {
		c.subs.publish(events.NewCaptureStopped(err))
		return err
	}

	if c.captioner != nil {
		if err := c.captioner.Start(ctx,
			captions.WithEncoding(c.input.Encoding()),
			captions.WithCaptionCallback(func(text string) {
				c.subs.publish(events.NewCaptionFinal(text))
			}),
			captions.WithInterimCaptionCallback(func(text string) {
				c.subs.publish(events.NewCaptionInterim(text))
			}),
		); err != nil {
			logger.Warn("failed to start captioner", "error", err)
		}
	}

	c.subs.publish(events.NewCaptureStarted())
	return nil
}

// StopCapture ends microphone acquisition. Playback is unaffected.
func (c *Client) StopCapture() error {
	if !c.input.IsCapturing() {
		return nil
	}
	err := c.input.Stop()
	if c.captioner != nil {
		if stopErr := c.captioner.Stop(); stopErr != nil {
			logger.Warn("failed to stop captioner", "error", stopErr)
		}
	}
	c.subs.publish(events.NewCaptureStopped(err))
	return err
}

// StartPlayback opens the output device; inbound audio frames are dropped
// until it runs.
func (c *Client) StartPlayback(ctx context.Context) error {
	return c.output.Start(ctx)
}

// StopPlayback stops and flushes the output device.
func (c *Client) StopPlayback() error {
	return c.output.Stop()
}

// InputLevel reports the instantaneous outbound audio level in [0, 1].
func (c *Client) InputLevel() float64 { return c.input.Level() }

// OutputLevel reports the instantaneous inbound audio level in [0, 1].
func (c *Client) OutputLevel() float64 { return c.output.Level() }

// CurrentSession returns a detached snapshot of the session log.
func (c *Client) CurrentSession() protocol.SessionSnapshot {
	return c.sessions.Current()
}

// Usage returns the latest token accounting.
func (c *Client) Usage() protocol.TokenUsage {
	return c.sessions.Usage()
}

// CurrentTurn reports the turn currently holding the floor, if any.
func (c *Client) CurrentTurn() (turns.Turn, bool) {
	return c.turns.Active()
}

// Transcript returns a detached copy of the renderable item sequence.
func (c *Client) Transcript() []transcript.Item {
	return c.transcript.Items()
}

// LoadHistory fetches a serialized session and replaces the current one,
// reconstructing the transcript without replaying the live transport.
func (c *Client) LoadHistory(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "load history")
	defer span.End()

	if c.history == nil {
		err := fmt.Errorf("no history endpoint configured")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	snapshot, err := c.history.Fetch(ctx, sessionID)
	if err != nil {
		err = fmt.Errorf("failed to fetch session history: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.LoadSnapshot(*snapshot)
	return nil
}

// LoadSnapshot replaces the current session with an already-fetched one.
func (c *Client) LoadSnapshot(snapshot protocol.SessionSnapshot) {
	c.pendingMu.Lock()
	c.pendingReplacement = nil
	c.pendingMu.Unlock()

	c.sessions.Load(snapshot)
	c.turns.Reset()
	c.transcript.Load(snapshot.Messages)
	c.subs.publish(events.NewSessionReplaced(snapshot.ID))
}

func (c *Client) handleCapturedFrame(frame []byte) {
	c.subs.publish(events.NewInputLevel(c.input.Level()))

	if c.captioner != nil {
		if err := c.captioner.SendAudio(frame); err != nil {
			logger.Warn("failed to forward frame to captioner", "error", err)
		}
	}

	// Gated frames are dropped, not queued; audio has no value once stale.
	if err := c.SendAudio(frame); err != nil {
		var violation *turns.ViolationError
		if !errors.As(err, &violation) {
			logger.Warn("failed to transmit audio frame", "error", err)
		}
	}
}

func (c *Client) handleBinary(frame []byte) {
	c.output.Enqueue(frame)
}

func (c *Client) handleStateChanged(state connection.State) {
	c.subs.publish(events.NewConnectionStateChanged(string(state)))
}

func (c *Client) handleConnected(sessionID string, resumed bool) {
	if rebound := c.sessions.Bind(sessionID); rebound {
		c.subs.publish(events.NewSessionUpdated(sessionID))
	}
	c.subs.publish(events.NewConnected(sessionID, resumed))
}

func (c *Client) handleDisconnected(deliberate bool) {
	c.subs.publish(events.NewDisconnected(deliberate))
}

func (c *Client) handleProtocolError(err *protocol.DecodeError) {
	c.subs.publish(events.NewProtocolViolation(err.Error()))
}

func (c *Client) handleTerminalError(err error) {
	c.subs.publish(events.NewConnectionFailed(err))
	c.subs.publish(events.NewSystemAlert(events.SeverityError, err.Error()))
}

// handleControl dispatches one decoded textual frame. Slow work (tool
// execution) leaves this goroutine so the control path never stalls.
func (c *Client) handleControl(event protocol.ControlEvent) {
	switch event.Type {
	case protocol.TypeTurnStart:
		payload, err := event.Turn()
		if err != nil {
			c.handleProtocolError(asDecodeError(err))
			return
		}
		turn := c.turns.Begin(payload.TurnID, turns.Owner(payload.Owner))
		c.subs.publish(events.NewTurnStarted(turn.ID, string(turn.Owner)))

	case protocol.TypeTurnEnd:
		payload, err := event.Turn()
		if err != nil {
			c.handleProtocolError(asDecodeError(err))
			return
		}
		if turn, ok := c.turns.End(payload.TurnID); ok {
			c.subs.publish(events.NewTurnEnded(turn.ID, string(turn.Owner)))
		}

	case protocol.TypeMessageDelta:
		payload, err := event.MessageDelta()
		if err != nil {
			c.handleProtocolError(asDecodeError(err))
			return
		}
		c.sessions.AppendDelta(payload)
		c.transcript.Append(payload.Role, payload.Content)
		c.subs.publish(events.NewSessionUpdated(c.sessions.ID()))

	case protocol.TypeMessageStop:
		c.sessions.CloseMessage()
		c.transcript.Close()
		c.applyPendingReplacement()

	case protocol.TypeHistorySnapshot:
		payload, err := event.Session()
		if err != nil {
			c.handleProtocolError(asDecodeError(err))
			return
		}
		c.LoadSnapshot(payload.Session)

	case protocol.TypeSessionChanged:
		payload, err := event.Session()
		if err != nil {
			c.handleProtocolError(asDecodeError(err))
			return
		}
		c.replaceSession(payload.Session)

	case protocol.TypeToolCall:
		payload, err := event.ToolCall()
		if err != nil {
			c.handleProtocolError(asDecodeError(err))
			return
		}
		go c.executeToolCall(payload)

	case protocol.TypeError:
		payload, err := event.ErrorDetail()
		if err != nil {
			c.handleProtocolError(asDecodeError(err))
			return
		}
		severity := events.SeverityWarning
		if payload.Fatal {
			severity = events.SeverityError
		}
		c.subs.publish(events.NewSystemAlert(severity, payload.Message))
		c.transcript.AppendAlert(alertSeverity(payload.Fatal), payload.Message)

	case protocol.TypeDisconnected:
		// The service announced it will close the socket; the read loop
		// handles the actual closure.
		logger.Info("service announced disconnect")
	}
}

// replaceSession swaps sessions atomically. Mid-stream arrivals queue until
// the open message closes so observers never see a torn log.
func (c *Client) replaceSession(snapshot protocol.SessionSnapshot) {
	if applied := c.sessions.Replace(snapshot); !applied {
		c.pendingMu.Lock()
		c.pendingReplacement = &snapshot
		c.pendingMu.Unlock()
		return
	}

	c.turns.Reset()
	c.transcript.Load(snapshot.Messages)
	c.subs.publish(events.NewSessionReplaced(snapshot.ID))
}

func (c *Client) applyPendingReplacement() {
	c.pendingMu.Lock()
	pending := c.pendingReplacement
	c.pendingReplacement = nil
	c.pendingMu.Unlock()
	if pending == nil {
		return
	}

	c.turns.Reset()
	c.transcript.Load(pending.Messages)
	c.subs.publish(events.NewSessionReplaced(pending.ID))
}

func (c *Client) executeToolCall(payload protocol.ToolCallPayload) {
	result := c.tools.call(c.baseCtx, payload)
	if err := c.conn.Send(result); err != nil {
		logger.Warn("failed to send tool result", "tool", payload.Name, "error", err)
	}
}

func alertSeverity(fatal bool) transcript.AlertSeverity {
	if fatal {
		return transcript.AlertError
	}
	return transcript.AlertWarning
}

func asDecodeError(err error) *protocol.DecodeError {
	if decodeErr, ok := err.(*protocol.DecodeError); ok {
		return decodeErr
	}
	return &protocol.DecodeError{Reason: err.Error()}
}
