package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/otolabs/oto-core/core/protocol"
	"go.opentelemetry.io/otel/codes"
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateErrored      State = "error"
)

// Callbacks receive classified frames and lifecycle notifications. All
// callbacks are invoked from the manager's goroutines without internal locks
// held; nil callbacks are skipped.
type Callbacks struct {
	OnControl       func(event protocol.ControlEvent)
	OnBinary        func(frame []byte)
	OnStateChanged  func(state State)
	OnConnected     func(sessionID string, resumed bool)
	OnDisconnected  func(deliberate bool)
	OnProtocolError func(err *protocol.DecodeError)
	OnTerminalError func(err error)
}

// Config is the construction-time connection surface.
type Config struct {
	Endpoint   string
	Credential string
	Reconnect  BackoffPolicy
}

// Manager owns the socket lifecycle: connect/disconnect, reconnection with
// backoff, and classification of incoming frames into control events and
// binary audio.
type Manager struct {
	config    Config
	dial      DialFunc
	callbacks Callbacks

	mu sync.Mutex
	// state transitions are the only place the attempt count mutates.
	state    State
	socket   Socket
	attempts int
	lastErr  error
	// generation invalidates read loops belonging to superseded sockets.
	generation int
	// inflight shares a single connect outcome between concurrent callers.
	inflight        *connectAttempt
	reconnectCancel context.CancelFunc

	writeMu sync.Mutex
}

// NewManager builds a manager around the default websocket dialer.
func NewManager(config Config, callbacks Callbacks) *Manager {
	return NewManagerWithDialer(config, callbacks, websocketDial)
}

// NewManagerWithDialer builds a manager with an injected dialer.
func NewManagerWithDialer(config Config, callbacks Callbacks, dial DialFunc) *Manager {
	if dial == nil {
		dial = websocketDial
	}
	return &Manager{
		config:    config,
		dial:      dial,
		callbacks: callbacks,
		state:     StateDisconnected,
	}
}

type connectAttempt struct {
	done chan struct{}
	err  error
}

func newConnectAttempt() *connectAttempt {
	return &connectAttempt{done: make(chan struct{})}
}

func (a *connectAttempt) resolve(err error) {
	a.err = err
	close(a.done)
}

func (a *connectAttempt) wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect establishes the socket and resolves once the service acknowledges
// the connection. A second call while one is pending observes the first
// call's outcome instead of opening a second socket.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return nil
	case StateConnecting:
		pending := m.inflight
		m.mu.Unlock()
		if pending != nil {
			return pending.wait(ctx)
		}
		return nil
	}

	m.cancelReconnectLocked()
	attempt := newConnectAttempt()
	m.inflight = attempt
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()
	m.notifyState(StateConnecting)

	err := m.establish(ctx, false)

	m.mu.Lock()
	m.inflight = nil
	// Losing the install race to a reconnect attempt still means the
	// connection is up; only a genuine failure transitions to disconnected.
	if errors.Is(err, errSuperseded) && m.state == StateConnected {
		err = nil
	}
	if err != nil {
		m.lastErr = err
		m.setStateLocked(StateDisconnected)
	}
	m.mu.Unlock()
	if err != nil {
		m.notifyState(StateDisconnected)
	}
	attempt.resolve(err)
	return err
}

// establish dials, performs the acknowledgement handshake, and starts the
// read loop. The caller owns state bookkeeping on failure. An attempt whose
// generation moved on while it was handshaking closes its socket and yields
// errSuperseded instead of installing a second live connection.
func (m *Manager) establish(ctx context.Context, resumed bool) error {
	ctx, span := tracer.Start(ctx, "connect")
	defer span.End()

	m.mu.Lock()
	startGeneration := m.generation
	m.mu.Unlock()

	socket, err := m.dial(ctx, m.config.Endpoint, authHeader(m.config.Credential))
	if err != nil {
		err = fmt.Errorf("failed to open socket to %s: %w", m.config.Endpoint, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	sessionID, err := awaitAcknowledgement(socket)
	if err != nil {
		_ = socket.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	m.mu.Lock()
	if m.generation != startGeneration {
		m.mu.Unlock()
		_ = socket.Close()
		return errSuperseded
	}
	m.socket = socket
	m.generation++
	generation := m.generation
	m.attempts = 0
	m.lastErr = nil
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	m.notifyState(StateConnected)
	if m.callbacks.OnConnected != nil {
		m.callbacks.OnConnected(sessionID, resumed)
	}

	go m.readLoop(socket, generation)
	return nil
}

// awaitAcknowledgement expects the first textual frame to be a `connected`
// control event; an `error` frame is an auth/handshake rejection.
func awaitAcknowledgement(socket Socket) (string, error) {
	_ = socket.SetReadDeadline(time.Now().Add(defaultConnectTimeout))
	defer socket.SetReadDeadline(time.Time{})

	messageType, payload, err := socket.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("failed to read connection acknowledgement: %w", err)
	}
	if messageType != websocket.TextMessage {
		return "", &HandshakeError{Message: fmt.Sprintf("unexpected first frame type %d", messageType)}
	}

	event, decodeErr := protocol.DecodeControlEvent(payload)
	if decodeErr != nil {
		return "", &HandshakeError{Message: decodeErr.Error()}
	}

	switch event.Type {
	case protocol.TypeConnected:
		connected, err := event.Connected()
		if err != nil {
			return "", &HandshakeError{Message: err.Error()}
		}
		return connected.SessionID, nil
	case protocol.TypeError:
		detail, err := event.ErrorDetail()
		if err != nil {
			return "", &HandshakeError{Message: err.Error()}
		}
		return "", &HandshakeError{Code: detail.Code, Message: detail.Message}
	default:
		return "", &HandshakeError{Message: fmt.Sprintf("unexpected first control event %q", event.Type)}
	}
}

// Disconnect tears down the socket and cancels any pending reconnection.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	m.cancelReconnectLocked()
	socket := m.socket
	m.socket = nil
	m.generation++
	wasDown := m.state == StateDisconnected
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	var err error
	if socket != nil {
		err = socket.Close()
	}
	if !wasDown {
		m.notifyState(StateDisconnected)
		if m.callbacks.OnDisconnected != nil {
			m.callbacks.OnDisconnected(true)
		}
	}
	return err
}

// Send dispatches a textual control message.
func (m *Manager) Send(message any) error {
	m.mu.Lock()
	socket := m.socket
	m.mu.Unlock()
	if socket == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := socket.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write control message: %w", err)
	}
	return nil
}

// SendBinary dispatches a binary audio frame.
func (m *Manager) SendBinary(frame []byte) error {
	m.mu.Lock()
	socket := m.socket
	m.mu.Unlock()
	if socket == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := socket.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to write audio frame: %w", err)
	}
	return nil
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts reports the current reconnection attempt count.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// LastError reports the most recent connection error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// readLoop classifies frames until the socket dies or is superseded.
// Textual frames decode to control events; binary frames pass through
// unparsed. A malformed textual frame is reported and skipped, never fatal.
func (m *Manager) readLoop(socket Socket, generation int) {
	for {
		messageType, data, err := socket.ReadMessage()
		if err != nil {
			m.handleReadFailure(generation, err)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			event, decodeErr := protocol.DecodeControlEvent(data)
			if decodeErr != nil {
				var malformed *protocol.DecodeError
				if !errors.As(decodeErr, &malformed) {
					malformed = &protocol.DecodeError{Reason: decodeErr.Error()}
				}
				logger.Warn("skipping malformed control frame", "error", decodeErr)
				if m.callbacks.OnProtocolError != nil {
					m.callbacks.OnProtocolError(malformed)
				}
				continue
			}
			if m.callbacks.OnControl != nil {
				m.callbacks.OnControl(event)
			}
		case websocket.BinaryMessage:
			if m.callbacks.OnBinary != nil {
				m.callbacks.OnBinary(data)
			}
		}
	}
}

func (m *Manager) handleReadFailure(generation int, readErr error) {
	m.mu.Lock()
	if generation != m.generation {
		// Superseded by a deliberate disconnect or a newer socket.
		m.mu.Unlock()
		return
	}

	m.socket = nil
	m.lastErr = readErr
	if !m.config.Reconnect.Enabled {
		m.setStateLocked(StateDisconnected)
		m.mu.Unlock()
		m.notifyState(StateDisconnected)
		if m.callbacks.OnDisconnected != nil {
			m.callbacks.OnDisconnected(false)
		}
		return
	}

	m.setStateLocked(StateReconnecting)
	m.cancelReconnectLocked()
	ctx, cancel := context.WithCancel(context.Background())
	m.reconnectCancel = cancel
	m.mu.Unlock()

	m.notifyState(StateReconnecting)
	if m.callbacks.OnDisconnected != nil {
		m.callbacks.OnDisconnected(false)
	}

	go m.reconnectLoop(ctx)
}

// reconnectLoop runs up to MaxAttempts fresh connection attempts with
// non-decreasing delays. In-flight sends from the dropped socket are
// discarded, not replayed.
func (m *Manager) reconnectLoop(ctx context.Context) {
	policy := m.config.Reconnect
	var lastErr error

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		m.mu.Lock()
		if m.state != StateReconnecting {
			m.mu.Unlock()
			return
		}
		m.attempts = attempt + 1
		m.mu.Unlock()

		logger.Info("reconnecting", "attempt", attempt+1, "max_attempts", policy.MaxAttempts)
		err := m.establish(ctx, true)
		if err == nil {
			return
		}
		if errors.Is(err, errSuperseded) {
			// A manual Connect or Disconnect took over mid-handshake.
			return
		}
		lastErr = err

		var handshake *HandshakeError
		if errors.As(err, &handshake) {
			m.failTerminal(err)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}

	m.failTerminal(&ReconnectExhaustedError{Attempts: policy.MaxAttempts, LastErr: lastErr})
}

func (m *Manager) failTerminal(err error) {
	m.mu.Lock()
	if m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.lastErr = err
	m.setStateLocked(StateErrored)
	m.mu.Unlock()

	m.notifyState(StateErrored)
	if m.callbacks.OnTerminalError != nil {
		m.callbacks.OnTerminalError(err)
	}
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnectCancel != nil {
		m.reconnectCancel()
		m.reconnectCancel = nil
	}
}

func (m *Manager) setStateLocked(state State) {
	m.state = state
}

func (m *Manager) notifyState(state State) {
	if m.callbacks.OnStateChanged != nil {
		m.callbacks.OnStateChanged(state)
	}
}
