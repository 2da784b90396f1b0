package events

const (
	// KindConnectionStateChanged identifies connection lifecycle transitions.
	KindConnectionStateChanged Kind = "connection.state_changed"
	// KindConnected identifies an acknowledged connection.
	KindConnected Kind = "connection.connected"
	// KindDisconnected identifies a closed socket.
	KindDisconnected Kind = "connection.disconnected"
	// KindConnectionFailed identifies a terminal connection failure.
	KindConnectionFailed Kind = "connection.failed"
	// KindProtocolViolation identifies a skipped malformed frame.
	KindProtocolViolation Kind = "connection.protocol_error"
)

// ConnectionStateChanged reports the connection manager's new state.
type ConnectionStateChanged struct {
	Base
	State string
}

// NewConnectionStateChanged creates a state transition event.
func NewConnectionStateChanged(state string) ConnectionStateChanged {
	return ConnectionStateChanged{Base: newBase(KindConnectionStateChanged), State: state}
}

// Connected marks an acknowledged connection. Resumed distinguishes a
// reconnect from a first-time connection.
type Connected struct {
	Base
	SessionID string
	Resumed   bool
}

// NewConnected creates a connected event.
func NewConnected(sessionID string, resumed bool) Connected {
	return Connected{Base: newBase(KindConnected), SessionID: sessionID, Resumed: resumed}
}

// Disconnected marks a closed socket.
type Disconnected struct {
	Base
	Deliberate bool
}

// NewDisconnected creates a disconnected event.
func NewDisconnected(deliberate bool) Disconnected {
	return Disconnected{Base: newBase(KindDisconnected), Deliberate: deliberate}
}

// ConnectionFailed marks a terminal connection failure.
type ConnectionFailed struct {
	Base
	Err error
}

// NewConnectionFailed creates a terminal failure event.
func NewConnectionFailed(err error) ConnectionFailed {
	return ConnectionFailed{Base: newBase(KindConnectionFailed), Err: err}
}

// ProtocolViolation marks a malformed textual frame that was skipped.
type ProtocolViolation struct {
	Base
	Reason string
}

// NewProtocolViolation creates a protocol violation event.
func NewProtocolViolation(reason string) ProtocolViolation {
	return ProtocolViolation{Base: newBase(KindProtocolViolation), Reason: reason}
}
