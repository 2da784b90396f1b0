package connection

import (
	"errors"
	"fmt"
)

// ErrNotConnected rejects sends attempted without a live socket.
var ErrNotConnected = errors.New("not connected")

// errSuperseded marks a connection attempt that lost the race against a
// newer socket or a deliberate disconnect; its socket is already closed.
var errSuperseded = errors.New("connection attempt superseded")

// HandshakeError reports a handshake or auth rejection by the service. It is
// terminal: the reconnection loop stops immediately when it sees one.
type HandshakeError struct {
	Code    string
	Message string
}

func (e *HandshakeError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("handshake rejected (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("handshake rejected: %s", e.Message)
}

// ReconnectExhaustedError reports that every reconnection attempt in the
// configured budget failed.
type ReconnectExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ReconnectExhaustedError) Error() string {
	return fmt.Sprintf("gave up reconnecting after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *ReconnectExhaustedError) Unwrap() error { return e.LastErr }
