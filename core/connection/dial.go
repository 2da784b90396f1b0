package connection

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const defaultConnectTimeout = 15 * time.Second

// Socket is the slice of the websocket surface the manager needs. The live
// implementation is a gorilla connection; tests substitute in-memory ones.
type Socket interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteJSON(v any) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// DialFunc opens a socket to the endpoint. Injected so the manager can be
// exercised without a network.
type DialFunc func(ctx context.Context, endpoint string, header http.Header) (Socket, error)

func websocketDial(ctx context.Context, endpoint string, header http.Header) (Socket, error) {
	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(dialCtx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	return conn, nil
}

func authHeader(credential string) http.Header {
	header := make(http.Header)
	if credential != "" {
		header.Set("Authorization", "Bearer "+credential)
	}
	return header
}
