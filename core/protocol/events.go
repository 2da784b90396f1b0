package protocol

import (
	"encoding/json"
	"fmt"
)

// ControlType is the discriminator carried by every textual frame.
type ControlType string

const (
	// Connection lifecycle, service side.
	TypeConnected    ControlType = "connected"
	TypeDisconnected ControlType = "disconnected"
	TypeError        ControlType = "error"

	// Turn lifecycle.
	TypeTurnStart ControlType = "turn_start"
	TypeTurnEnd   ControlType = "turn_end"

	// Message content.
	TypeMessageDelta ControlType = "message_delta"
	TypeMessageStop  ControlType = "message_stop"

	// Session state.
	TypeHistorySnapshot ControlType = "history_snapshot"
	TypeSessionChanged  ControlType = "session_changed"

	// Client tool callbacks.
	TypeToolCall ControlType = "tool_call"

	// Client to service.
	TypeUserMessage ControlType = "message"
	TypeToolResult  ControlType = "tool_result"
)

// ControlEvent is a decoded textual frame: the discriminator plus the raw
// type-specific payload, unmarshalled on demand by the payload accessors.
type ControlEvent struct {
	Type ControlType
	raw  json.RawMessage
}

// DecodeError reports a malformed textual frame. Decoding failures surface
// as protocol error events and never terminate the connection.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed control frame (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed control frame (%s)", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeControlEvent classifies a textual frame by its discriminator.
func DecodeControlEvent(data []byte) (ControlEvent, error) {
	var envelope struct {
		Type ControlType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ControlEvent{}, &DecodeError{Reason: "invalid envelope", Err: err}
	}
	if envelope.Type == "" {
		return ControlEvent{}, &DecodeError{Reason: "missing type discriminator"}
	}

	return ControlEvent{Type: envelope.Type, raw: append(json.RawMessage(nil), data...)}, nil
}

func (e ControlEvent) decode(v any) error {
	if err := json.Unmarshal(e.raw, v); err != nil {
		return &DecodeError{Reason: fmt.Sprintf("invalid %s payload", e.Type), Err: err}
	}
	return nil
}

type ConnectedPayload struct {
	Type      ControlType `json:"type"`
	SessionID string      `json:"session_id"`
}

func (e ControlEvent) Connected() (ConnectedPayload, error) {
	var payload ConnectedPayload
	err := e.decode(&payload)
	return payload, err
}

type ErrorPayload struct {
	Type    ControlType `json:"type"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Fatal   bool        `json:"fatal"`
}

func (e ControlEvent) ErrorDetail() (ErrorPayload, error) {
	var payload ErrorPayload
	err := e.decode(&payload)
	return payload, err
}

type TurnPayload struct {
	Type   ControlType `json:"type"`
	TurnID string      `json:"turn_id"`
	Owner  Role        `json:"owner"`
}

func (e ControlEvent) Turn() (TurnPayload, error) {
	var payload TurnPayload
	err := e.decode(&payload)
	return payload, err
}

type MessageDeltaPayload struct {
	Role    Role
	Content []ContentBlock
	Usage   *TokenUsage
}

func (e ControlEvent) MessageDelta() (MessageDeltaPayload, error) {
	var raw struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
		Usage   *TokenUsage     `json:"usage"`
	}
	if err := e.decode(&raw); err != nil {
		return MessageDeltaPayload{}, err
	}

	payload := MessageDeltaPayload{Role: raw.Role, Usage: raw.Usage}
	if len(raw.Content) > 0 {
		blocks, err := UnmarshalContentBlocks(raw.Content)
		if err != nil {
			return MessageDeltaPayload{}, &DecodeError{Reason: "invalid message_delta content", Err: err}
		}
		payload.Content = blocks
	}
	return payload, nil
}

type SessionPayload struct {
	Type    ControlType     `json:"type"`
	Session SessionSnapshot `json:"session"`
}

func (e ControlEvent) Session() (SessionPayload, error) {
	var payload SessionPayload
	err := e.decode(&payload)
	return payload, err
}

type ToolCallPayload struct {
	Type  ControlType    `json:"type"`
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

func (e ControlEvent) ToolCall() (ToolCallPayload, error) {
	var payload ToolCallPayload
	err := e.decode(&payload)
	return payload, err
}

// NewUserMessage builds the outbound control message for user text input.
func NewUserMessage(text string) any {
	return struct {
		Type    ControlType    `json:"type"`
		Role    Role           `json:"role"`
		Content []ContentBlock `json:"content"`
	}{
		Type:    TypeUserMessage,
		Role:    RoleUser,
		Content: []ContentBlock{TextBlock{Type: "text", Text: text}},
	}
}

// NewToolResult builds the outbound control message answering a client tool
// call.
func NewToolResult(toolUseID string, content []ContentBlock, isError bool) any {
	return struct {
		Type      ControlType    `json:"type"`
		ToolUseID string         `json:"tool_use_id"`
		Content   []ContentBlock `json:"content"`
		IsError   bool           `json:"is_error,omitempty"`
	}{
		Type:      TypeToolResult,
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
	}
}
