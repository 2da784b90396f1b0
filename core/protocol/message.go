package protocol

import (
	"encoding/json"
	"time"
)

// Role identifies who produced a message. Roles are carried verbatim from
// the wire and never inferred or corrected.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session's ordered message log.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Role = raw.Role
	m.Content = nil
	if len(raw.Content) == 0 {
		return nil
	}

	blocks, err := UnmarshalContentBlocks(raw.Content)
	if err != nil {
		return err
	}
	m.Content = blocks
	return nil
}

// TokenUsage is the session's token and context accounting as reported by
// the service.
type TokenUsage struct {
	InputTokens   int `json:"input_tokens"`
	OutputTokens  int `json:"output_tokens"`
	ContextTokens int `json:"context_tokens"`
}

// SessionSnapshot is a complete serialized session, delivered in history
// snapshots and session-change notifications.
type SessionSnapshot struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Usage     TokenUsage     `json:"usage"`
	Messages  []Message      `json:"messages"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
