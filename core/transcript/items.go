// Package transcript turns protocol-level message content into the ordered
// item sequence a presentation layer renders. Live deltas and bulk history
// replay go through the same fold, so a resumed session renders identically
// to one streamed in.
package transcript

import "github.com/otolabs/oto-core/core/protocol"

// Item is one renderable transcript entry. Items are immutable once
// appended; only the trailing message item mutates while it streams.
type Item interface {
	item()
}

// MessageItem is a run of content attributed to one role.
type MessageItem struct {
	Role    protocol.Role
	Content []Content
}

func (*MessageItem) item() {}

// DividerPosition marks which edge of a delegated exchange a divider sits on.
type DividerPosition string

const (
	DividerStart DividerPosition = "start"
	DividerEnd   DividerPosition = "end"
)

// DividerItem brackets content produced by a delegated sub-agent.
type DividerItem struct {
	Position DividerPosition
	Agent    string
}

func (*DividerItem) item() {}

// MediaItem is out-of-band rendered content, split out of the message flow.
type MediaItem struct {
	MediaType string
	Source    protocol.MediaSource
	Filename  string
}

func (*MediaItem) item() {}

// AlertSeverity grades a system alert.
type AlertSeverity string

const (
	AlertInfo    AlertSeverity = "info"
	AlertWarning AlertSeverity = "warning"
	AlertError   AlertSeverity = "error"
)

// AlertItem is a human-readable system notice interleaved with the
// conversation.
type AlertItem struct {
	Severity AlertSeverity
	Text     string
}

func (*AlertItem) item() {}

// Content is one block inside a MessageItem.
type Content interface {
	content()
}

// Text is plain message text.
type Text struct {
	Text string
}

func (Text) content() {}

// Thought is internal reasoning, rendered passively rather than as a tool
// invocation.
type Thought struct {
	Text string
}

func (Thought) content() {}

// ToolUse is an ordinary tool invocation with its input.
type ToolUse struct {
	ID    string
	Name  string
	Input map[string]any
}

func (ToolUse) content() {}

// ToolResult is the resolved output of an earlier ToolUse in the same
// message.
type ToolResult struct {
	ToolUseID string
	Content   []Content
	IsError   bool
}

func (ToolResult) content() {}
