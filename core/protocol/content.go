package protocol

import (
	"encoding/json"
	"fmt"
)

// ContentBlock is the tagged union carried in message content arrays.
// Recognized tags: text, tool_use, tool_result, thinking, image, document.
// Unknown tags degrade to a text placeholder so new server-side block types
// never break decoding.
type ContentBlock interface {
	BlockType() string
}

type TextBlock struct {
	Type string `json:"type"` // "text"
	Text string `json:"text"`
}

func (b TextBlock) BlockType() string { return "text" }

type ToolUseBlock struct {
	Type  string         `json:"type"` // "tool_use"
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

func (b ToolUseBlock) BlockType() string { return "tool_use" }

type ToolResultBlock struct {
	Type      string         `json:"type"` // "tool_result"
	ToolUseID string         `json:"tool_use_id"`
	Content   []ContentBlock `json:"content"`
	IsError   bool           `json:"is_error,omitempty"`
}

func (b ToolResultBlock) BlockType() string { return "tool_result" }

// IsEmpty reports whether the result carries no renderable content.
func (b ToolResultBlock) IsEmpty() bool {
	for _, block := range b.Content {
		if text, ok := block.(TextBlock); ok && text.Text == "" {
			continue
		}
		return false
	}
	return true
}

func (b ToolResultBlock) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"type":        "tool_result",
		"tool_use_id": b.ToolUseID,
	}
	if b.IsError {
		m["is_error"] = true
	}
	if len(b.Content) > 0 {
		content := make([]json.RawMessage, len(b.Content))
		for i, block := range b.Content {
			encoded, err := json.Marshal(block)
			if err != nil {
				return nil, err
			}
			content[i] = encoded
		}
		m["content"] = content
	}
	return json.Marshal(m)
}

type ThinkingBlock struct {
	Type     string `json:"type"` // "thinking"
	Thinking string `json:"thinking"`
}

func (b ThinkingBlock) BlockType() string { return "thinking" }

type ImageBlock struct {
	Type   string      `json:"type"` // "image"
	Source MediaSource `json:"source"`
}

func (b ImageBlock) BlockType() string { return "image" }

type DocumentBlock struct {
	Type     string      `json:"type"` // "document"
	Source   MediaSource `json:"source"`
	Filename string      `json:"filename,omitempty"`
}

func (b DocumentBlock) BlockType() string { return "document" }

// MediaSource references out-of-band media either inline (base64) or by URL.
type MediaSource struct {
	Type      string `json:"type"` // "base64" or "url"
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// UnmarshalContentBlock decodes a single content block from its wire form.
func UnmarshalContentBlock(data []byte) (ContentBlock, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	switch tag.Type {
	case "text":
		var block TextBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil
	case "tool_use":
		var block ToolUseBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil
	case "tool_result":
		var raw struct {
			ToolUseID string            `json:"tool_use_id"`
			Content   []json.RawMessage `json:"content"`
			IsError   bool              `json:"is_error"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		block := ToolResultBlock{Type: tag.Type, ToolUseID: raw.ToolUseID, IsError: raw.IsError}
		for _, nested := range raw.Content {
			decoded, err := UnmarshalContentBlock(nested)
			if err != nil {
				return nil, err
			}
			block.Content = append(block.Content, decoded)
		}
		return block, nil
	case "thinking":
		var block ThinkingBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil
	case "image":
		var block ImageBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil
	case "document":
		var block DocumentBlock
		if err := json.Unmarshal(data, &block); err != nil {
			return nil, err
		}
		return block, nil
	default:
		return TextBlock{Type: tag.Type, Text: fmt.Sprintf("[unsupported block type: %s]", tag.Type)}, nil
	}
}

// UnmarshalContentBlocks decodes a content-block array.
func UnmarshalContentBlocks(data []byte) ([]ContentBlock, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	blocks := make([]ContentBlock, len(raw))
	for i, entry := range raw {
		block, err := UnmarshalContentBlock(entry)
		if err != nil {
			return nil, err
		}
		blocks[i] = block
	}
	return blocks, nil
}
