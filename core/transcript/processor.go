package transcript

import (
	"maps"
	"sync"

	"github.com/otolabs/oto-core/core/protocol"
)

// Tool names with distinguished rendering.
const (
	toolNameThink    = "think"
	toolNameDelegate = "delegate"
)

// Callbacks observe transcript mutations. They are invoked after the
// processor's lock is released; nil callbacks are skipped.
type Callbacks struct {
	OnAppend func(index int)
	OnUpdate func(index int)
	OnReset  func(itemCount int)
}

// Processor folds protocol messages into transcript items. The same fold
// runs block by block for live deltas and message by message for bulk
// history, which is what keeps the two paths structurally identical.
type Processor struct {
	callbacks Callbacks

	mu    sync.Mutex
	items []Item
	// open is the index of the streaming message item, -1 when closed.
	open int

	// toolUses maps a tool_use ID to the item that rendered it, so its
	// result lands in the same message even when the result arrives in a
	// separate user-role message.
	toolUses map[string]int
	// delegates maps a delegate tool_use ID to its sub-agent key until the
	// closing divider is emitted.
	delegates map[string]string
	// thinks records think tool_use IDs whose results are dropped.
	thinks map[string]struct{}
}

func NewProcessor(callbacks Callbacks) *Processor {
	p := &Processor{callbacks: callbacks}
	p.resetLocked()
	return p
}

type noteKind int

const (
	noteAppend noteKind = iota
	noteUpdate
	noteReset
)

type note struct {
	kind  noteKind
	index int
}

func (p *Processor) flush(notes []note) {
	for _, n := range notes {
		switch n.kind {
		case noteAppend:
			if p.callbacks.OnAppend != nil {
				p.callbacks.OnAppend(n.index)
			}
		case noteUpdate:
			if p.callbacks.OnUpdate != nil {
				p.callbacks.OnUpdate(n.index)
			}
		case noteReset:
			if p.callbacks.OnReset != nil {
				p.callbacks.OnReset(n.index)
			}
		}
	}
}

// Append folds one live content delta into the transcript.
func (p *Processor) Append(role protocol.Role, blocks []protocol.ContentBlock) {
	p.mu.Lock()
	var notes []note
	p.foldLocked(role, blocks, &notes)
	p.mu.Unlock()
	p.flush(notes)
}

// Close seals the streaming message; subsequent content opens a new item.
func (p *Processor) Close() {
	p.mu.Lock()
	p.open = -1
	p.mu.Unlock()
}

// Load rebuilds the transcript from a complete message log. Observers get a
// single reset notification carrying the rebuilt item count, never a stream
// of partial states.
func (p *Processor) Load(messages []protocol.Message) {
	p.mu.Lock()
	p.resetLocked()
	var discard []note
	for _, message := range messages {
		p.foldLocked(message.Role, message.Content, &discard)
		p.open = -1
	}
	count := len(p.items)
	p.mu.Unlock()
	p.flush([]note{{kind: noteReset, index: count}})
}

// Reset drops the transcript entirely.
func (p *Processor) Reset() {
	p.mu.Lock()
	p.resetLocked()
	p.mu.Unlock()
	p.flush([]note{{kind: noteReset, index: 0}})
}

func (p *Processor) resetLocked() {
	p.items = nil
	p.open = -1
	p.toolUses = map[string]int{}
	p.delegates = map[string]string{}
	p.thinks = map[string]struct{}{}
}

// AppendAlert interleaves a system notice with the conversation.
func (p *Processor) AppendAlert(severity AlertSeverity, text string) {
	p.mu.Lock()
	p.open = -1
	p.items = append(p.items, &AlertItem{Severity: severity, Text: text})
	index := len(p.items) - 1
	p.mu.Unlock()
	p.flush([]note{{kind: noteAppend, index: index}})
}

// Items returns a detached copy of the transcript.
func (p *Processor) Items() []Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]Item, len(p.items))
	for i, item := range p.items {
		items[i] = cloneItem(item)
	}
	return items
}

// Len returns the current item count.
func (p *Processor) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

func (p *Processor) foldLocked(role protocol.Role, blocks []protocol.ContentBlock, notes *[]note) {
	for _, block := range blocks {
		switch b := block.(type) {
		case protocol.TextBlock:
			if b.Text == "" {
				continue
			}
			p.appendContentLocked(role, Text{Text: b.Text}, notes)
		case protocol.ThinkingBlock:
			p.appendContentLocked(role, Thought{Text: b.Thinking}, notes)
		case protocol.ToolUseBlock:
			p.foldToolUseLocked(role, b, notes)
		case protocol.ToolResultBlock:
			p.foldToolResultLocked(role, b, notes)
		case protocol.ImageBlock:
			p.appendItemLocked(&MediaItem{MediaType: b.Source.MediaType, Source: b.Source}, notes)
		case protocol.DocumentBlock:
			p.appendItemLocked(&MediaItem{MediaType: b.Source.MediaType, Source: b.Source, Filename: b.Filename}, notes)
		}
	}
}

func (p *Processor) foldToolUseLocked(role protocol.Role, b protocol.ToolUseBlock, notes *[]note) {
	switch b.Name {
	case toolNameThink:
		thought, _ := b.Input["thought"].(string)
		p.appendContentLocked(role, Thought{Text: thought}, notes)
		p.thinks[b.ID] = struct{}{}
	case toolNameDelegate:
		agent, _ := b.Input["agent"].(string)
		p.appendItemLocked(&DividerItem{Position: DividerStart, Agent: agent}, notes)
		p.delegates[b.ID] = agent
	default:
		p.appendContentLocked(role, ToolUse{ID: b.ID, Name: b.Name, Input: maps.Clone(b.Input)}, notes)
		p.toolUses[b.ID] = p.open
	}
}

func (p *Processor) foldToolResultLocked(role protocol.Role, b protocol.ToolResultBlock, notes *[]note) {
	if agent, ok := p.delegates[b.ToolUseID]; ok {
		// The delegated exchange's content lives strictly inside the
		// bracket, attributed to the assistant side.
		p.open = -1
		p.foldLocked(protocol.RoleAssistant, b.Content, notes)
		p.appendItemLocked(&DividerItem{Position: DividerEnd, Agent: agent}, notes)
		delete(p.delegates, b.ToolUseID)
		return
	}
	if _, ok := p.thinks[b.ToolUseID]; ok {
		delete(p.thinks, b.ToolUseID)
		return
	}
	if b.IsEmpty() {
		return
	}

	result := ToolResult{
		ToolUseID: b.ToolUseID,
		Content:   convertBlocks(b.Content),
		IsError:   b.IsError,
	}

	// Results land next to their invocation, so a user-role message that
	// carries nothing but tool results produces no item of its own.
	if index, ok := p.toolUses[b.ToolUseID]; ok {
		if message, isMessage := p.items[index].(*MessageItem); isMessage {
			message.Content = append(message.Content, result)
			*notes = append(*notes, note{kind: noteUpdate, index: index})
			return
		}
	}
	p.appendContentLocked(role, result, notes)
}

// appendContentLocked routes content into the open message of the given
// role, opening or splitting as needed. Consecutive text coalesces.
func (p *Processor) appendContentLocked(role protocol.Role, content Content, notes *[]note) {
	message := p.openMessageLocked(role, notes)

	if text, ok := content.(Text); ok && len(message.Content) > 0 {
		if last, isText := message.Content[len(message.Content)-1].(Text); isText {
			last.Text += text.Text
			message.Content[len(message.Content)-1] = last
			p.noteUpdateLocked(notes, p.open)
			return
		}
	}
	message.Content = append(message.Content, content)
	p.noteUpdateLocked(notes, p.open)
}

func (p *Processor) openMessageLocked(role protocol.Role, notes *[]note) *MessageItem {
	if p.open >= 0 {
		if message, ok := p.items[p.open].(*MessageItem); ok && message.Role == role {
			return message
		}
	}
	message := &MessageItem{Role: role}
	p.items = append(p.items, message)
	p.open = len(p.items) - 1
	*notes = append(*notes, note{kind: noteAppend, index: p.open})
	return message
}

// appendItemLocked seals the streaming message and appends a standalone item.
func (p *Processor) appendItemLocked(item Item, notes *[]note) {
	p.open = -1
	p.items = append(p.items, item)
	*notes = append(*notes, note{kind: noteAppend, index: len(p.items) - 1})
}

// noteUpdateLocked records an update, skipping the duplicate when the item
// was appended or updated by this same fold.
func (p *Processor) noteUpdateLocked(notes *[]note, index int) {
	if n := len(*notes); n > 0 && (*notes)[n-1].index == index {
		return
	}
	*notes = append(*notes, note{kind: noteUpdate, index: index})
}

// convertBlocks maps protocol blocks nested inside a tool result into
// transcript content. Coalesces text the same way the top-level fold does.
func convertBlocks(blocks []protocol.ContentBlock) []Content {
	var content []Content
	for _, block := range blocks {
		var converted Content
		switch b := block.(type) {
		case protocol.TextBlock:
			if b.Text == "" {
				continue
			}
			if len(content) > 0 {
				if last, ok := content[len(content)-1].(Text); ok {
					last.Text += b.Text
					content[len(content)-1] = last
					continue
				}
			}
			converted = Text{Text: b.Text}
		case protocol.ThinkingBlock:
			converted = Thought{Text: b.Thinking}
		case protocol.ToolUseBlock:
			converted = ToolUse{ID: b.ID, Name: b.Name, Input: maps.Clone(b.Input)}
		case protocol.ToolResultBlock:
			converted = ToolResult{ToolUseID: b.ToolUseID, Content: convertBlocks(b.Content), IsError: b.IsError}
		default:
			continue
		}
		content = append(content, converted)
	}
	return content
}

func cloneItem(item Item) Item {
	switch it := item.(type) {
	case *MessageItem:
		return &MessageItem{Role: it.Role, Content: cloneContent(it.Content)}
	case *DividerItem:
		clone := *it
		return &clone
	case *MediaItem:
		clone := *it
		return &clone
	case *AlertItem:
		clone := *it
		return &clone
	default:
		return item
	}
}

// cloneContent deep-copies message content so detached items never alias
// processor-internal maps or nested result slices.
func cloneContent(content []Content) []Content {
	clone := make([]Content, len(content))
	for i, entry := range content {
		switch c := entry.(type) {
		case ToolUse:
			clone[i] = ToolUse{ID: c.ID, Name: c.Name, Input: maps.Clone(c.Input)}
		case ToolResult:
			clone[i] = ToolResult{ToolUseID: c.ToolUseID, Content: cloneContent(c.Content), IsError: c.IsError}
		default:
			clone[i] = entry
		}
	}
	return clone
}
