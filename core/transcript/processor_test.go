package transcript

import (
	"reflect"
	"testing"

	"github.com/otolabs/oto-core/core/protocol"
)

func text(s string) protocol.TextBlock {
	return protocol.TextBlock{Type: "text", Text: s}
}

func toolUse(id, name string, input map[string]any) protocol.ToolUseBlock {
	return protocol.ToolUseBlock{Type: "tool_use", ID: id, Name: name, Input: input}
}

func toolResult(toolUseID string, content ...protocol.ContentBlock) protocol.ToolResultBlock {
	return protocol.ToolResultBlock{Type: "tool_result", ToolUseID: toolUseID, Content: content}
}

func TestThinkToolRendersAsPassiveThought(t *testing.T) {
	processor := NewProcessor(Callbacks{})

	processor.Append(protocol.RoleAssistant, []protocol.ContentBlock{
		toolUse("tu-1", "think", map[string]any{"thought": "x"}),
		text("The answer is 4."),
	})
	processor.Close()
	processor.Append(protocol.RoleUser, []protocol.ContentBlock{
		toolResult("tu-1", text("")),
	})
	processor.Close()

	items := processor.Items()
	if len(items) != 1 {
		t.Fatalf("expected a single message item, got %d items", len(items))
	}
	message := items[0].(*MessageItem)
	if len(message.Content) != 2 {
		t.Fatalf("expected thought + text, got %d blocks", len(message.Content))
	}
	thought, ok := message.Content[0].(Thought)
	if !ok || thought.Text != "x" {
		t.Errorf("expected passive thought %q, got %+v", "x", message.Content[0])
	}
	for _, content := range message.Content {
		if _, ok := content.(ToolUse); ok {
			t.Error("think must not render as a generic tool invocation")
		}
		if _, ok := content.(ToolResult); ok {
			t.Error("think results must be dropped, not rendered")
		}
	}
}

func TestDelegateBracketsSubAgentContent(t *testing.T) {
	processor := NewProcessor(Callbacks{})

	processor.Append(protocol.RoleAssistant, []protocol.ContentBlock{
		toolUse("tu-1", "delegate", map[string]any{"agent": "helper"}),
	})
	processor.Close()
	processor.Append(protocol.RoleUser, []protocol.ContentBlock{
		toolResult("tu-1", text("sub-agent findings")),
	})
	processor.Close()

	items := processor.Items()
	if len(items) != 3 {
		t.Fatalf("expected start divider, sub-content, end divider; got %d items", len(items))
	}

	start, ok := items[0].(*DividerItem)
	if !ok || start.Position != DividerStart || start.Agent != "helper" {
		t.Errorf("expected divider(start, helper), got %+v", items[0])
	}
	sub, ok := items[1].(*MessageItem)
	if !ok {
		t.Fatalf("expected sub-agent message between dividers, got %+v", items[1])
	}
	if got := sub.Content[0].(Text).Text; got != "sub-agent findings" {
		t.Errorf("expected sub-content inside the bracket, got %q", got)
	}
	end, ok := items[2].(*DividerItem)
	if !ok || end.Position != DividerEnd || end.Agent != "helper" {
		t.Errorf("expected divider(end, helper), got %+v", items[2])
	}
}

func TestDividerPairingWithSurroundingContent(t *testing.T) {
	processor := NewProcessor(Callbacks{})

	processor.Load([]protocol.Message{
		{Role: protocol.RoleAssistant, Content: []protocol.ContentBlock{
			text("Let me hand this off."),
			toolUse("tu-1", "delegate", map[string]any{"agent": "researcher"}),
		}},
		{Role: protocol.RoleUser, Content: []protocol.ContentBlock{
			toolResult("tu-1", text("findings")),
		}},
		{Role: protocol.RoleAssistant, Content: []protocol.ContentBlock{
			text("Based on that, here is the summary."),
		}},
	})

	items := processor.Items()
	var starts, ends []int
	for i, item := range items {
		if divider, ok := item.(*DividerItem); ok {
			switch divider.Position {
			case DividerStart:
				starts = append(starts, i)
			case DividerEnd:
				ends = append(ends, i)
			}
		}
	}
	if len(starts) != 1 || len(ends) != 1 {
		t.Fatalf("expected exactly one divider pair, got %d starts and %d ends", len(starts), len(ends))
	}
	if starts[0] >= ends[0] {
		t.Errorf("expected start divider before end divider, got %d and %d", starts[0], ends[0])
	}
	if starts[0] == 0 {
		t.Error("expected the lead-in text before the start divider")
	}
	if ends[0] == len(items)-1 {
		t.Error("expected the follow-up text after the end divider")
	}
}

func TestEmptyToolResultIsOmitted(t *testing.T) {
	processor := NewProcessor(Callbacks{})

	processor.Append(protocol.RoleAssistant, []protocol.ContentBlock{
		toolUse("tu-1", "lookup", map[string]any{"q": "weather"}),
	})
	processor.Close()
	processor.Append(protocol.RoleUser, []protocol.ContentBlock{
		toolResult("tu-1"),
		toolResult("tu-1", text("")),
	})
	processor.Close()

	items := processor.Items()
	if len(items) != 1 {
		t.Fatalf("expected only the invocation message, got %d items", len(items))
	}
	message := items[0].(*MessageItem)
	for _, content := range message.Content {
		if _, ok := content.(ToolResult); ok {
			t.Error("expected empty tool results to be omitted")
		}
	}
}

func TestToolResultLandsNextToItsInvocation(t *testing.T) {
	processor := NewProcessor(Callbacks{})

	processor.Append(protocol.RoleAssistant, []protocol.ContentBlock{
		text("Checking."),
		toolUse("tu-1", "lookup", map[string]any{"q": "weather"}),
	})
	processor.Close()
	// The result arrives in a user-role message that carries nothing else.
	processor.Append(protocol.RoleUser, []protocol.ContentBlock{
		toolResult("tu-1", text("sunny")),
	})
	processor.Close()

	items := processor.Items()
	if len(items) != 1 {
		t.Fatalf("expected the result folded into the invocation message, got %d items", len(items))
	}
	message := items[0].(*MessageItem)
	if message.Role != protocol.RoleAssistant {
		t.Errorf("expected assistant message, got role %q", message.Role)
	}
	result, ok := message.Content[len(message.Content)-1].(ToolResult)
	if !ok {
		t.Fatalf("expected trailing tool result, got %+v", message.Content[len(message.Content)-1])
	}
	if result.ToolUseID != "tu-1" {
		t.Errorf("expected result paired with tu-1, got %q", result.ToolUseID)
	}
	if got := result.Content[0].(Text).Text; got != "sunny" {
		t.Errorf("expected result content %q, got %q", "sunny", got)
	}
}

func TestStreamedTextCoalesces(t *testing.T) {
	updates := 0
	appends := 0
	processor := NewProcessor(Callbacks{
		OnAppend: func(int) { appends++ },
		OnUpdate: func(int) { updates++ },
	})

	processor.Append(protocol.RoleAssistant, []protocol.ContentBlock{text("Hel")})
	processor.Append(protocol.RoleAssistant, []protocol.ContentBlock{text("lo")})
	processor.Append(protocol.RoleAssistant, []protocol.ContentBlock{text(" there")})
	processor.Close()

	items := processor.Items()
	message := items[0].(*MessageItem)
	if len(message.Content) != 1 {
		t.Fatalf("expected one coalesced text block, got %d", len(message.Content))
	}
	if got := message.Content[0].(Text).Text; got != "Hello there" {
		t.Errorf("expected %q, got %q", "Hello there", got)
	}
	if appends != 1 {
		t.Errorf("expected 1 append notification, got %d", appends)
	}
	if updates != 2 {
		t.Errorf("expected 2 update notifications, got %d", updates)
	}
}

// The central guarantee: folding a bulk history and replaying the same
// conversation as live deltas yield structurally identical transcripts.
func TestBulkAndLiveParity(t *testing.T) {
	history := []protocol.Message{
		{Role: protocol.RoleUser, Content: []protocol.ContentBlock{
			text("What's the weather in Zagreb?"),
		}},
		{Role: protocol.RoleAssistant, Content: []protocol.ContentBlock{
			toolUse("tu-think", "think", map[string]any{"thought": "needs a lookup"}),
			text("Let me check."),
			toolUse("tu-look", "lookup", map[string]any{"city": "Zagreb"}),
		}},
		{Role: protocol.RoleUser, Content: []protocol.ContentBlock{
			toolResult("tu-think"),
			toolResult("tu-look", text("18C, clear")),
		}},
		{Role: protocol.RoleAssistant, Content: []protocol.ContentBlock{
			text("It is 18C and clear. I'll have a specialist double-check."),
			toolUse("tu-del", "delegate", map[string]any{"agent": "verifier"}),
		}},
		{Role: protocol.RoleUser, Content: []protocol.ContentBlock{
			toolResult("tu-del", text("confirmed: 18C")),
		}},
		{Role: protocol.RoleAssistant, Content: []protocol.ContentBlock{
			text("Confirmed."),
		}},
	}

	bulk := NewProcessor(Callbacks{})
	bulk.Load(history)

	live := NewProcessor(Callbacks{})
	for _, message := range history {
		// Live delivery splits each message into single-block deltas.
		for _, block := range message.Content {
			live.Append(message.Role, []protocol.ContentBlock{block})
		}
		live.Close()
	}

	bulkItems := bulk.Items()
	liveItems := live.Items()
	if len(bulkItems) != len(liveItems) {
		t.Fatalf("parity broken: bulk has %d items, live has %d", len(bulkItems), len(liveItems))
	}
	for i := range bulkItems {
		if !reflect.DeepEqual(bulkItems[i], liveItems[i]) {
			t.Errorf("parity broken at item %d:\n bulk: %#v\n live: %#v", i, bulkItems[i], liveItems[i])
		}
	}
}

func TestLoadEmitsSingleResetNotification(t *testing.T) {
	var resets []int
	appends := 0
	processor := NewProcessor(Callbacks{
		OnReset:  func(count int) { resets = append(resets, count) },
		OnAppend: func(int) { appends++ },
	})

	processor.Load([]protocol.Message{
		{Role: protocol.RoleUser, Content: []protocol.ContentBlock{text("hi")}},
		{Role: protocol.RoleAssistant, Content: []protocol.ContentBlock{text("hello")}},
	})

	if len(resets) != 1 || resets[0] != 2 {
		t.Errorf("expected a single reset carrying 2 items, got %v", resets)
	}
	if appends != 0 {
		t.Errorf("expected no per-item notifications during bulk load, got %d", appends)
	}
}

func TestMediaBlocksSplitOutOfMessages(t *testing.T) {
	processor := NewProcessor(Callbacks{})

	processor.Append(protocol.RoleUser, []protocol.ContentBlock{
		text("here's a photo"),
		protocol.ImageBlock{Type: "image", Source: protocol.MediaSource{Type: "url", MediaType: "image/png", URL: "https://example.test/p.png"}},
	})
	processor.Close()

	items := processor.Items()
	if len(items) != 2 {
		t.Fatalf("expected message + media items, got %d", len(items))
	}
	media, ok := items[1].(*MediaItem)
	if !ok || media.MediaType != "image/png" {
		t.Errorf("expected image/png media item, got %+v", items[1])
	}
}

func TestItemsAreDetached(t *testing.T) {
	processor := NewProcessor(Callbacks{})
	processor.Append(protocol.RoleUser, []protocol.ContentBlock{text("original")})

	items := processor.Items()
	items[0].(*MessageItem).Content[0] = Text{Text: "mutated"}

	fresh := processor.Items()
	if got := fresh[0].(*MessageItem).Content[0].(Text).Text; got != "original" {
		t.Errorf("expected processor unaffected by caller mutation, got %q", got)
	}
}

func TestItemsDetachNestedToolContent(t *testing.T) {
	processor := NewProcessor(Callbacks{})
	processor.Append(protocol.RoleAssistant, []protocol.ContentBlock{
		toolUse("use-1", "lookup", map[string]any{"city": "Zagreb"}),
		toolResult("use-1", text("clear skies")),
	})

	items := processor.Items()
	message := items[0].(*MessageItem)
	message.Content[0].(ToolUse).Input["city"] = "mutated"
	result := message.Content[1].(ToolResult)
	result.Content[0] = Text{Text: "mutated"}

	fresh := processor.Items()[0].(*MessageItem)
	if got := fresh.Content[0].(ToolUse).Input["city"]; got != "Zagreb" {
		t.Errorf("expected tool input detached from caller mutation, got %q", got)
	}
	if got := fresh.Content[1].(ToolResult).Content[0].(Text).Text; got != "clear skies" {
		t.Errorf("expected nested result content detached, got %q", got)
	}
}

func TestAlertsInterleave(t *testing.T) {
	processor := NewProcessor(Callbacks{})

	processor.Append(protocol.RoleAssistant, []protocol.ContentBlock{text("streaming")})
	processor.AppendAlert(AlertWarning, "connection unstable")
	processor.Append(protocol.RoleAssistant, []protocol.ContentBlock{text("more")})

	items := processor.Items()
	if len(items) != 3 {
		t.Fatalf("expected alert to split the message run, got %d items", len(items))
	}
	alert, ok := items[1].(*AlertItem)
	if !ok || alert.Severity != AlertWarning {
		t.Errorf("expected warning alert, got %+v", items[1])
	}
}
