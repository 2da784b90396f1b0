package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/otolabs/oto-core/core/protocol"
)

type echoInput struct {
	Message string `json:"message" jsonschema:"description=Text to echo back"`
}

func TestNewToolReflectsInputSchema(t *testing.T) {
	tool := NewTool[echoInput]("echo", "Echo the given message",
		func(ctx context.Context, input map[string]any) ([]protocol.ContentBlock, error) {
			return nil, nil
		})

	if tool.Name != "echo" || tool.Description != "Echo the given message" {
		t.Errorf("unexpected tool identity %q / %q", tool.Name, tool.Description)
	}
	if tool.InputSchema == nil {
		t.Fatal("expected a reflected input schema")
	}
	if _, ok := tool.InputSchema.Properties.Get("message"); !ok {
		t.Error("expected schema to carry the message property")
	}
}

func TestRegistryRejectsInvalidAndDuplicateTools(t *testing.T) {
	registry := newToolRegistry()

	handler := func(context.Context, map[string]any) ([]protocol.ContentBlock, error) { return nil, nil }
	if err := registry.register(Tool{Name: "", handler: handler}); err == nil {
		t.Error("expected rejection of unnamed tool")
	}
	if err := registry.register(Tool{Name: "lookup"}); err == nil {
		t.Error("expected rejection of tool without handler")
	}
	if err := registry.register(Tool{Name: "lookup", handler: handler}); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}
	if err := registry.register(Tool{Name: "lookup", handler: handler}); err == nil {
		t.Error("expected rejection of duplicate registration")
	}
}

func TestRegistryCallWrapsOutcomes(t *testing.T) {
	registry := newToolRegistry()
	_ = registry.register(Tool{Name: "ok", handler: func(context.Context, map[string]any) ([]protocol.ContentBlock, error) {
		return []protocol.ContentBlock{protocol.TextBlock{Type: "text", Text: "done"}}, nil
	}})
	_ = registry.register(Tool{Name: "boom", handler: func(context.Context, map[string]any) ([]protocol.ContentBlock, error) {
		return nil, errors.New("backend unavailable")
	}})

	decode := func(t *testing.T, v any) (toolUseID string, isError bool) {
		t.Helper()
		encoded, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to encode result: %v", err)
		}
		var envelope struct {
			Type      protocol.ControlType `json:"type"`
			ToolUseID string               `json:"tool_use_id"`
			IsError   bool                 `json:"is_error"`
		}
		if err := json.Unmarshal(encoded, &envelope); err != nil {
			t.Fatalf("failed to decode result: %v", err)
		}
		if envelope.Type != protocol.TypeToolResult {
			t.Errorf("expected tool_result envelope, got %q", envelope.Type)
		}
		return envelope.ToolUseID, envelope.IsError
	}

	toolUseID, isError := decode(t, registry.call(context.Background(), protocol.ToolCallPayload{ID: "use-1", Name: "ok"}))
	if isError {
		t.Error("expected success result")
	}
	if toolUseID != "use-1" {
		t.Errorf("expected result bound to use-1, got %q", toolUseID)
	}

	if _, isError := decode(t, registry.call(context.Background(), protocol.ToolCallPayload{ID: "use-2", Name: "boom"})); !isError {
		t.Error("expected handler failure to surface as error result")
	}

	if _, isError := decode(t, registry.call(context.Background(), protocol.ToolCallPayload{ID: "use-3", Name: "missing"})); !isError {
		t.Error("expected unknown tool to surface as error result")
	}
}
