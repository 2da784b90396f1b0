package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/otolabs/oto-core/core/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ToolHandler executes one client-side tool call and returns its result
// content. A returned error becomes an is_error tool result, not a dropped
// call.
type ToolHandler func(ctx context.Context, input map[string]any) ([]protocol.ContentBlock, error)

// Tool is a client-side capability the service may invoke mid-conversation.
type Tool struct {
	Name        string
	Description string
	// InputSchema documents the expected input shape; reflected from a Go
	// type via NewTool.
	InputSchema *jsonschema.Schema

	handler ToolHandler
}

// NewTool builds a tool whose input schema is reflected from the inputShape
// type's JSON tags.
func NewTool[T any](name, description string, handler ToolHandler) Tool {
	reflector := jsonschema.Reflector{DoNotReference: true}
	var inputShape T
	return Tool{
		Name:        name,
		Description: description,
		InputSchema: reflector.Reflect(&inputShape),
		handler:     handler,
	}
}

type toolRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func newToolRegistry() *toolRegistry {
	return &toolRegistry{tools: map[string]Tool{}}
}

func (r *toolRegistry) register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if tool.handler == nil {
		return fmt.Errorf("tool %q has no handler", tool.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

func (r *toolRegistry) lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// call executes the named tool and shapes the outcome into an outbound tool
// result. Unknown tools and handler failures produce error results so the
// service always gets an answer for every call.
func (r *toolRegistry) call(ctx context.Context, payload protocol.ToolCallPayload) any {
	ctx, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", payload.Name))

	tool, ok := r.lookup(payload.Name)
	if !ok {
		err := fmt.Errorf("tool not found: %s", payload.Name)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return protocol.NewToolResult(payload.ID, []protocol.ContentBlock{
			protocol.TextBlock{Type: "text", Text: err.Error()},
		}, true)
	}

	content, err := tool.handler(ctx, payload.Input)
	if err != nil {
		err = fmt.Errorf("failed to execute tool %q: %w", payload.Name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return protocol.NewToolResult(payload.ID, []protocol.ContentBlock{
			protocol.TextBlock{Type: "text", Text: err.Error()},
		}, true)
	}
	return protocol.NewToolResult(payload.ID, content, false)
}
