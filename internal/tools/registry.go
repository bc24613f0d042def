package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shuflovic/AI-bookshelf/internal/llm"
)

// Registry manages tool registration and execution.
// Registration happens once at startup; after that the registry is
// read-only and safe to share across concurrent sessions.
type Registry struct {
	mu    sync.Mutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a new tool registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry.
// Fails with ErrDuplicateTool if the name is already taken.
func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}
	r.tools[def.Name] = tool
	r.order = append(r.order, def.Name)
	return nil
}

// Get retrieves a tool by name, failing with ErrUnknownTool
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// List returns all registered tool definitions in registration order.
// Order matters: some providers are sensitive to tool ordering in prompts.
func (r *Registry) List() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// OpenAIToolDefinitions returns tool definitions in OpenAI-compatible format
func (r *Registry) OpenAIToolDefinitions() []llm.OpenAITool {
	defs := r.List()
	result := make([]llm.OpenAITool, 0, len(defs))
	for _, def := range defs {
		result = append(result, llm.OpenAITool{
			Type: "function",
			Function: llm.OpenAIFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  jsonSchemaToMap(def.Parameters),
			},
		})
	}
	return result
}

// ParseCall converts a model tool call from the wire format into a
// registry call with decoded arguments
func ParseCall(tc llm.OpenAIToolCall) (ToolCall, error) {
	call := ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: map[string]any{}}
	if tc.Function.Arguments == "" {
		return call, nil
	}
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Arguments); err != nil {
		return call, fmt.Errorf("%w: %s: malformed arguments JSON: %v", ErrInvalidToolArguments, tc.Function.Name, err)
	}
	return call, nil
}

// jsonSchemaToMap converts JSONSchema to map for provider APIs.
// Only the basic schema features used by the built-in tools are handled.
func jsonSchemaToMap(schema *JSONSchema) map[string]interface{} {
	if schema == nil {
		return map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		}
	}

	result := map[string]interface{}{
		"type": schema.Type,
	}

	if schema.Description != "" {
		result["description"] = schema.Description
	}

	if len(schema.Properties) > 0 {
		props := make(map[string]interface{})
		for name, prop := range schema.Properties {
			props[name] = jsonSchemaToMap(prop)
		}
		result["properties"] = props
	}

	if len(schema.Required) > 0 {
		result["required"] = schema.Required
	}

	if len(schema.Enum) > 0 {
		result["enum"] = schema.Enum
	}

	return result
}

// Execute runs a tool by name with arguments. Argument validation happens
// before the tool runs: a call that fails validation is never sent to the
// external service. Failures come back inside the ToolResult so the loop
// can feed them to the model as observations.
func (r *Registry) Execute(ctx context.Context, call ToolCall) ToolResult {
	tool, err := r.Get(call.Name)
	if err != nil {
		return ToolResult{Success: false, Error: err.Error(), Err: err}
	}

	if err := tool.Validate(call.Arguments); err != nil {
		wrapped := fmt.Errorf("%w: %s: %v", ErrInvalidToolArguments, call.Name, err)
		return ToolResult{Success: false, Error: wrapped.Error(), Err: wrapped}
	}

	return tool.Execute(ctx, call.Arguments)
}
