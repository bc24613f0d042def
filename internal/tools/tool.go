package tools

import (
	"context"
	"fmt"
)

// Tool is the interface all tools must implement
type Tool interface {
	// Definition returns the structured tool definition
	Definition() ToolDefinition

	// Execute runs the tool with the given arguments
	Execute(ctx context.Context, args map[string]any) ToolResult

	// Validate checks if the arguments are valid
	Validate(args map[string]any) error
}

// BaseTool provides common functionality for tools
type BaseTool struct {
	Def ToolDefinition
}

// Definition returns the tool definition
func (b *BaseTool) Definition() ToolDefinition {
	return b.Def
}

// Validate checks required fields are present and declared fields
// have the expected primitive type
func (b *BaseTool) Validate(args map[string]any) error {
	if b.Def.Parameters == nil {
		return nil
	}
	for _, required := range b.Def.Parameters.Required {
		if _, ok := args[required]; !ok {
			return fmt.Errorf("missing required argument: %s", required)
		}
	}
	for name, value := range args {
		prop, ok := b.Def.Parameters.Properties[name]
		if !ok {
			continue
		}
		if err := checkType(value, prop.Type); err != nil {
			return fmt.Errorf("argument %s: %w", name, err)
		}
	}
	return nil
}

// checkType validates a value against a primitive JSON Schema type
func checkType(value any, expected string) error {
	switch expected {
	case "", "object":
		return nil
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		switch value.(type) {
		case float32, float64, int, int64:
			return nil
		}
	case "integer":
		switch v := value.(type) {
		case int, int64:
			return nil
		case float64:
			if v == float64(int64(v)) {
				return nil
			}
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s but got %T", expected, value)
}
