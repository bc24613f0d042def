package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTool indicates a tool name was registered twice
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrUnknownTool indicates the requested tool doesn't exist in the registry
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidToolArguments indicates a call's arguments don't satisfy the schema
	ErrInvalidToolArguments = errors.New("invalid tool arguments")

	// ErrToolExecution indicates the underlying external service failed.
	// This is recoverable: the loop feeds it back to the model as a failed
	// observation rather than surfacing it to the caller.
	ErrToolExecution = errors.New("tool execution failed")
)

// ExecutionError wraps an external-service fault with the tool name
func ExecutionError(tool string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrToolExecution, tool, err)
}

// ExecutionErrorf wraps a formatted external-service fault with the tool name
func ExecutionErrorf(tool, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrToolExecution, tool, fmt.Sprintf(format, args...))
}
