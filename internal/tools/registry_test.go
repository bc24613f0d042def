package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shuflovic/AI-bookshelf/internal/llm"
)

// fakeTool records executions for registry tests
type fakeTool struct {
	BaseTool
	executed bool
	result   ToolResult
}

func newFakeTool(name string) *fakeTool {
	return &fakeTool{
		BaseTool: BaseTool{
			Def: ToolDefinition{
				Name:        name,
				Description: "test tool",
				Parameters: &JSONSchema{
					Type: "object",
					Properties: map[string]*JSONSchema{
						"query": {Type: "string"},
					},
					Required: []string{"query"},
				},
			},
		},
		result: ToolResult{Success: true, Output: "ok"},
	}
}

func (t *fakeTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	t.executed = true
	return t.result
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newFakeTool("search")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(newFakeTool("search"))
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegistryUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}

	result := r.Execute(context.Background(), ToolCall{Name: "missing"})
	if result.Success {
		t.Fatal("executing an unknown tool should fail")
	}
	if !errors.Is(result.Err, ErrUnknownTool) {
		t.Errorf("result.Err = %v, want ErrUnknownTool", result.Err)
	}
}

func TestRegistryListOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"search", "wikipedia", "calculator"} {
		if err := r.Register(newFakeTool(name)); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}

	defs := r.List()
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}
	for i, want := range []string{"search", "wikipedia", "calculator"} {
		if defs[i].Name != want {
			t.Errorf("defs[%d] = %q, want %q (registration order)", i, defs[i].Name, want)
		}
	}
}

func TestExecuteValidatesBeforeRunning(t *testing.T) {
	r := NewRegistry()
	tool := newFakeTool("search")
	_ = r.Register(tool)

	result := r.Execute(context.Background(), ToolCall{Name: "search", Arguments: map[string]any{}})
	if result.Success {
		t.Fatal("expected validation failure for missing required argument")
	}
	if !errors.Is(result.Err, ErrInvalidToolArguments) {
		t.Errorf("result.Err = %v, want ErrInvalidToolArguments", result.Err)
	}
	if tool.executed {
		t.Error("tool ran despite failed validation")
	}
}

func TestExecuteTypeMismatch(t *testing.T) {
	r := NewRegistry()
	tool := newFakeTool("search")
	_ = r.Register(tool)

	result := r.Execute(context.Background(), ToolCall{
		Name:      "search",
		Arguments: map[string]any{"query": 42},
	})
	if result.Success || tool.executed {
		t.Fatal("expected type mismatch to fail before execution")
	}
}

func TestExecuteSuccess(t *testing.T) {
	r := NewRegistry()
	tool := newFakeTool("search")
	_ = r.Register(tool)

	result := r.Execute(context.Background(), ToolCall{
		Name:      "search",
		Arguments: map[string]any{"query": "iceland"},
	})
	if !result.Success || result.Output != "ok" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !tool.executed {
		t.Error("tool did not run")
	}
}

func TestParseCall(t *testing.T) {
	call, err := ParseCall(llm.NewToolCall("id1", "search", `{"query":"iceland"}`))
	if err != nil {
		t.Fatalf("ParseCall: %v", err)
	}
	if call.ID != "id1" || call.Name != "search" || call.Arguments["query"] != "iceland" {
		t.Errorf("unexpected call: %+v", call)
	}

	// Empty arguments decode to an empty map
	call, err = ParseCall(llm.NewToolCall("id2", "search", ""))
	if err != nil || call.Arguments == nil {
		t.Errorf("empty arguments: call=%+v err=%v", call, err)
	}

	// Malformed JSON keeps the name so the failure can be traced
	call, err = ParseCall(llm.NewToolCall("id3", "search", `{"query":`))
	if !errors.Is(err, ErrInvalidToolArguments) {
		t.Fatalf("expected ErrInvalidToolArguments, got %v", err)
	}
	if call.Name != "search" {
		t.Errorf("call name lost on parse failure: %+v", call)
	}
}

func TestOpenAIToolDefinitions(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(newFakeTool("search"))

	defs := r.OpenAIToolDefinitions()
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	if defs[0].Type != "function" || defs[0].Function.Name != "search" {
		t.Errorf("unexpected definition: %+v", defs[0])
	}
	params := defs[0].Function.Parameters
	if params["type"] != "object" {
		t.Errorf("parameters type = %v", params["type"])
	}
	required, _ := params["required"].([]string)
	if len(required) != 1 || required[0] != "query" {
		t.Errorf("required = %v", params["required"])
	}
}

func TestCheckTypeIntegerCoercion(t *testing.T) {
	// JSON numbers decode as float64; whole values pass as integers
	if err := checkType(float64(3), "integer"); err != nil {
		t.Errorf("whole float64 should validate as integer: %v", err)
	}
	if err := checkType(float64(3.5), "integer"); err == nil {
		t.Error("fractional float64 should not validate as integer")
	}
	if err := checkType("3", "integer"); err == nil ||
		!strings.Contains(err.Error(), "expected integer") {
		t.Errorf("string should not validate as integer: %v", err)
	}
}
