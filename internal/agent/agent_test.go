package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shuflovic/AI-bookshelf/internal/llm"
	"github.com/shuflovic/AI-bookshelf/internal/tools"
)

// scriptedCompleter plays back a fixed sequence of turns
type scriptedCompleter struct {
	turns []*llm.Turn
	calls int
	seen  [][]llm.Message
}

func (c *scriptedCompleter) Complete(ctx context.Context, messages []llm.Message, defs []llm.OpenAITool) (*llm.Turn, error) {
	c.seen = append(c.seen, append([]llm.Message(nil), messages...))
	if c.calls >= len(c.turns) {
		return nil, errors.New("script exhausted")
	}
	turn := c.turns[c.calls]
	c.calls++
	return turn, nil
}

// echoTool answers every call with a fixed payload
type echoTool struct {
	tools.BaseTool
	output string
}

func newEchoTool(name, output string) *echoTool {
	return &echoTool{
		BaseTool: tools.BaseTool{
			Def: tools.ToolDefinition{
				Name:        name,
				Description: "echo",
				Parameters: &tools.JSONSchema{
					Type: "object",
					Properties: map[string]*tools.JSONSchema{
						"query": {Type: "string"},
					},
					Required: []string{"query"},
				},
			},
		},
		output: output,
	}
}

func (t *echoTool) Execute(ctx context.Context, args map[string]any) tools.ToolResult {
	return tools.ToolResult{Success: true, Output: t.output}
}

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	if err := r.Register(newEchoTool("search", "search results")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(newEchoTool("wikipedia", "article summary")); err != nil {
		t.Fatal(err)
	}
	return r
}

func searchCall(id string) llm.OpenAIToolCall {
	return llm.NewToolCall(id, "search", `{"query":"iceland"}`)
}

func TestLoopImmediateAnswer(t *testing.T) {
	completer := &scriptedCompleter{turns: []*llm.Turn{{Content: "done"}}}
	loop := NewLoop(completer, testRegistry(t), nil, 0)

	answer, err := loop.Run(context.Background(), "system", "question")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if answer != "done" {
		t.Errorf("answer = %q", answer)
	}
	if len(loop.ToolCallNames()) != 0 {
		t.Errorf("no tools were called, got %v", loop.ToolCallNames())
	}
}

func TestLoopToolThenAnswer(t *testing.T) {
	completer := &scriptedCompleter{turns: []*llm.Turn{
		{ToolCalls: []llm.OpenAIToolCall{searchCall("c1")}},
		{Content: "final"},
	}}
	loop := NewLoop(completer, testRegistry(t), nil, 0)

	answer, err := loop.Run(context.Background(), "system", "question")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if answer != "final" {
		t.Errorf("answer = %q", answer)
	}

	// The observation must be in the trace the second call sees
	second := completer.seen[1]
	last := second[len(second)-1]
	if last.Role != "tool" || last.Name != "search" || last.ToolCallID != "c1" {
		t.Errorf("unexpected observation message: %+v", last)
	}
	if last.Content != "search results" {
		t.Errorf("observation content = %q", last.Content)
	}

	names := loop.ToolCallNames()
	if len(names) != 1 || names[0] != "search" {
		t.Errorf("ToolCallNames = %v", names)
	}
}

func TestLoopParallelToolCalls(t *testing.T) {
	completer := &scriptedCompleter{turns: []*llm.Turn{
		{ToolCalls: []llm.OpenAIToolCall{
			searchCall("c1"),
			llm.NewToolCall("c2", "wikipedia", `{"query":"iceland"}`),
		}},
		{Content: "final"},
	}}
	loop := NewLoop(completer, testRegistry(t), nil, 0)

	if _, err := loop.Run(context.Background(), "system", "question"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Both observations are appended, in call order, before the next turn
	second := completer.seen[1]
	obs := second[len(second)-2:]
	if obs[0].Name != "search" || obs[1].Name != "wikipedia" {
		t.Errorf("observations out of order: %+v", obs)
	}

	names := loop.ToolCallNames()
	if len(names) != 2 || names[0] != "search" || names[1] != "wikipedia" {
		t.Errorf("ToolCallNames = %v", names)
	}
}

func TestLoopUnknownToolFedBack(t *testing.T) {
	completer := &scriptedCompleter{turns: []*llm.Turn{
		{ToolCalls: []llm.OpenAIToolCall{llm.NewToolCall("c1", "calculator", `{}`)}},
		{Content: "final"},
	}}
	loop := NewLoop(completer, testRegistry(t), nil, 0)

	if _, err := loop.Run(context.Background(), "system", "question"); err != nil {
		t.Fatalf("unknown tool must not kill the loop: %v", err)
	}

	second := completer.seen[1]
	last := second[len(second)-1]
	if last.Role != "tool" || !strings.HasPrefix(last.Content, "Tool error:") {
		t.Errorf("unknown tool not fed back as failed observation: %+v", last)
	}

	// The failed call still counts in the trace-derived name list
	names := loop.ToolCallNames()
	if len(names) != 1 || names[0] != "calculator" {
		t.Errorf("ToolCallNames = %v", names)
	}
}

func TestLoopStepLimit(t *testing.T) {
	// The model asks for tools forever; the loop must stop at maxSteps
	var turns []*llm.Turn
	for i := 0; i < 10; i++ {
		turns = append(turns, &llm.Turn{ToolCalls: []llm.OpenAIToolCall{searchCall("c1")}})
	}
	completer := &scriptedCompleter{turns: turns}
	loop := NewLoop(completer, testRegistry(t), nil, 3)

	_, err := loop.Run(context.Background(), "system", "question")
	if !errors.Is(err, ErrStepLimitExceeded) {
		t.Fatalf("expected ErrStepLimitExceeded, got %v", err)
	}
	if completer.calls != 3 {
		t.Errorf("expected exactly 3 model calls, got %d", completer.calls)
	}
}

func TestLoopResumeFreshBudget(t *testing.T) {
	completer := &scriptedCompleter{turns: []*llm.Turn{
		{Content: "not json"},
		{Content: `{"fixed": true}`},
	}}
	loop := NewLoop(completer, testRegistry(t), nil, 1)

	if _, err := loop.Run(context.Background(), "system", "question"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Resume keeps the trace but restarts the step budget
	answer, err := loop.Resume(context.Background(), "fix your answer")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if answer != `{"fixed": true}` {
		t.Errorf("answer = %q", answer)
	}

	second := completer.seen[1]
	if second[len(second)-1].Content != "fix your answer" {
		t.Errorf("repair instruction not appended: %+v", second[len(second)-1])
	}
	if second[0].Role != "system" {
		t.Errorf("trace lost on resume: %+v", second[0])
	}
}

func TestLoopCompleterFailure(t *testing.T) {
	completer := &scriptedCompleter{} // script exhausted immediately
	loop := NewLoop(completer, testRegistry(t), nil, 0)

	_, err := loop.Run(context.Background(), "system", "question")
	if err == nil || !strings.Contains(err.Error(), "script exhausted") {
		t.Fatalf("expected completer error to surface, got %v", err)
	}
}

// recordingHandler records handler callbacks in order
type recordingHandler struct {
	thinking []int
	toolUse  []string
	results  []string
}

func (h *recordingHandler) OnThinking(step int) { h.thinking = append(h.thinking, step) }
func (h *recordingHandler) OnToolUse(name string, args map[string]any) {
	h.toolUse = append(h.toolUse, name)
}
func (h *recordingHandler) OnToolResult(name string, result tools.ToolResult) {
	h.results = append(h.results, name)
}

func TestLoopEventHandler(t *testing.T) {
	completer := &scriptedCompleter{turns: []*llm.Turn{
		{ToolCalls: []llm.OpenAIToolCall{searchCall("c1")}},
		{Content: "final"},
	}}
	loop := NewLoop(completer, testRegistry(t), nil, 0)
	handler := &recordingHandler{}
	loop.SetEventHandler(handler)

	if _, err := loop.Run(context.Background(), "system", "question"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(handler.thinking) != 2 || handler.thinking[0] != 1 || handler.thinking[1] != 2 {
		t.Errorf("thinking steps = %v", handler.thinking)
	}
	if len(handler.toolUse) != 1 || handler.toolUse[0] != "search" {
		t.Errorf("toolUse = %v", handler.toolUse)
	}
	if len(handler.results) != 1 || handler.results[0] != "search" {
		t.Errorf("results = %v", handler.results)
	}
}
