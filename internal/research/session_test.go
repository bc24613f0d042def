package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuflovic/AI-bookshelf/internal/llm"
	"github.com/shuflovic/AI-bookshelf/internal/tools"
)

// scriptedCompleter plays back a fixed sequence of model turns
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

// stubTool returns a fixed payload
type stubTool struct {
	tools.BaseTool
	output string
}

func (t *stubTool) Execute(ctx context.Context, args map[string]any) tools.ToolResult {
	return tools.ToolResult{Success: true, Output: t.output}
}

func newStubTool(name, output string) *stubTool {
	return &stubTool{
		BaseTool: tools.BaseTool{
			Def: tools.ToolDefinition{
				Name:        name,
				Description: "stub",
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

func sessionRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	require.NoError(t, r.Register(newStubTool("search", "web facts")))
	require.NoError(t, r.Register(newStubTool("wikipedia", "encyclopedia facts")))
	return r
}

const icelandAnswer = `{"topic": "Iceland", "summary": "Iceland is a Nordic island country in the North Atlantic.", "sources": ["https://en.wikipedia.org/wiki/Iceland"]}`

func TestSessionRun(t *testing.T) {
	completer := &scriptedCompleter{turns: []*llm.Turn{
		{ToolCalls: []llm.OpenAIToolCall{llm.NewToolCall("c1", "wikipedia", `{"query":"Iceland"}`)}},
		{Content: icelandAnswer},
	}}

	sess := NewSession(completer, sessionRegistry(t), nil, 0)
	result, err := sess.Run(context.Background(), "Tell me about Iceland")
	require.NoError(t, err)

	assert.Equal(t, "Iceland", result.Topic)
	assert.Contains(t, result.Summary, "Nordic island country")
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/Iceland"}, result.Sources)
	assert.Equal(t, []string{"wikipedia"}, result.ToolsUsed)
	assert.NotEmpty(t, sess.ID)
}

func TestSessionEmptyQuery(t *testing.T) {
	sess := NewSession(&scriptedCompleter{}, sessionRegistry(t), nil, 0)

	_, err := sess.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSessionRepairsMalformedOutputOnce(t *testing.T) {
	completer := &scriptedCompleter{turns: []*llm.Turn{
		{Content: "I think Iceland is nice but here is no JSON."},
		{Content: icelandAnswer},
	}}

	sess := NewSession(completer, sessionRegistry(t), nil, 0)
	result, err := sess.Run(context.Background(), "Tell me about Iceland")
	require.NoError(t, err)
	assert.Equal(t, "Iceland", result.Topic)

	// The second model call must carry the repair instruction on the trace
	require.Len(t, completer.seen, 2)
	second := completer.seen[1]
	last := second[len(second)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, repairInstruction, last.Content)
}

func TestSessionRepairFailsSecondTime(t *testing.T) {
	completer := &scriptedCompleter{turns: []*llm.Turn{
		{Content: "still not json"},
		{Content: "and again not json"},
	}}

	sess := NewSession(completer, sessionRegistry(t), nil, 0)
	_, err := sess.Run(context.Background(), "Tell me about Iceland")
	assert.ErrorIs(t, err, ErrMalformedOutput)
	// Exactly one repair attempt
	assert.Equal(t, 2, completer.calls)
}

func TestSessionSystemPromptListsTools(t *testing.T) {
	completer := &scriptedCompleter{turns: []*llm.Turn{{Content: icelandAnswer}}}

	sess := NewSession(completer, sessionRegistry(t), nil, 0)
	_, err := sess.Run(context.Background(), "Tell me about Iceland")
	require.NoError(t, err)

	system := completer.seen[0][0]
	require.Equal(t, "system", system.Role)
	// Tools appear in registration order
	searchIdx := strings.Index(system.Content, "- search:")
	wikiIdx := strings.Index(system.Content, "- wikipedia:")
	assert.Greater(t, searchIdx, -1)
	assert.Greater(t, wikiIdx, searchIdx)
}

func TestSessionPropagatesLoopErrors(t *testing.T) {
	completer := &scriptedCompleter{} // fails immediately
	sess := NewSession(completer, sessionRegistry(t), nil, 0)

	_, err := sess.Run(context.Background(), "Tell me about Iceland")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script exhausted")
}
