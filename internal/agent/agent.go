package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shuflovic/AI-bookshelf/internal/llm"
	"github.com/shuflovic/AI-bookshelf/internal/tools"
)

// DefaultMaxSteps bounds the think/act cycle when the model never converges
const DefaultMaxSteps = 8

// Completer produces the next turn from the conversation so far.
// Satisfied by a single provider or by the fallback chain.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, tools []llm.OpenAITool) (*llm.Turn, error)
}

// EventHandler receives callbacks during loop execution
type EventHandler interface {
	OnThinking(step int)
	OnToolUse(name string, args map[string]any)
	OnToolResult(name string, result tools.ToolResult)
}

// Loop drives the think / call-tool / observe cycle until the model emits
// a terminal answer or the step limit is reached. One loop serves one
// research session; it is not safe for concurrent use.
type Loop struct {
	completer Completer
	registry  *tools.Registry
	log       *zap.Logger
	maxSteps  int
	handler   EventHandler

	state     State
	messages  []llm.Message
	callNames []string // tool names from every tool call, in trace order

	answer string
	err    error
}

// NewLoop creates an agent loop. maxSteps <= 0 selects DefaultMaxSteps.
func NewLoop(completer Completer, registry *tools.Registry, log *zap.Logger, maxSteps int) *Loop {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{
		completer: completer,
		registry:  registry,
		log:       log,
		maxSteps:  maxSteps,
		state:     StateThinking,
	}
}

// SetEventHandler sets the callback handler for loop events
func (l *Loop) SetEventHandler(h EventHandler) {
	l.handler = h
}

// Run starts the loop with a fresh trace and returns the terminal answer text
func (l *Loop) Run(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	l.messages = []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userMessage},
	}
	return l.run(ctx)
}

// Resume appends an instruction to the existing trace and re-enters the
// loop with a fresh step budget. Used for the single repair attempt after
// malformed terminal output.
func (l *Loop) Resume(ctx context.Context, instruction string) (string, error) {
	l.messages = append(l.messages, llm.Message{Role: "user", Content: instruction})
	return l.run(ctx)
}

// Trace returns the conversation trace so far
func (l *Loop) Trace() []llm.Message {
	return l.messages
}

// ToolCallNames returns the distinct tool names appearing in the trace's
// tool calls, in first-call order. Failed and unknown-tool calls count:
// the trace is the source of truth, not the model's self-report.
func (l *Loop) ToolCallNames() []string {
	seen := make(map[string]bool, len(l.callNames))
	var names []string
	for _, name := range l.callNames {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// run executes the state machine until a terminal state
func (l *Loop) run(ctx context.Context) (string, error) {
	toolDefs := l.registry.OpenAIToolDefinitions()
	steps := 0
	l.state = StateThinking

	var pending []llm.OpenAIToolCall

	for {
		switch l.state {
		case StateThinking:
			steps++
			if steps > l.maxSteps {
				l.err = fmt.Errorf("%w: no terminal answer after %d steps", ErrStepLimitExceeded, l.maxSteps)
				l.state = StateFailed
				continue
			}
			if l.handler != nil {
				l.handler.OnThinking(steps)
			}
			l.log.Debug("thinking", zap.Int("step", steps))

			turn, err := l.completer.Complete(ctx, l.messages, toolDefs)
			if err != nil {
				l.err = err
				l.state = StateFailed
				continue
			}

			if turn.IsFinal() {
				l.messages = append(l.messages, llm.Message{Role: "assistant", Content: turn.Content})
				l.answer = turn.Content
				l.state = StateDone
				continue
			}

			l.messages = append(l.messages, llm.Message{
				Role:      "assistant",
				Content:   turn.Content,
				ToolCalls: turn.ToolCalls,
			})
			pending = turn.ToolCalls
			l.state = StateCallingTools

		case StateCallingTools:
			if err := l.callTools(ctx, pending); err != nil {
				l.err = err
				l.state = StateFailed
				continue
			}
			pending = nil
			l.state = StateThinking

		case StateDone:
			return l.answer, nil

		case StateFailed:
			l.log.Error("agent loop failed", zap.Error(l.err))
			return "", l.err
		}
	}
}

// callTools executes one turn's tool calls concurrently and appends each
// observation to the trace. All observations are collected before the loop
// advances; failures become error text for the model, never loop errors.
func (l *Loop) callTools(ctx context.Context, pending []llm.OpenAIToolCall) error {
	calls := make([]tools.ToolCall, len(pending))
	results := make([]tools.ToolResult, len(pending))

	g := new(errgroup.Group)
	for i, tc := range pending {
		call, err := tools.ParseCall(tc)
		calls[i] = call
		if err != nil {
			results[i] = tools.ToolResult{Success: false, Error: err.Error(), Err: err}
			continue
		}
		if l.handler != nil {
			l.handler.OnToolUse(call.Name, call.Arguments)
		}
		i, call := i, call
		g.Go(func() error {
			results[i] = l.registry.Execute(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	for i, call := range calls {
		l.callNames = append(l.callNames, call.Name)
		result := results[i]

		if l.handler != nil {
			l.handler.OnToolResult(call.Name, result)
		}

		content := result.Output
		if !result.Success {
			content = fmt.Sprintf("Tool error: %s", result.Error)
			l.log.Warn("tool call failed",
				zap.String("tool", call.Name),
				zap.String("error", result.Error))
		}

		l.messages = append(l.messages, llm.Message{
			Role:       "tool",
			Name:       call.Name,
			Content:    content,
			ToolCallID: pending[i].ID,
		})
	}

	return nil
}
