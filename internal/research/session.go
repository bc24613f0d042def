package research

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shuflovic/AI-bookshelf/internal/agent"
	"github.com/shuflovic/AI-bookshelf/internal/tools"
)

// Session runs one query through the agent loop and coerces the answer
// into a structured result. Create one per query; the registry and the
// completer (fallback chain) are shared read-only across sessions.
type Session struct {
	ID        string
	completer agent.Completer
	registry  *tools.Registry
	log       *zap.Logger
	maxSteps  int
	handler   agent.EventHandler
}

// NewSession creates a research session. maxSteps <= 0 selects the loop default.
func NewSession(completer agent.Completer, registry *tools.Registry, log *zap.Logger, maxSteps int) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		ID:        id,
		completer: completer,
		registry:  registry,
		log:       log.With(zap.String("session", id)),
		maxSteps:  maxSteps,
	}
}

// SetEventHandler forwards loop events (thinking, tool use) to h
func (s *Session) SetEventHandler(h agent.EventHandler) {
	s.handler = h
}

// Run executes the query and returns the validated result. Malformed
// terminal output gets exactly one repair attempt: a corrective
// instruction is appended to the trace and the loop re-invoked once.
func (s *Session) Run(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	s.log.Info("research started", zap.String("query", query))

	loop := agent.NewLoop(s.completer, s.registry, s.log, s.maxSteps)
	loop.SetEventHandler(s.handler)

	raw, err := loop.Run(ctx, BuildSystemPrompt(s.registry.List()), query)
	if err != nil {
		return nil, err
	}

	result, err := ParseResult(raw, loop.ToolCallNames())
	if errors.Is(err, ErrMalformedOutput) {
		s.log.Warn("malformed output, attempting repair", zap.Error(err))
		raw, rerr := loop.Resume(ctx, repairInstruction)
		if rerr != nil {
			return nil, rerr
		}
		result, err = ParseResult(raw, loop.ToolCallNames())
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("research completed",
		zap.String("topic", result.Topic),
		zap.Strings("tools_used", result.ToolsUsed),
		zap.Int("sources", len(result.Sources)))

	return result, nil
}
