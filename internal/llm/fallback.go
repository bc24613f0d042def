package llm

import (
	"context"

	"go.uber.org/zap"
)

// Chain tries an ordered list of providers, advancing to the next on failure.
// Each call starts fresh at the primary: a provider's failure may be
// query-specific rather than systemic, so there is no sticky demotion.
type Chain struct {
	providers []Provider
	log       *zap.Logger
}

// NewChain creates a fallback chain over the given providers, primary first.
// Fails with ErrNoProviders when the list is empty so misconfiguration
// surfaces at startup, not on the first query.
func NewChain(log *zap.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{providers: providers, log: log}, nil
}

// Names returns the provider names in chain order
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Complete tries each provider in order. A failed provider is not retried
// within the same call. If every provider fails the chain fails with an
// ExhaustedError aggregating each failure in provider order.
func (c *Chain) Complete(ctx context.Context, messages []Message, tools []OpenAITool) (*Turn, error) {
	var failures []ProviderFailure

	for _, p := range c.providers {
		turn, err := p.Complete(ctx, messages, tools)
		if err == nil {
			return turn, nil
		}
		if ctx.Err() != nil {
			// Cancellation is not a provider fault; don't advance the chain
			return nil, ctx.Err()
		}
		c.log.Warn("provider failed, advancing chain",
			zap.String("provider", p.Name()),
			zap.Error(err))
		failures = append(failures, ProviderFailure{Provider: p.Name(), Err: err})
	}

	return nil, &ExhaustedError{Failures: failures}
}
