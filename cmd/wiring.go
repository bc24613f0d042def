package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shuflovic/AI-bookshelf/internal/agent"
	"github.com/shuflovic/AI-bookshelf/internal/config"
	"github.com/shuflovic/AI-bookshelf/internal/events"
	"github.com/shuflovic/AI-bookshelf/internal/llm"
	"github.com/shuflovic/AI-bookshelf/internal/research"
	"github.com/shuflovic/AI-bookshelf/internal/tools"
)

// researchFn runs one query through a fresh session
type researchFn func(ctx context.Context, query string, handler agent.EventHandler) (*research.Result, error)

// newLogger builds the application logger
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Development = true
	}
	return cfg.Build()
}

// buildRegistry registers the built-in research tools.
// Registration happens once here, before any session starts.
func buildRegistry(log *zap.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewWebSearchTool(log)); err != nil {
		return nil, err
	}
	if err := registry.Register(tools.NewWikipediaTool(log)); err != nil {
		return nil, err
	}
	return registry, nil
}

// buildChain constructs the provider fallback chain from available
// credentials: Gemini primary, Claude secondary. A provider with no
// credential is skipped here, not at call time; zero usable providers
// fails fast at startup.
func buildChain(log *zap.Logger) (*llm.Chain, error) {
	cfg := config.Get()

	var providers []llm.Provider
	if key := config.GetGeminiKey(); key != "" {
		providers = append(providers, llm.NewGemini(key, cfg.GeminiModel))
	}
	if key := config.GetAnthropicKey(); key != "" {
		providers = append(providers, llm.NewAnthropic(key, cfg.AnthropicModel))
	}

	chain, err := llm.NewChain(log, providers...)
	if err != nil {
		return nil, fmt.Errorf("no usable providers: set GEMINI_API_KEY or ANTHROPIC_API_KEY (or use 'bookshelf config set'): %w", err)
	}

	log.Info("provider chain ready", zap.Strings("providers", chain.Names()))
	return chain, nil
}

// newPublisher connects the optional NATS event publisher.
// Returns nil (safe to use) when no NATS URL is configured.
func newPublisher(log *zap.Logger) *events.Publisher {
	cfg := config.Get()
	if cfg.NATSURL == "" {
		return nil
	}

	natsCfg := events.DefaultConfig()
	natsCfg.URL = cfg.NATSURL
	pub, err := events.Connect(natsCfg, log)
	if err != nil {
		log.Warn("event publishing disabled", zap.Error(err))
		return nil
	}
	return pub
}

// newResearcher wires chain + registry into a per-query session factory
func newResearcher(log *zap.Logger, pub *events.Publisher, maxSteps int) (researchFn, error) {
	chain, err := buildChain(log)
	if err != nil {
		return nil, err
	}
	registry, err := buildRegistry(log)
	if err != nil {
		return nil, err
	}
	if maxSteps <= 0 {
		maxSteps = config.Get().MaxSteps
	}

	return func(ctx context.Context, query string, handler agent.EventHandler) (*research.Result, error) {
		sess := research.NewSession(chain, registry, log, maxSteps)

		handlers := multiHandler{&publishHandler{pub: pub, sessionID: sess.ID}}
		if handler != nil {
			handlers = append(handlers, handler)
		}
		sess.SetEventHandler(handlers)

		pub.SessionStarted(sess.ID, query)
		result, err := sess.Run(ctx, query)
		if err != nil {
			pub.SessionFailed(sess.ID, err)
			return nil, err
		}
		pub.SessionCompleted(sess.ID, result)
		return result, nil
	}, nil
}

// publishHandler forwards tool activity to the event publisher
type publishHandler struct {
	pub       *events.Publisher
	sessionID string
}

func (h *publishHandler) OnThinking(step int) {}

func (h *publishHandler) OnToolUse(name string, args map[string]any) {
	h.pub.ToolInvoked(h.sessionID, name)
}

func (h *publishHandler) OnToolResult(name string, result tools.ToolResult) {}

// multiHandler fans events out to several handlers
type multiHandler []agent.EventHandler

func (m multiHandler) OnThinking(step int) {
	for _, h := range m {
		h.OnThinking(step)
	}
}

func (m multiHandler) OnToolUse(name string, args map[string]any) {
	for _, h := range m {
		h.OnToolUse(name, args)
	}
}

func (m multiHandler) OnToolResult(name string, result tools.ToolResult) {
	for _, h := range m {
		h.OnToolResult(name, result)
	}
}
