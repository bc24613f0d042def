// Package events publishes research session lifecycle events over NATS.
// Publishing is best-effort observability: a nil or disconnected publisher
// never affects session outcomes.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/shuflovic/AI-bookshelf/internal/research"
)

// Subjects for research lifecycle events
const (
	SubjectSessionStarted   = "research.events.session.started"
	SubjectToolInvoked      = "research.events.tool.invoked"
	SubjectSessionCompleted = "research.events.session.completed"
	SubjectSessionFailed    = "research.events.session.failed"
)

// Config contains NATS connection configuration
type Config struct {
	URL            string        `json:"url"`
	ConnectTimeout time.Duration `json:"connect_timeout,omitempty"`
	ReconnectWait  time.Duration `json:"reconnect_wait,omitempty"`
	MaxReconnects  int           `json:"max_reconnects,omitempty"`
}

// DefaultConfig returns the default NATS configuration
func DefaultConfig() Config {
	return Config{
		URL:            nats.DefaultURL,
		ConnectTimeout: 5 * time.Second,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  60,
	}
}

// Event is the wire payload for all research events
type Event struct {
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	ToolsUsed []string  `json:"tools_used,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Publisher emits research events on a NATS connection.
// All methods are nil-receiver safe so wiring stays optional.
type Publisher struct {
	conn *nats.Conn
	log  *zap.Logger
}

// Connect establishes the NATS connection for event publishing
func Connect(cfg Config, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.URL == "" {
		cfg = DefaultConfig()
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("bookshelf-research"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	log.Info("event publisher connected", zap.String("url", cfg.URL))
	return &Publisher{conn: conn, log: log}, nil
}

// Close drains and closes the connection
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}

// SessionStarted reports a new research session
func (p *Publisher) SessionStarted(sessionID, query string) {
	p.publish(SubjectSessionStarted, Event{SessionID: sessionID, Query: query})
}

// ToolInvoked reports one tool call within a session
func (p *Publisher) ToolInvoked(sessionID, tool string) {
	p.publish(SubjectToolInvoked, Event{SessionID: sessionID, Tool: tool})
}

// SessionCompleted reports a validated result
func (p *Publisher) SessionCompleted(sessionID string, result *research.Result) {
	p.publish(SubjectSessionCompleted, Event{
		SessionID: sessionID,
		Topic:     result.Topic,
		ToolsUsed: result.ToolsUsed,
	})
}

// SessionFailed reports a session-fatal error
func (p *Publisher) SessionFailed(sessionID string, err error) {
	p.publish(SubjectSessionFailed, Event{SessionID: sessionID, Error: err.Error()})
}

func (p *Publisher) publish(subject string, event Event) {
	if p == nil || p.conn == nil {
		return
	}
	event.Time = time.Now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn("event publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
