// Package tui provides the interactive terminal interface for running
// research sessions.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shuflovic/AI-bookshelf/internal/research"
)

// EventKind classifies session activity events
type EventKind int

const (
	EventThinking EventKind = iota
	EventToolUse
	EventToolResult
	EventDone
	EventError
)

// Event is one piece of session activity streamed to the UI
type Event struct {
	Kind    EventKind
	Step    int
	Tool    string
	IsError bool
	Result  *research.Result
	Err     error
}

// Runner starts a research session for query and streams events on the
// returned channel, closing it after EventDone or EventError.
type Runner func(ctx context.Context, query string) <-chan Event

// Model is the main TUI model
type Model struct {
	runner Runner

	input   textinput.Model
	spinner spinner.Model

	running  bool
	activity []string
	result   *research.Result
	err      error

	events <-chan Event
	cancel context.CancelFunc

	width int
}

type eventMsg Event

// New creates the TUI model
func New(runner Runner) Model {
	ti := textinput.New()
	ti.Placeholder = "What do you want to research?"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		runner:  runner,
		input:   ti,
		spinner: sp,
		width:   80,
	}
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit

		case tea.KeyEnter:
			if m.running {
				return m, nil
			}
			query := strings.TrimSpace(m.input.Value())
			if query == "" {
				return m, nil
			}
			return m.startResearch(query)
		}

	case eventMsg:
		return m.handleEvent(Event(msg))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startResearch kicks off a session and begins listening for events
func (m Model) startResearch(query string) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.result = nil
	m.err = nil
	m.activity = nil
	m.events = m.runner(ctx, query)
	m.input.Blur()

	return m, tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// waitForEvent reads the next session event off the channel
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(event)
	}
}

func (m Model) handleEvent(event Event) (tea.Model, tea.Cmd) {
	switch event.Kind {
	case EventThinking:
		m.activity = append(m.activity, activityStyle.Render(fmt.Sprintf("thinking (step %d)...", event.Step)))

	case EventToolUse:
		m.activity = append(m.activity, toolStyle.Render("→ "+event.Tool))

	case EventToolResult:
		if event.IsError {
			m.activity = append(m.activity, errorStyle.Render("✗ "+event.Tool+" failed"))
		} else {
			m.activity = append(m.activity, activityStyle.Render("✓ "+event.Tool))
		}

	case EventDone:
		m.running = false
		m.result = event.Result
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case EventError:
		m.running = false
		m.err = event.Err
		m.input.Focus()
		return m, textinput.Blink
	}

	return m, m.waitForEvent()
}

// View renders the TUI
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Research Assistant"))
	sb.WriteString("\n")

	sb.WriteString(promptStyle.Render("query: "))
	sb.WriteString(m.input.View())
	sb.WriteString("\n\n")

	if m.running {
		sb.WriteString(m.spinner.View())
		sb.WriteString(" researching...\n")
		for _, line := range m.activity {
			sb.WriteString("  " + line + "\n")
		}
	}

	if m.err != nil {
		sb.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}

	if m.result != nil {
		sb.WriteString(renderReport(m.result, m.width))
		sb.WriteString("\n")
	}

	sb.WriteString(helpStyle.Render("enter: research • esc: quit"))
	return sb.String()
}

// renderReport formats the structured result as a bordered report
func renderReport(r *research.Result, width int) string {
	var sb strings.Builder

	sb.WriteString(topicStyle.Render(r.Topic))
	sb.WriteString("\n\n")
	sb.WriteString(r.Summary)

	if len(r.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for _, src := range r.Sources {
			sb.WriteString(sourceStyle.Render("  • "+src) + "\n")
		}
	}
	if len(r.ToolsUsed) > 0 {
		sb.WriteString("\nTools used: " + strings.Join(r.ToolsUsed, ", "))
	}

	boxWidth := width - 4
	if boxWidth > 100 {
		boxWidth = 100
	}
	return reportStyle.Width(boxWidth).Render(sb.String())
}

var _ tea.Model = Model{}
