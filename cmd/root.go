package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shuflovic/AI-bookshelf/internal/agent"
	"github.com/shuflovic/AI-bookshelf/internal/config"
	"github.com/shuflovic/AI-bookshelf/internal/research"
	"github.com/shuflovic/AI-bookshelf/internal/store"
	"github.com/shuflovic/AI-bookshelf/internal/tools"
	"github.com/shuflovic/AI-bookshelf/internal/tui"
)

var (
	debugFlag bool
	stepsFlag int
)

var rootCmd = &cobra.Command{
	Use:   "bookshelf [query]",
	Short: "AI research assistant",
	Long: `Bookshelf researches a topic with an LLM agent that searches the web
and Wikipedia, then records a structured summary.

Run with a query for a one-shot answer, or without arguments for the
interactive interface.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return runPlain(cmd.Context(), strings.Join(args, " "))
		}
		return runTUI()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	rootCmd.Flags().IntVar(&stepsFlag, "steps", 0, "max agent steps per query (0 = default)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runPlain answers a single query and prints the structured result
func runPlain(ctx context.Context, query string) error {
	log, err := newLogger(debugFlag)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pub := newPublisher(log)
	defer pub.Close()

	run, err := newResearcher(log, pub, stepsFlag)
	if err != nil {
		return err
	}

	result, err := run(ctx, query, plainHandler{})
	if err != nil {
		return err
	}

	printResult(result)

	st := store.NewCSVStore(config.Get().DataFile, log)
	if err := st.Append(result); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: failed to save result:", err)
	}
	return nil
}

func printResult(r *research.Result) {
	fmt.Println()
	fmt.Println("Topic:", r.Topic)
	fmt.Println()
	fmt.Println(r.Summary)
	if len(r.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range r.Sources {
			fmt.Println("  -", src)
		}
	}
	if len(r.ToolsUsed) > 0 {
		fmt.Println()
		fmt.Println("Tools used:", strings.Join(r.ToolsUsed, ", "))
	}
}

// plainHandler prints progress lines to stderr during a one-shot run
type plainHandler struct{}

func (plainHandler) OnThinking(step int) {
	fmt.Fprintf(os.Stderr, "thinking (step %d)...\n", step)
}

func (plainHandler) OnToolUse(name string, args map[string]any) {
	fmt.Fprintf(os.Stderr, "calling %s...\n", name)
}

func (plainHandler) OnToolResult(name string, result tools.ToolResult) {
	if !result.Success {
		fmt.Fprintf(os.Stderr, "%s failed: %s\n", name, result.Error)
	}
}

// runTUI starts the interactive interface
func runTUI() error {
	log, err := newLogger(debugFlag)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pub := newPublisher(log)
	defer pub.Close()

	run, err := newResearcher(log, pub, stepsFlag)
	if err != nil {
		return err
	}

	st := store.NewCSVStore(config.Get().DataFile, log)

	runner := func(ctx context.Context, query string) <-chan tui.Event {
		ch := make(chan tui.Event, 16)
		go func() {
			defer close(ch)
			result, err := run(ctx, query, channelHandler{ch: ch})
			if err != nil {
				ch <- tui.Event{Kind: tui.EventError, Err: err}
				return
			}
			if err := st.Append(result); err != nil {
				log.Error("persist failed", zap.Error(err))
			}
			ch <- tui.Event{Kind: tui.EventDone, Result: result}
		}()
		return ch
	}

	program := tea.NewProgram(tui.New(runner), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// channelHandler forwards loop events onto the TUI event channel
type channelHandler struct {
	ch chan<- tui.Event
}

func (h channelHandler) OnThinking(step int) {
	h.ch <- tui.Event{Kind: tui.EventThinking, Step: step}
}

func (h channelHandler) OnToolUse(name string, args map[string]any) {
	h.ch <- tui.Event{Kind: tui.EventToolUse, Tool: name}
}

func (h channelHandler) OnToolResult(name string, result tools.ToolResult) {
	h.ch <- tui.Event{Kind: tui.EventToolResult, Tool: name, IsError: !result.Success}
}

var _ agent.EventHandler = plainHandler{}
var _ agent.EventHandler = channelHandler{}
