package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shuflovic/AI-bookshelf/internal/config"
	"github.com/shuflovic/AI-bookshelf/internal/store"
)

var (
	historyTopicStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	historyMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	historyRuleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved research",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := store.NewCSVStore(config.Get().DataFile, zap.NewNop())
		results, err := st.List()
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No saved research yet.")
			return nil
		}

		for i, r := range results {
			if i > 0 {
				fmt.Println(historyRuleStyle.Render(strings.Repeat("─", 60)))
			}
			fmt.Println(historyTopicStyle.Render(r.Topic))
			fmt.Println(r.Summary)
			if len(r.Sources) > 0 {
				fmt.Println(historyMetaStyle.Render("Sources: " + strings.Join(r.Sources, ", ")))
			}
			if len(r.ToolsUsed) > 0 {
				fmt.Println(historyMetaStyle.Render("Tools: " + strings.Join(r.ToolsUsed, ", ")))
			}
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear [topic]",
	Short: "Clear saved research, all of it or one topic",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := store.NewCSVStore(config.Get().DataFile, zap.NewNop())
		if len(args) == 1 {
			if err := st.ClearTopic(args[0]); err != nil {
				return err
			}
			fmt.Printf("Cleared topic %q\n", args[0])
			return nil
		}
		if err := st.ClearAll(); err != nil {
			return err
		}
		fmt.Println("Cleared all research data")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd, clearCmd)
}
