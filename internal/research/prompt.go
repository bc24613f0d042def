package research

import (
	"fmt"
	"strings"

	"github.com/shuflovic/AI-bookshelf/internal/tools"
)

// BuildSystemPrompt generates the research system prompt. Tool schemas are
// passed separately via the native tool calling API; the prompt lists the
// tools in registration order because some providers are order-sensitive.
func BuildSystemPrompt(defs []tools.ToolDefinition) string {
	var sb strings.Builder

	sb.WriteString("You are a research assistant that produces accurate, well-sourced answers.\n\n")

	sb.WriteString("YOUR RESPONSIBILITIES:\n")
	sb.WriteString("1. Research the user's query using the available tools\n")
	sb.WriteString("2. Cross-check facts between sources when they disagree\n")
	sb.WriteString("3. Collect the URL or article reference of every source you rely on\n")
	sb.WriteString("4. Keep the summary factual; do not pad it with speculation\n\n")

	sb.WriteString("AVAILABLE TOOLS:\n")
	for _, def := range defs {
		fmt.Fprintf(&sb, "- %s: %s\n", def.Name, def.Description)
	}
	sb.WriteString("\n")

	sb.WriteString("WORKFLOW:\n")
	sb.WriteString("1. Use tools first to gather information; you can call several in parallel\n")
	sb.WriteString("2. If a tool fails, try an alternative tool or rephrase the query\n")
	sb.WriteString("3. When you have enough information, stop calling tools and answer\n\n")

	sb.WriteString("FINAL ANSWER FORMAT:\n")
	sb.WriteString("Your final answer must be a single JSON object with exactly these fields:\n")
	sb.WriteString(`{"topic": "<short topic name>", "summary": "<research summary>", "sources": ["<url or reference>", ...]}`)
	sb.WriteString("\nDo not include any other text around the JSON object.\n")

	return sb.String()
}

// repairInstruction is appended to the trace for the single repair attempt
// after malformed terminal output
const repairInstruction = `Your previous answer was not valid. Reply again with ONLY a single JSON object of the form {"topic": "...", "summary": "...", "sources": ["...", ...]} and no other text.`
