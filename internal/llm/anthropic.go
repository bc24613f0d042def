// Package llm - Anthropic provider
// Native Claude API support with tool calling
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default timeout for Anthropic API requests
const defaultAnthropicTimeout = 2 * time.Minute

const defaultAnthropicModel = "claude-3-5-sonnet-20241022"

// Anthropic implements Provider using the Claude API
type Anthropic struct {
	APIKey  string
	Model   string
	BaseURL string
	client  *http.Client
}

// Anthropic API types
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []anthropicContentBlock
}

type anthropicContentBlock struct {
	Type      string `json:"type"`                  // "text", "tool_use", "tool_result"
	Text      string `json:"text,omitempty"`        // for text blocks
	ID        string `json:"id,omitempty"`          // for tool_use blocks
	Name      string `json:"name,omitempty"`        // for tool_use blocks
	Input     any    `json:"input,omitempty"`       // for tool_use blocks
	ToolUseID string `json:"tool_use_id,omitempty"` // for tool_result blocks
	Content   string `json:"content,omitempty"`     // for tool_result blocks (result text)
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *anthropicError `json:"error,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewAnthropic creates a new Anthropic provider
func NewAnthropic(apiKey, model string) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://api.anthropic.com/v1",
		client:  &http.Client{Timeout: defaultAnthropicTimeout},
	}
}

// Name identifies the provider
func (a *Anthropic) Name() string {
	return "anthropic"
}

// convertMessages converts internal messages to Anthropic format
func (a *Anthropic) convertMessages(messages []Message) (string, []anthropicMessage) {
	var systemPrompt string
	var anthropicMsgs []anthropicMessage

	for _, msg := range messages {
		if msg.Role == "system" {
			systemPrompt = msg.Content
			continue
		}

		// Tool results are added as user messages with tool_result content
		if msg.Role == "tool" {
			anthropicMsgs = append(anthropicMsgs, anthropicMessage{
				Role: "user",
				Content: []anthropicContentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})
			continue
		}

		// Assistant messages with tool calls become tool_use blocks
		if msg.Role == "assistant" && len(msg.ToolCalls) > 0 {
			var blocks []anthropicContentBlock
			if msg.Content != "" {
				blocks = append(blocks, anthropicContentBlock{
					Type: "text",
					Text: msg.Content,
				})
			}
			for _, tc := range msg.ToolCalls {
				var input any
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
					input = map[string]any{} // fallback to empty object
				}
				blocks = append(blocks, anthropicContentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Function.Name,
					Input: input,
				})
			}
			anthropicMsgs = append(anthropicMsgs, anthropicMessage{
				Role:    "assistant",
				Content: blocks,
			})
			continue
		}

		anthropicMsgs = append(anthropicMsgs, anthropicMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return systemPrompt, anthropicMsgs
}

// convertToolsToAnthropic converts OpenAI tool format to Anthropic format
func convertToolsToAnthropic(tools []OpenAITool) []anthropicTool {
	result := make([]anthropicTool, 0, len(tools))
	for _, t := range tools {
		result = append(result, anthropicTool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}
	return result
}

// Complete calls the Claude messages API and returns the next turn
func (a *Anthropic) Complete(ctx context.Context, messages []Message, tools []OpenAITool) (*Turn, error) {
	if a.APIKey == "" {
		return nil, unavailablef(a.Name(), "API key not configured, set ANTHROPIC_API_KEY")
	}

	systemPrompt, anthropicMsgs := a.convertMessages(messages)

	reqBody := anthropicRequest{
		Model:     a.Model,
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages:  anthropicMsgs,
		Tools:     convertToolsToAnthropic(tools),
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.BaseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, unavailable(a.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(a.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, unavailablef(a.Name(), "API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return nil, unavailable(a.Name(), err)
	}

	if anthropicResp.Error != nil {
		return nil, unavailablef(a.Name(), "API error: %s", anthropicResp.Error.Message)
	}

	var textContent strings.Builder
	var toolCalls []OpenAIToolCall

	for _, block := range anthropicResp.Content {
		switch block.Type {
		case "text":
			textContent.WriteString(block.Text)
		case "tool_use":
			inputJSON, _ := json.Marshal(block.Input)
			toolCalls = append(toolCalls, NewToolCall(block.ID, block.Name, string(inputJSON)))
		}
	}

	return &Turn{
		Content:   textContent.String(),
		ToolCalls: toolCalls,
	}, nil
}

// Ensure Anthropic implements Provider
var _ Provider = (*Anthropic)(nil)
