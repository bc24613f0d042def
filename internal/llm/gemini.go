// Package llm - Google Gemini provider
// REST access to the generative language API with function calling
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

const defaultGeminiTimeout = 2 * time.Minute

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini implements Provider using the Google generative language API
type Gemini struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	client      *http.Client
}

// Gemini API types
type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *geminiAPIError `json:"error,omitempty"`
}

type geminiAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// NewGemini creates a new Gemini provider
func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{
		APIKey:      apiKey,
		Model:       model,
		BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
		Temperature: 0.7,
		client:      &http.Client{Timeout: defaultGeminiTimeout},
	}
}

// Name identifies the provider
func (g *Gemini) Name() string {
	return "gemini"
}

// convertMessages converts internal messages to Gemini contents.
// The system message maps to systemInstruction; tool results become
// functionResponse parts keyed by tool name (Gemini has no call IDs).
func (g *Gemini) convertMessages(messages []Message) (*geminiContent, []geminiContent) {
	var system *geminiContent
	var contents []geminiContent

	for _, msg := range messages {
		switch {
		case msg.Role == "system":
			system = &geminiContent{Parts: []geminiPart{{Text: msg.Content}}}

		case msg.Role == "tool":
			contents = append(contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{
					FunctionResponse: &geminiFunctionResponse{
						Name:     msg.Name,
						Response: map[string]any{"content": msg.Content},
					},
				}},
			})

		case msg.Role == "assistant" && len(msg.ToolCalls) > 0:
			var parts []geminiPart
			if msg.Content != "" {
				parts = append(parts, geminiPart{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
					args = map[string]any{}
				}
				parts = append(parts, geminiPart{
					FunctionCall: &geminiFunctionCall{Name: tc.Function.Name, Args: args},
				})
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})

		case msg.Role == "assistant":
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})

		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}

	return system, contents
}

// convertToolsToGemini converts OpenAI tool format to function declarations
func convertToolsToGemini(tools []OpenAITool) []geminiTool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]geminiFunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, geminiFunctionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  t.Function.Parameters,
		})
	}
	return []geminiTool{{FunctionDeclarations: decls}}
}

// Complete calls the generateContent API and returns the next turn
func (g *Gemini) Complete(ctx context.Context, messages []Message, tools []OpenAITool) (*Turn, error) {
	if g.APIKey == "" {
		return nil, unavailablef(g.Name(), "API key not configured, set GEMINI_API_KEY")
	}

	system, contents := g.convertMessages(messages)

	reqBody := geminiRequest{
		SystemInstruction: system,
		Contents:          contents,
		Tools:             convertToolsToGemini(tools),
		GenerationConfig:  &geminiGenerationConfig{Temperature: g.Temperature},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, g.Model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, unavailable(g.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(g.Name(), err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, unavailablef(g.Name(), "API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, unavailable(g.Name(), err)
	}

	if geminiResp.Error != nil {
		return nil, unavailablef(g.Name(), "API error: %s", geminiResp.Error.Message)
	}

	if len(geminiResp.Candidates) == 0 {
		return nil, unavailablef(g.Name(), "no candidates in response")
	}

	var textContent strings.Builder
	var toolCalls []OpenAIToolCall

	for i, part := range geminiResp.Candidates[0].Content.Parts {
		if part.Text != "" {
			textContent.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			argsJSON, _ := json.Marshal(part.FunctionCall.Args)
			// Gemini does not assign call IDs; synthesize one for traceability
			id := fmt.Sprintf("call_%d_%s", i, part.FunctionCall.Name)
			toolCalls = append(toolCalls, NewToolCall(id, part.FunctionCall.Name, string(argsJSON)))
		}
	}

	return &Turn{
		Content:   textContent.String(),
		ToolCalls: toolCalls,
	}, nil
}

// Ensure Gemini implements Provider
var _ Provider = (*Gemini)(nil)
