package research

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the validated structured record produced by one session
type Result struct {
	Topic     string   `json:"topic"`
	Summary   string   `json:"summary"`
	Sources   []string `json:"sources"`
	ToolsUsed []string `json:"tools_used"`
}

// ParseResult coerces the model's terminal answer into a Result.
// toolCalls is the distinct tool name list derived from the conversation
// trace; it is used as-is rather than trusting the model's self-report.
func ParseResult(raw string, toolCalls []string) (*Result, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object in answer", ErrMalformedOutput)
	}

	var decoded struct {
		Topic   string   `json:"topic"`
		Summary string   `json:"summary"`
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	if strings.TrimSpace(decoded.Topic) == "" {
		return nil, fmt.Errorf("%w: missing required field: topic", ErrMalformedOutput)
	}
	if strings.TrimSpace(decoded.Summary) == "" {
		return nil, fmt.Errorf("%w: missing required field: summary", ErrMalformedOutput)
	}

	return &Result{
		Topic:     strings.TrimSpace(decoded.Topic),
		Summary:   strings.TrimSpace(decoded.Summary),
		Sources:   dedupe(decoded.Sources),
		ToolsUsed: toolCalls,
	}, nil
}

// extractJSON pulls the JSON object out of the raw answer, tolerating
// markdown code fences and surrounding prose
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if idx := strings.Index(raw, "```"); idx >= 0 {
		rest := raw[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			raw = rest[:end]
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}

// dedupe removes duplicate sources preserving first-seen order
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		result = append(result, item)
	}
	return result
}
