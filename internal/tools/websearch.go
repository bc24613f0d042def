package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ddgRateLimit enforces a global rate limit of 1 query per second across all
// search tool instances and goroutines.
var ddgRateLimit struct {
	mu   sync.Mutex
	last time.Time
}

const searchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// SearchResult is one entry scraped from the results page
type SearchResult struct {
	Title   string
	Snippet string
	URL     string
}

// WebSearchTool searches the web using DuckDuckGo's HTML lite interface
type WebSearchTool struct {
	BaseTool
	Endpoint   string
	MaxResults int
	client     *http.Client
	log        *zap.Logger
}

// NewWebSearchTool creates the web search tool
func NewWebSearchTool(log *zap.Logger) *WebSearchTool {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSearchTool{
		BaseTool: BaseTool{
			Def: ToolDefinition{
				Name:        "search",
				Description: "Search the web for current information using DuckDuckGo. Use this for recent news, current events, and general web information.",
				Parameters: &JSONSchema{
					Type: "object",
					Properties: map[string]*JSONSchema{
						"query": {
							Type:        "string",
							Description: "Search query to find information about",
						},
					},
					Required: []string{"query"},
				},
			},
		},
		Endpoint:   "https://lite.duckduckgo.com/lite/",
		MaxResults: 5,
		client:     &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// Execute runs the search. One retry on rate-limit or an empty result set,
// then the failure is reported as a tool execution error.
func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	query, _ := args["query"].(string)
	t.log.Debug("searching web", zap.String("query", query))

	results, err := t.search(ctx, query)
	if err != nil || len(results) == 0 {
		// Back off once before giving up; transient throttling is common
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return t.fail(ExecutionError(t.Def.Name, ctx.Err()))
		}
		results, err = t.search(ctx, query)
	}
	if err != nil {
		return t.fail(ExecutionError(t.Def.Name, err))
	}
	if len(results) == 0 {
		return t.fail(ExecutionErrorf(t.Def.Name, "no search results found for query: %s", query))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search results for %q:\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s**\n   %s\n   Source: %s\n\n", i+1, r.Title, r.Snippet, r.URL)
	}

	t.log.Debug("web search completed", zap.String("query", query), zap.Int("results", len(results)))
	return ToolResult{Success: true, Output: sb.String()}
}

func (t *WebSearchTool) fail(err error) ToolResult {
	t.log.Warn("web search failed", zap.Error(err))
	return ToolResult{Success: false, Error: err.Error(), Err: err}
}

// search posts the query to the lite endpoint and scrapes the result page
func (t *WebSearchTool) search(ctx context.Context, query string) ([]SearchResult, error) {
	// Enforce global 1 QPS rate limit.
	ddgRateLimit.mu.Lock()
	if wait := time.Until(ddgRateLimit.last.Add(time.Second)); wait > 0 {
		ddgRateLimit.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		ddgRateLimit.mu.Lock()
	}
	ddgRateLimit.last = time.Now()
	ddgRateLimit.mu.Unlock()

	formData := url.Values{}
	formData.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", searchUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (http 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseSearchResults(string(body), t.MaxResults), nil
}

// parseSearchResults extracts results from the DuckDuckGo lite HTML.
// The lite page pairs result links (class "result-link") with snippet
// cells (class "result-snippet") in document order.
func parseSearchResults(page string, max int) []SearchResult {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}

	var results []SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if hasClass(n, "result-link") {
					href := attr(n, "href")
					title := strings.TrimSpace(textContent(n))
					if href != "" && title != "" && len(results) < max {
						results = append(results, SearchResult{Title: title, URL: href})
					}
				}
			case "td":
				if hasClass(n, "result-snippet") && len(results) > 0 {
					if last := &results[len(results)-1]; last.Snippet == "" {
						last.Snippet = strings.TrimSpace(textContent(n))
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return results
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// Ensure WebSearchTool implements Tool
var _ Tool = (*WebSearchTool)(nil)
