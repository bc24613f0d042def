package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// WikipediaTool looks up encyclopedic information on Wikipedia
type WikipediaTool struct {
	BaseTool
	APIURL  string // MediaWiki action API, for article search
	RestURL string // REST API, for page summaries
	client  *http.Client
	log     *zap.Logger
}

// NewWikipediaTool creates the encyclopedia lookup tool
func NewWikipediaTool(log *zap.Logger) *WikipediaTool {
	if log == nil {
		log = zap.NewNop()
	}
	return &WikipediaTool{
		BaseTool: BaseTool{
			Def: ToolDefinition{
				Name:        "wikipedia",
				Description: "Search Wikipedia for encyclopedic information. Best for factual, historical, and scientific information.",
				Parameters: &JSONSchema{
					Type: "object",
					Properties: map[string]*JSONSchema{
						"query": {
							Type:        "string",
							Description: "Wikipedia search query",
						},
					},
					Required: []string{"query"},
				},
			},
		},
		APIURL:  "https://en.wikipedia.org/w/api.php",
		RestURL: "https://en.wikipedia.org/api/rest_v1",
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

// wikiSummary is the relevant part of the REST page summary response
type wikiSummary struct {
	Type        string `json:"type"` // "standard" or "disambiguation"
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Execute searches for matching articles and returns the best summary.
// When the first match is a disambiguation page, the next candidate is
// tried once before giving up.
func (t *WikipediaTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	query, _ := args["query"].(string)
	t.log.Debug("searching wikipedia", zap.String("query", query))

	titles, err := t.searchTitles(ctx, query)
	if err != nil {
		return t.fail(ExecutionError(t.Def.Name, err))
	}
	if len(titles) == 0 {
		return t.fail(ExecutionErrorf(t.Def.Name, "no Wikipedia articles found for query: %s", query))
	}

	summary, err := t.summary(ctx, titles[0])
	if err == nil && summary.Type == "disambiguation" {
		err = fmt.Errorf("disambiguation page")
	}
	if err != nil && len(titles) > 1 {
		// One disambiguation retry with the next candidate
		summary, err = t.summary(ctx, titles[1])
	}
	if err != nil {
		return t.fail(ExecutionErrorf(t.Def.Name, "no matching article for %q: %v", query, err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Wikipedia search results for %q:\n\n", query)
	fmt.Fprintf(&sb, "**%s**\n%s\n", summary.Title, summary.Extract)
	if page := summary.ContentURLs.Desktop.Page; page != "" {
		fmt.Fprintf(&sb, "Source: %s\n", page)
	}
	if len(titles) > 1 {
		sb.WriteString("\nAdditional related articles:\n")
		for _, title := range titles[1:] {
			if title != summary.Title {
				fmt.Fprintf(&sb, "- %s\n", title)
			}
		}
	}

	t.log.Debug("wikipedia search completed", zap.String("article", summary.Title))
	return ToolResult{Success: true, Output: sb.String()}
}

func (t *WikipediaTool) fail(err error) ToolResult {
	t.log.Warn("wikipedia lookup failed", zap.Error(err))
	return ToolResult{Success: false, Error: err.Error(), Err: err}
}

// searchTitles finds candidate article titles via the opensearch API
func (t *WikipediaTool) searchTitles(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("action", "opensearch")
	params.Set("search", query)
	params.Set("limit", "3")
	params.Set("format", "json")

	body, err := t.get(ctx, t.APIURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	// Opensearch returns [query, [titles], [descriptions], [urls]]
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("unexpected opensearch response: %w", err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("unexpected opensearch response shape")
	}

	var titles []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return nil, fmt.Errorf("unexpected opensearch titles: %w", err)
	}
	return titles, nil
}

// summary fetches the page summary for a title via the REST API
func (t *WikipediaTool) summary(ctx context.Context, title string) (*wikiSummary, error) {
	body, err := t.get(ctx, t.RestURL+"/page/summary/"+url.PathEscape(title))
	if err != nil {
		return nil, err
	}

	var s wikiSummary
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("unexpected summary response: %w", err)
	}
	if s.Extract == "" {
		return nil, fmt.Errorf("no summary for article %q", title)
	}
	return &s, nil
}

func (t *WikipediaTool) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "AI-bookshelf research assistant")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Ensure WikipediaTool implements Tool
var _ Tool = (*WikipediaTool)(nil)
