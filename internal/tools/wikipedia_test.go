package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newWikiServer serves the opensearch API and per-title summaries
func newWikiServer(t *testing.T, titles []string, summaries map[string]wikiSummary) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "opensearch" {
			t.Errorf("unexpected action: %s", r.URL.Query().Get("action"))
		}
		_ = json.NewEncoder(w).Encode([]any{r.URL.Query().Get("search"), titles, []string{}, []string{}})
	})
	mux.HandleFunc("/api/rest_v1/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		title := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/")
		s, ok := summaries[title]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	})
	return httptest.NewServer(mux)
}

func testWikiTool(server *httptest.Server) *WikipediaTool {
	tool := NewWikipediaTool(nil)
	tool.APIURL = server.URL + "/w/api.php"
	tool.RestURL = server.URL + "/api/rest_v1"
	return tool
}

func standardSummary(title, extract string) wikiSummary {
	s := wikiSummary{Type: "standard", Title: title, Extract: extract}
	s.ContentURLs.Desktop.Page = "https://en.wikipedia.org/wiki/" + title
	return s
}

func TestWikipediaExecute(t *testing.T) {
	server := newWikiServer(t,
		[]string{"Iceland", "Icelandic language"},
		map[string]wikiSummary{
			"Iceland": standardSummary("Iceland", "Iceland is a Nordic island country."),
		})
	defer server.Close()

	tool := testWikiTool(server)
	result := tool.Execute(context.Background(), map[string]any{"query": "iceland"})
	if !result.Success {
		t.Fatalf("lookup failed: %s", result.Error)
	}
	if !strings.Contains(result.Output, "Iceland is a Nordic island country.") {
		t.Errorf("output missing extract: %q", result.Output)
	}
	if !strings.Contains(result.Output, "https://en.wikipedia.org/wiki/Iceland") {
		t.Errorf("output missing source URL: %q", result.Output)
	}
	if !strings.Contains(result.Output, "Icelandic language") {
		t.Errorf("output missing related articles: %q", result.Output)
	}
}

func TestWikipediaDisambiguationRetry(t *testing.T) {
	server := newWikiServer(t,
		[]string{"Mercury", "Mercury (planet)"},
		map[string]wikiSummary{
			"Mercury":          {Type: "disambiguation", Title: "Mercury", Extract: "Mercury may refer to:"},
			"Mercury (planet)": standardSummary("Mercury (planet)", "Mercury is the smallest planet."),
		})
	defer server.Close()

	tool := testWikiTool(server)
	result := tool.Execute(context.Background(), map[string]any{"query": "mercury"})
	if !result.Success {
		t.Fatalf("lookup failed: %s", result.Error)
	}
	if !strings.Contains(result.Output, "Mercury is the smallest planet.") {
		t.Errorf("expected the second candidate's summary: %q", result.Output)
	}
}

func TestWikipediaNoArticles(t *testing.T) {
	server := newWikiServer(t, []string{}, nil)
	defer server.Close()

	tool := testWikiTool(server)
	result := tool.Execute(context.Background(), map[string]any{"query": "zzzz"})
	if result.Success {
		t.Fatal("expected failure for no matching articles")
	}
	if !strings.Contains(result.Error, "no Wikipedia articles found") {
		t.Errorf("error = %q", result.Error)
	}
}
