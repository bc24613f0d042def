// Package httpapi exposes the research assistant over HTTP.
// Route handlers are plumbing around the research session; all decision
// logic lives in internal/research and below.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shuflovic/AI-bookshelf/internal/research"
	"github.com/shuflovic/AI-bookshelf/internal/store"
)

// Runner executes one research query; wired to a fresh Session per request
type Runner func(ctx context.Context, query string) (*research.Result, error)

// Server serves the research API and the CSV data file
type Server struct {
	runner Runner
	store  *store.CSVStore
	log    *zap.Logger
	mux    *http.ServeMux
}

// NewServer builds the HTTP server around a runner and a store
func NewServer(runner Runner, st *store.CSVStore, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{runner: runner, store: st, log: log, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /", s.handleIndex)
	s.mux.HandleFunc("POST /research", s.handleResearch)
	s.mux.HandleFunc("GET /data.csv", s.handleDataCSV)
	s.mux.HandleFunc("POST /clear", s.handleClearAll)
	s.mux.HandleFunc("POST /clear/{topic}", s.handleClearTopic)

	return s
}

// Handler returns the route handler, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe blocks serving the API on addr
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("http server listening", zap.String("addr", addr))
	return srv.ListenAndServe()
}

type researchRequest struct {
	Query string `json:"query"`
}

type researchResponse struct {
	Status       string   `json:"status"`
	Topic        string   `json:"topic"`
	Summary      string   `json:"summary"`
	Sources      []string `json:"sources"`
	ToolsUsed    []string `json:"tools_used"`
	PersistError string   `json:"persist_error,omitempty"`
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "No query provided")
		return
	}

	result, err := s.runner(r.Context(), req.Query)
	if err != nil {
		s.log.Error("research failed", zap.String("query", req.Query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Research failed: "+err.Error())
		return
	}

	resp := researchResponse{
		Status:    "Research completed successfully",
		Topic:     result.Topic,
		Summary:   result.Summary,
		Sources:   result.Sources,
		ToolsUsed: result.ToolsUsed,
	}

	// Persist failure is reported alongside the result, not instead of it:
	// the computed result is still valid.
	if err := s.store.Append(result); err != nil {
		s.log.Error("persist failed", zap.Error(err))
		resp.PersistError = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDataCSV(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.store.Path()); err != nil {
		writeError(w, http.StatusNotFound, "CSV file not found")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, s.store.Path())
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ClearAll(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear data: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "All research data cleared successfully"})
}

func (s *Server) handleClearTopic(w http.ResponseWriter, r *http.Request) {
	topic := r.PathValue("topic")
	if err := s.store.ClearTopic(topic); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to clear topic: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "Topic '" + topic + "' cleared successfully"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexPage))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// indexPage is a minimal stub; presentation is out of scope
const indexPage = `<!DOCTYPE html>
<html>
<head><title>Research Assistant</title></head>
<body>
<h1>Research Assistant</h1>
<p>POST /research with {"query": "..."} to run a research session.</p>
<p><a href="/data.csv">Download research data</a></p>
</body>
</html>
`
