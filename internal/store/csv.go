// Package store persists finalized research results to a CSV file.
// This is the persistence collaborator: it runs after a result is
// validated, never inside the agent loop.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/shuflovic/AI-bookshelf/internal/research"
)

// listSeparator joins sources and tools_used into one CSV field
const listSeparator = ";"

var header = []string{"topic", "summary", "sources", "tools_used"}

// CSVStore appends research results to a durable CSV file
type CSVStore struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

// NewCSVStore creates a store writing to path
func NewCSVStore(path string, log *zap.Logger) *CSVStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CSVStore{path: path, log: log}
}

// Path returns the CSV file path
func (s *CSVStore) Path() string {
	return s.path
}

// Append writes one result row, adding the header on first write
func (s *CSVStore) Append(result *research.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	needHeader := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if needHeader {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := writer.Write([]string{
		result.Topic,
		result.Summary,
		strings.Join(result.Sources, listSeparator),
		strings.Join(result.ToolsUsed, listSeparator),
	}); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush row: %w", err)
	}

	s.log.Info("result persisted", zap.String("topic", result.Topic), zap.String("file", s.path))
	return nil
}

// List returns all stored results in insertion order
func (s *CSVStore) List() ([]research.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.readRows()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	results := make([]research.Result, 0, len(rows))
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		results = append(results, research.Result{
			Topic:     row[0],
			Summary:   row[1],
			Sources:   splitList(row[2]),
			ToolsUsed: splitList(row[3]),
		})
	}
	return results, nil
}

// ClearAll removes the data file
func (s *CSVStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear data: %w", err)
	}
	s.log.Info("all research data cleared")
	return nil
}

// ClearTopic rewrites the file without rows matching topic
func (s *CSVStore) ClearTopic(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, hadHeader, err := s.readRows()
	if err != nil {
		if os.IsNotExist(err) {
			return nil // nothing to clear
		}
		return err
	}

	kept := rows[:0]
	for _, row := range rows {
		if len(row) > 0 && row[0] == topic {
			continue
		}
		kept = append(kept, row)
	}

	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to rewrite data file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if hadHeader {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := writer.WriteAll(kept); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	s.log.Info("topic cleared", zap.String("topic", topic))
	return nil
}

// readRows loads the data rows, reporting whether a header row was present
func (s *CSVStore) readRows() ([][]string, bool, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read data file: %w", err)
	}

	if len(all) > 0 && len(all[0]) > 0 && all[0][0] == header[0] {
		return all[1:], true, nil
	}
	return all, false, nil
}

func splitList(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Split(field, listSeparator)
}
