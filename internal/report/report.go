// Package report persists the outcome of one summarisation run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hyperifyio/gosummarize/internal/fetch"
	"github.com/hyperifyio/gosummarize/internal/search"
)

// DefaultPath is where WriteJSON output goes unless configured otherwise.
const DefaultPath = "outputs/search_results.json"

// Result is the persisted batch of one run.
type Result struct {
	RunID         string          `json:"run_id"`
	Query         string          `json:"query"`
	SearchResults []search.Result `json:"search_results"`
	ExtractedData []fetch.Page    `json:"extracted_data"`
	Summary       string          `json:"summary"`
	// ExecutionTime is wall-clock seconds from start of search to persistence.
	ExecutionTime float64   `json:"execution_time"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// NewRunID returns a random identifier used to correlate logs and output.
func NewRunID() string { return uuid.NewString() }

// WriteJSON writes r to path as two-space indented UTF-8 JSON, creating
// parent directories. Non-ASCII text and <, >, & are written verbatim. The
// file is replaced atomically so a crash never leaves half a document.
func WriteJSON(path string, r Result) error {
	if path == "" {
		path = DefaultPath
	}
	if r.SearchResults == nil {
		r.SearchResults = []search.Result{}
	}
	if r.ExtractedData == nil {
		r.ExtractedData = []fetch.Page{}
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".search_results-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads a Result written by WriteJSON.
func ReadJSON(path string) (Result, error) {
	var r Result
	b, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}
