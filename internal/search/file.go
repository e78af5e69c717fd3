package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// FileProvider serves results from a local JSON file for offline runs and
// tests. The file holds an array of {"title", "link", "snippet"} objects;
// "url" is accepted in place of "link". Every entry is returned regardless
// of the query unless FilterByQuery is set.
type FileProvider struct {
	Path          string
	FilterByQuery bool
}

func (f *FileProvider) Name() string { return "file" }

type fileEntry struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func (f *FileProvider) Search(_ context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, errors.New("file provider path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	var raw []fileEntry
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Result, 0, len(raw))
	for _, e := range raw {
		link := e.Link
		if link == "" {
			link = e.URL
		}
		if link == "" {
			continue
		}
		if f.FilterByQuery && q != "" &&
			!strings.Contains(strings.ToLower(e.Title), q) &&
			!strings.Contains(strings.ToLower(e.Snippet), q) {
			continue
		}
		out = append(out, Result{Title: e.Title, Link: link, Snippet: e.Snippet, Source: f.Name()})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
