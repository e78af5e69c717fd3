package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// SearxNG queries the JSON API of a SearxNG instance. BaseURL may point at
// the instance root or at its /search path.
type SearxNG struct {
	BaseURL    string
	APIKey     string // optional
	HTTPClient *http.Client
	UserAgent  string // optional
}

func (s *SearxNG) Name() string { return "searxng" }

func (s *SearxNG) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if s.BaseURL == "" {
		return nil, fmt.Errorf("missing searxng base url")
	}
	limit = effectiveLimit(limit)
	u, err := s.endpoint(query, limit)
	if err != nil {
		return nil, err
	}

	var body struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := getJSON(ctx, s.HTTPClient, u, s.UserAgent, &body); err != nil {
		return nil, fmt.Errorf("searxng: %w", err)
	}
	rows := make([]Result, 0, len(body.Results))
	for _, r := range body.Results {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		rows = append(rows, Result{Title: r.Title, Link: r.URL, Snippet: r.Content})
	}
	return collect(s.Name(), limit, rows), nil
}

func (s *SearxNG) endpoint(query string, limit int) (*url.URL, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("searxng base url: %w", err)
	}
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/search") + "/search"
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("categories", "general")
	q.Set("safesearch", "1")
	q.Set("count", strconv.Itoa(limit))
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}
	u.RawQuery = q.Encode()
	return u, nil
}
