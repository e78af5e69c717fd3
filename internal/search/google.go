package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// GoogleEndpoint is the Custom Search JSON API.
const GoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

// googleMaxNum is the largest page size the API accepts.
const googleMaxNum = 10

// Google implements Provider against the Custom Search JSON API.
type Google struct {
	APIKey string
	CX     string
	// BaseURL overrides GoogleEndpoint, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

func (g *Google) Name() string { return "google" }

func (g *Google) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if g.APIKey == "" || g.CX == "" {
		return nil, fmt.Errorf("google search needs an api key and cx")
	}
	limit = effectiveLimit(limit)
	base := g.BaseURL
	if base == "" {
		base = GoogleEndpoint
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("google endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", g.APIKey)
	q.Set("cx", g.CX)
	q.Set("q", query)
	q.Set("num", strconv.Itoa(min(limit, googleMaxNum)))
	u.RawQuery = q.Encode()

	var body struct {
		Items []Result `json:"items"`
	}
	if err := getJSON(ctx, g.HTTPClient, u, "", &body); err != nil {
		return nil, fmt.Errorf("google search: %w", err)
	}
	return collect(g.Name(), limit, body.Items), nil
}
