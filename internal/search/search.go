package search

import (
	"context"
)

// Result represents a single search hit from any provider. Only Link is
// consumed by extraction; the rest is carried into the persisted report.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"-"` // provider name for observability
}

// Provider is a minimal interface for search providers.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

// DefaultLimit is used when a caller passes a non-positive limit.
const DefaultLimit = 10

// Links returns the Link of every result, in order.
func Links(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Link)
	}
	return out
}
