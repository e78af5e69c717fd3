package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// documentSuffixes marks links to office documents, which the page
// renderer cannot reduce to text.
var documentSuffixes = []string{".pdf", ".doc", ".docx"}

func isDocumentLink(link string) bool {
	l := strings.ToLower(link)
	for _, s := range documentSuffixes {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}

func effectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// getJSON decodes the JSON body of a GET to u into v. A non-2xx status is
// an error quoting the start of the response body.
func getJSON(ctx context.Context, hc *http.Client, u *url.URL, userAgent string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// collect trims rows, drops those without a usable link, stamps source and
// stops at limit.
func collect(source string, limit int, rows []Result) []Result {
	out := make([]Result, 0, min(len(rows), limit))
	for _, r := range rows {
		r.Link = strings.TrimSpace(r.Link)
		if r.Link == "" || isDocumentLink(r.Link) {
			continue
		}
		r.Title = strings.TrimSpace(r.Title)
		r.Snippet = strings.TrimSpace(r.Snippet)
		r.Source = source
		out = append(out, r)
		if len(out) >= limit {
			break
		}
	}
	return out
}
