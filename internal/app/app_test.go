package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/gosummarize/internal/llm"
	"github.com/hyperifyio/gosummarize/internal/pool"
	"github.com/hyperifyio/gosummarize/internal/report"
	"github.com/hyperifyio/gosummarize/internal/summarize"
)

// pageServer serves two readable pages and one that always fails.
func pageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/alpha":
			_, _ = w.Write([]byte(`<html><head><title>Alpha</title></head><body><nav>menu</nav><main><p>Alpha explains worker pools.</p></main></body></html>`))
		case "/beta":
			_, _ = w.Write([]byte(`<html><head></head><body><article>Beta – naïve retries.</article></body></html>`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// chatStub is an OpenAI-compatible endpoint that records prompts.
type chatStub struct {
	mu      sync.Mutex
	prompts []string
	reply   string
}

func (c *chatStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		c.mu.Lock()
		for _, m := range req.Messages {
			if m.Role == "user" {
				c.prompts = append(c.prompts, m.Content)
			}
		}
		c.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-test",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": c.reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeSearchFile(t *testing.T, dir string, links ...string) string {
	t.Helper()
	var entries []string
	for i, l := range links {
		entries = append(entries, fmt.Sprintf(`{"title": "Result %d", "link": %q, "snippet": "s%d"}`, i+1, l, i+1))
	}
	p := filepath.Join(dir, "results.json")
	require.NoError(t, os.WriteFile(p, []byte("["+strings.Join(entries, ",")+"]"), 0o644))
	return p
}

func testConfig(dir, searchFile, llmURL string) Config {
	cfg := DefaultConfig()
	cfg.FileSearchPath = searchFile
	cfg.OutputPath = filepath.Join(dir, "outputs", "search_results.json")
	cfg.Renderer = RendererHTTP
	cfg.Workers = 2
	cfg.NavigationTimeout = 2 * time.Second
	cfg.RetryUnit = time.Millisecond
	cfg.LLMProvider = ProviderOpenAI
	cfg.LLMModel = "test-model"
	cfg.LLMBaseURL = llmURL
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	var hits int32
	pages := pageServer(t, &hits)
	stub := &chatStub{reply: "## Key Findings\nPools bound concurrency."}
	llmSrv := stub.server(t)

	dir := t.TempDir()
	searchFile := writeSearchFile(t, dir, pages.URL+"/alpha", pages.URL+"/broken", pages.URL+"/beta")
	cfg := testConfig(dir, searchFile, llmSrv.URL+"/v1")
	cfg.OutputPDFPath = filepath.Join(dir, "outputs", "summary.pdf")

	counter := &pool.Counter{}
	a, err := New(context.Background(), cfg, WithProgress(counter))
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Run(context.Background(), "  worker pools  "))
	require.Equal(t, "## Key Findings\nPools bound concurrency.", a.Summary())
	require.Equal(t, 3, counter.Done())
	require.Equal(t, 1, counter.Failed())
	// Two good pages once each, the broken one three times.
	require.Equal(t, int32(5), atomic.LoadInt32(&hits))

	res, err := report.ReadJSON(cfg.OutputPath)
	require.NoError(t, err)
	require.Equal(t, "worker pools", res.Query)
	require.Len(t, res.SearchResults, 3)
	require.Len(t, res.ExtractedData, 2)
	require.Equal(t, a.Summary(), res.Summary)
	require.NotEmpty(t, res.RunID)
	require.Greater(t, res.ExecutionTime, 0.0)

	titles := map[string]string{}
	for _, p := range res.ExtractedData {
		titles[p.Title] = p.Content
	}
	require.Equal(t, "Alpha explains worker pools.", titles["Alpha"])
	require.Equal(t, "Beta – naïve retries.", titles["No title"])

	require.Len(t, stub.prompts, 1)
	require.Contains(t, stub.prompts[0], `about: "worker pools"`)
	require.Contains(t, stub.prompts[0], "URL: "+pages.URL+"/alpha")
	require.NotContains(t, stub.prompts[0], "/broken")

	raw, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "naïve")

	pdf, err := os.ReadFile(cfg.OutputPDFPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(pdf), "%PDF-"))
}

func TestRun_NoSearchResults(t *testing.T) {
	dir := t.TempDir()
	searchFile := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(searchFile, []byte("[]"), 0o644))
	gen := &fakeGenerator{}
	a, err := New(context.Background(), testConfig(dir, searchFile, ""), WithGenerator(gen))
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background(), "nothing"))
	require.Equal(t, NoResultsSummary, a.Summary())
	require.Zero(t, gen.calls)

	res, err := report.ReadJSON(filepath.Join(dir, "outputs", "search_results.json"))
	require.NoError(t, err)
	require.Equal(t, NoResultsSummary, res.Summary)
	require.Empty(t, res.ExtractedData)
}

func TestRun_NoUsableSources(t *testing.T) {
	var hits int32
	pages := pageServer(t, &hits)
	dir := t.TempDir()
	searchFile := writeSearchFile(t, dir, pages.URL+"/down-1", pages.URL+"/down-2")
	gen := &fakeGenerator{}
	a, err := New(context.Background(), testConfig(dir, searchFile, ""), WithGenerator(gen))
	require.NoError(t, err)

	err = a.Run(context.Background(), "q")
	require.ErrorIs(t, err, ErrNoUsableSources)
	require.Zero(t, gen.calls)
	require.Equal(t, int32(6), atomic.LoadInt32(&hits))

	res, err := report.ReadJSON(filepath.Join(dir, "outputs", "search_results.json"))
	require.NoError(t, err)
	require.Equal(t, NoContentSummary, res.Summary)
	require.Len(t, res.SearchResults, 2)
}

func TestRun_EmptySummary(t *testing.T) {
	var hits int32
	pages := pageServer(t, &hits)
	dir := t.TempDir()
	searchFile := writeSearchFile(t, dir, pages.URL+"/alpha")
	a, err := New(context.Background(), testConfig(dir, searchFile, ""), WithGenerator(&fakeGenerator{out: "  "}))
	require.NoError(t, err)

	err = a.Run(context.Background(), "q")
	require.ErrorIs(t, err, summarize.ErrEmptySummary)
	require.Empty(t, a.Summary())

	res, err := report.ReadJSON(filepath.Join(dir, "outputs", "search_results.json"))
	require.NoError(t, err)
	require.Len(t, res.ExtractedData, 1)
}

func TestRun_DryRunSkipsExtraction(t *testing.T) {
	var hits int32
	pages := pageServer(t, &hits)
	dir := t.TempDir()
	cfg := testConfig(dir, writeSearchFile(t, dir, pages.URL+"/alpha"), "")
	cfg.DryRun = true
	cfg.LLMModel = ""
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background(), "q"))
	require.Equal(t, DryRunSummary, a.Summary())
	require.Zero(t, atomic.LoadInt32(&hits))
}

func TestRun_EmptyQuery(t *testing.T) {
	dir := t.TempDir()
	a, err := New(context.Background(), testConfig(dir, writeSearchFile(t, dir), ""), WithGenerator(&fakeGenerator{}))
	require.NoError(t, err)
	require.True(t, errors.Is(a.Run(context.Background(), "   "), ErrConfig))
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), DefaultConfig())
	require.ErrorIs(t, err, ErrConfig)
}

type fakeGenerator struct {
	out   string
	calls int
}

func (f *fakeGenerator) Generate(context.Context, llm.Request) (string, error) {
	f.calls++
	return f.out, nil
}
