package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gosummarize/internal/fetch"
	"github.com/hyperifyio/gosummarize/internal/llm"
	"github.com/hyperifyio/gosummarize/internal/pool"
	"github.com/hyperifyio/gosummarize/internal/render"
	"github.com/hyperifyio/gosummarize/internal/report"
	"github.com/hyperifyio/gosummarize/internal/search"
	"github.com/hyperifyio/gosummarize/internal/summarize"
)

// Summaries persisted when a run ends early.
const (
	NoResultsSummary = "No search results found."
	NoContentSummary = "No usable content could be extracted."
	DryRunSummary    = "Dry run: extraction and summarisation skipped."
)

// ErrNoUsableSources is returned when no page could be extracted. The
// CLI maps it to exit code 2.
var ErrNoUsableSources = errors.New("no usable sources")

type App struct {
	cfg        Config
	provider   search.Provider
	renderer   render.Renderer
	generator  llm.Generator
	progress   pool.Progress
	pool       *pool.Pool
	summarizer *summarize.Summarizer
	closers    []func() error
	summary    string
}

// Option replaces a collaborator that New would otherwise build from Config.
type Option func(*App)

func WithProvider(p search.Provider) Option { return func(a *App) { a.provider = p } }
func WithRenderer(r render.Renderer) Option { return func(a *App) { a.renderer = r } }
func WithGenerator(g llm.Generator) Option { return func(a *App) { a.generator = g } }
func WithProgress(p pool.Progress) Option { return func(a *App) { a.progress = p } }

func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	hc := newHTTPClient(60 * time.Second)

	if a.provider == nil {
		a.provider = newProvider(cfg, hc)
	}
	if a.renderer == nil {
		a.renderer = newRenderer(cfg, hc)
	}
	if a.generator == nil && !cfg.DryRun {
		g, err := a.newGenerator(ctx, hc)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.generator = g
	}
	if a.progress == nil {
		a.progress = &pool.LogProgress{}
	}

	pf := fetch.NewPageFetcher(a.renderer, fetch.Options{
		Viewport:          render.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
		UserAgent:         cfg.UserAgent,
		NavigationTimeout: cfg.NavigationTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	})
	policy := fetch.DefaultPolicy()
	policy.MaxAttempts = cfg.MaxAttempts
	if cfg.RetryUnit > 0 {
		policy.Unit = cfg.RetryUnit
	}
	a.pool = pool.New(fetch.NewRetryingFetcher(pf, policy), pool.Options{Size: cfg.Workers, Progress: a.progress})
	a.summarizer = &summarize.Summarizer{
		Generator: a.generator,
		Model:     cfg.model(),
		Sampling:  summarize.DefaultSampling(),
	}
	log.Debug().Str("search", a.provider.Name()).Str("renderer", cfg.Renderer).Str("llm", cfg.LLMProvider).Int("workers", cfg.Workers).Msg("app ready")
	return a, nil
}

// newProvider prefers an offline file, then Google, then SearxNG.
func newProvider(cfg Config, hc *http.Client) search.Provider {
	switch {
	case cfg.FileSearchPath != "":
		return &search.FileProvider{Path: cfg.FileSearchPath}
	case cfg.GoogleAPIKey != "" && cfg.GoogleCX != "":
		return &search.Google{APIKey: cfg.GoogleAPIKey, CX: cfg.GoogleCX, HTTPClient: hc}
	default:
		return &search.SearxNG{BaseURL: cfg.SearxURL, APIKey: cfg.SearxKey, HTTPClient: hc, UserAgent: cfg.UserAgent}
	}
}

func newRenderer(cfg Config, hc *http.Client) render.Renderer {
	if cfg.Renderer == RendererHTTP {
		return &render.HTTP{Client: hc}
	}
	return &render.Browser{ExecPath: cfg.ChromePath, NoSandbox: cfg.NoSandbox}
}

func (a *App) newGenerator(ctx context.Context, hc *http.Client) (llm.Generator, error) {
	switch a.cfg.LLMProvider {
	case ProviderOpenAI:
		return llm.NewOpenAI(a.cfg.LLMBaseURL, a.cfg.LLMAPIKey, a.cfg.LLMModel, hc), nil
	default:
		g, err := llm.NewGemini(ctx, a.cfg.GeminiAPIKey, a.cfg.model())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		return g, nil
	}
}

// Close releases the LLM client, if one was opened.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Debug().Err(err).Msg("close")
		}
	}
	a.closers = nil
}

// Summary returns the summary produced by the last successful Run.
func (a *App) Summary() string { return a.summary }

// Run searches for query, extracts every result concurrently, summarises
// the pages and persists the whole batch. Early endings are persisted too.
func (a *App) Run(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("%w: query is empty", ErrConfig)
	}
	start := time.Now()
	res := report.Result{RunID: report.NewRunID(), Query: query}
	logger := log.With().Str("run_id", res.RunID).Logger()
	a.summary = ""

	results, err := a.provider.Search(ctx, query, a.cfg.MaxResults)
	if err != nil {
		return fmt.Errorf("search %s: %w", a.provider.Name(), err)
	}
	res.SearchResults = results
	logger.Info().Str("provider", a.provider.Name()).Int("results", len(results)).Msg("search finished")

	if len(results) == 0 {
		res.Summary = NoResultsSummary
		if err := a.persist(res, start, false); err != nil {
			return err
		}
		a.summary = res.Summary
		return nil
	}
	if a.cfg.DryRun {
		for i, r := range results {
			logger.Info().Int("n", i+1).Str("url", r.Link).Str("title", r.Title).Msg("would extract")
		}
		res.Summary = DryRunSummary
		if err := a.persist(res, start, false); err != nil {
			return err
		}
		a.summary = res.Summary
		return nil
	}

	batch := a.pool.Extract(ctx, search.Links(results))
	if err := ctx.Err(); err != nil {
		return err
	}
	res.ExtractedData = batch.Pages
	if len(batch.Pages) == 0 {
		res.Summary = NoContentSummary
		if err := a.persist(res, start, false); err != nil {
			return err
		}
		return ErrNoUsableSources
	}

	summary, err := a.summarizer.Summarize(ctx, query, batch.Pages)
	if err != nil {
		// Keep the extracted pages even without a summary.
		if perr := a.persist(res, start, false); perr != nil {
			logger.Warn().Err(perr).Msg("persist after failed summary")
		}
		return err
	}
	res.Summary = summary
	if err := a.persist(res, start, true); err != nil {
		return err
	}
	a.summary = summary
	return nil
}

func (a *App) persist(res report.Result, start time.Time, withPDF bool) error {
	res.ExecutionTime = time.Since(start).Seconds()
	res.GeneratedAt = time.Now().UTC()
	if err := report.WriteJSON(a.cfg.OutputPath, res); err != nil {
		return err
	}
	log.Info().Str("run_id", res.RunID).Str("out", a.cfg.OutputPath).Float64("seconds", res.ExecutionTime).Msg("wrote results")
	if withPDF && a.cfg.OutputPDFPath != "" {
		if err := report.WritePDF(a.cfg.OutputPDFPath, res.Query, res.Summary); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", a.cfg.OutputPDFPath).Msg("wrote pdf")
	}
	return nil
}
