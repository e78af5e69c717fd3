package app

import (
	"time"

	"github.com/hyperifyio/gosummarize/internal/fetch"
	"github.com/hyperifyio/gosummarize/internal/pool"
	"github.com/hyperifyio/gosummarize/internal/report"
	"github.com/hyperifyio/gosummarize/internal/search"
)

// Renderer names accepted by Config.Renderer.
const (
	RendererBrowser = "browser"
	RendererHTTP    = "http"
)

// LLM provider names accepted by Config.LLMProvider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds runtime configuration for the application.
type Config struct {
	Query         string
	OutputPath    string
	OutputPDFPath string

	// Search
	GoogleAPIKey   string
	GoogleCX       string
	SearxURL       string
	SearxKey       string
	FileSearchPath string
	MaxResults     int

	// Extraction
	Workers           int
	Renderer          string
	ChromePath        string
	NoSandbox         bool
	ViewportWidth     int
	ViewportHeight    int
	UserAgent         string
	NavigationTimeout time.Duration
	IdleTimeout       time.Duration
	MaxAttempts       int
	// RetryUnit scales the retry waits; tests shrink it.
	RetryUnit time.Duration

	// LLM
	LLMProvider  string
	LLMModel     string
	GeminiAPIKey string
	LLMBaseURL   string
	LLMAPIKey    string

	// Behavior
	DryRun  bool
	Verbose bool
}

// DefaultConfig returns the settings used when nothing else is configured.
func DefaultConfig() Config {
	fo := fetch.DefaultOptions()
	rp := fetch.DefaultPolicy()
	return Config{
		OutputPath:        report.DefaultPath,
		MaxResults:        search.DefaultLimit,
		Workers:           pool.DefaultSize,
		Renderer:          RendererBrowser,
		ViewportWidth:     fo.Viewport.Width,
		ViewportHeight:    fo.Viewport.Height,
		UserAgent:         fo.UserAgent,
		NavigationTimeout: fo.NavigationTimeout,
		IdleTimeout:       fo.IdleTimeout,
		MaxAttempts:       rp.MaxAttempts,
		RetryUnit:         rp.Unit,
		LLMProvider:       ProviderGemini,
	}
}

// model returns the configured model or the provider's default.
func (c Config) model() string {
	if c.LLMModel != "" {
		return c.LLMModel
	}
	if c.LLMProvider == ProviderGemini {
		return "gemini-2.0-flash-exp"
	}
	return ""
}
