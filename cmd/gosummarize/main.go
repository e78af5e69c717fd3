package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gosummarize/internal/app"
	"github.com/hyperifyio/gosummarize/internal/summarize"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, showVersion, err := loadConfig(os.Args[1:], os.Stdin, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Error().Err(err).Msg("configuration")
		os.Exit(1)
	}
	if showVersion {
		fmt.Println(app.VersionString())
		return
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := run(ctx, cfg)
	if summary != "" {
		fmt.Println(summary)
	}
	if err != nil {
		log.Error().Err(err).Msg("run failed")
	}
	os.Exit(exitCode(err))
}

// exitCode maps run errors to the process exit policy: 2 when the run
// produced nothing usable, 1 for configuration and other failures.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrNoUsableSources), errors.Is(err, summarize.ErrEmptySummary):
		return 2
	default:
		return 1
	}
}

// loadConfig resolves configuration with precedence flags > env > config
// file > defaults. The query comes from -q, then positional arguments, then
// a prompt on stdin.
func loadConfig(args []string, stdin io.Reader, stderr io.Writer) (app.Config, bool, error) {
	fs := flag.NewFlagSet("gosummarize", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := app.DefaultConfig()
	var (
		flagCfg     = def
		configPath  string
		envFiles    string
		showVersion bool
		viewport    string
	)
	fs.StringVar(&flagCfg.Query, "q", "", "Search query (otherwise taken from arguments or stdin)")
	fs.StringVar(&configPath, "config", "", "Path to YAML or JSON config file")
	fs.StringVar(&envFiles, "env", ".env", "Comma-separated dotenv files to load")
	fs.StringVar(&flagCfg.OutputPath, "output", def.OutputPath, "Path to write the JSON results")
	fs.StringVar(&flagCfg.OutputPDFPath, "output.pdf", "", "Optional path to write the summary as PDF")
	fs.StringVar(&flagCfg.GoogleAPIKey, "google.key", "", "Google Custom Search API key")
	fs.StringVar(&flagCfg.GoogleCX, "google.cx", "", "Google Custom Search engine id")
	fs.StringVar(&flagCfg.SearxURL, "searx.url", "", "SearxNG base URL")
	fs.StringVar(&flagCfg.SearxKey, "searx.key", "", "SearxNG API key (optional)")
	fs.StringVar(&flagCfg.FileSearchPath, "search.file", "", "Path to JSON file for offline file-based search")
	fs.IntVar(&flagCfg.MaxResults, "max.results", def.MaxResults, "Maximum search results to extract")
	fs.IntVar(&flagCfg.Workers, "workers", def.Workers, "Concurrent page extractions")
	fs.StringVar(&flagCfg.Renderer, "renderer", def.Renderer, "Page renderer: browser or http")
	fs.StringVar(&flagCfg.ChromePath, "chrome.path", "", "Chrome/Chromium binary (default: autodetect)")
	fs.BoolVar(&flagCfg.NoSandbox, "chrome.noSandbox", false, "Disable the Chrome sandbox (needed as root in containers)")
	fs.StringVar(&viewport, "viewport", fmt.Sprintf("%dx%d", def.ViewportWidth, def.ViewportHeight), "Browser viewport WIDTHxHEIGHT")
	fs.StringVar(&flagCfg.UserAgent, "ua", def.UserAgent, "User-Agent for page requests")
	fs.DurationVar(&flagCfg.NavigationTimeout, "nav.timeout", def.NavigationTimeout, "Navigation timeout per page")
	fs.DurationVar(&flagCfg.IdleTimeout, "idle.timeout", def.IdleTimeout, "Network-idle wait per page")
	fs.IntVar(&flagCfg.MaxAttempts, "max.attempts", def.MaxAttempts, "Attempts per page including the first")
	fs.StringVar(&flagCfg.LLMProvider, "llm.provider", def.LLMProvider, "LLM provider: gemini or openai")
	fs.StringVar(&flagCfg.LLMModel, "llm.model", "", "Model name (gemini default: gemini-2.0-flash-exp)")
	fs.StringVar(&flagCfg.GeminiAPIKey, "gemini.key", "", "Gemini API key")
	fs.StringVar(&flagCfg.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	fs.StringVar(&flagCfg.LLMAPIKey, "llm.key", "", "API key for the OpenAI-compatible server")
	fs.BoolVar(&flagCfg.DryRun, "dry-run", false, "Search only; skip extraction and summarisation")
	fs.BoolVar(&flagCfg.Verbose, "v", false, "Verbose logging")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return app.Config{}, false, err
	}
	if showVersion {
		return app.Config{}, true, nil
	}

	if err := app.LoadEnvFiles(false, splitList(envFiles)...); err != nil {
		return app.Config{}, false, fmt.Errorf("load env: %w", err)
	}
	cfg := def
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return app.Config{}, false, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	var visitErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "q":
			cfg.Query = flagCfg.Query
		case "output":
			cfg.OutputPath = flagCfg.OutputPath
		case "output.pdf":
			cfg.OutputPDFPath = flagCfg.OutputPDFPath
		case "google.key":
			cfg.GoogleAPIKey = flagCfg.GoogleAPIKey
		case "google.cx":
			cfg.GoogleCX = flagCfg.GoogleCX
		case "searx.url":
			cfg.SearxURL = flagCfg.SearxURL
		case "searx.key":
			cfg.SearxKey = flagCfg.SearxKey
		case "search.file":
			cfg.FileSearchPath = flagCfg.FileSearchPath
		case "max.results":
			cfg.MaxResults = flagCfg.MaxResults
		case "workers":
			cfg.Workers = flagCfg.Workers
		case "renderer":
			cfg.Renderer = flagCfg.Renderer
		case "chrome.path":
			cfg.ChromePath = flagCfg.ChromePath
		case "chrome.noSandbox":
			cfg.NoSandbox = flagCfg.NoSandbox
		case "viewport":
			w, h, err := parseViewport(viewport)
			if err != nil {
				visitErr = err
				return
			}
			cfg.ViewportWidth, cfg.ViewportHeight = w, h
		case "ua":
			cfg.UserAgent = flagCfg.UserAgent
		case "nav.timeout":
			cfg.NavigationTimeout = flagCfg.NavigationTimeout
		case "idle.timeout":
			cfg.IdleTimeout = flagCfg.IdleTimeout
		case "max.attempts":
			cfg.MaxAttempts = flagCfg.MaxAttempts
		case "llm.provider":
			cfg.LLMProvider = flagCfg.LLMProvider
		case "llm.model":
			cfg.LLMModel = flagCfg.LLMModel
		case "gemini.key":
			cfg.GeminiAPIKey = flagCfg.GeminiAPIKey
		case "llm.base":
			cfg.LLMBaseURL = flagCfg.LLMBaseURL
		case "llm.key":
			cfg.LLMAPIKey = flagCfg.LLMAPIKey
		case "dry-run":
			cfg.DryRun = flagCfg.DryRun
		case "v":
			cfg.Verbose = flagCfg.Verbose
		}
	})
	if visitErr != nil {
		return app.Config{}, false, visitErr
	}

	if strings.TrimSpace(cfg.Query) == "" && fs.NArg() > 0 {
		cfg.Query = strings.Join(fs.Args(), " ")
	}
	if strings.TrimSpace(cfg.Query) == "" && stdin != nil {
		fmt.Fprint(stderr, "Enter your search query: ")
		line, _ := bufio.NewReader(stdin).ReadString('\n')
		cfg.Query = strings.TrimSpace(line)
	}
	if strings.TrimSpace(cfg.Query) == "" {
		return app.Config{}, false, fmt.Errorf("%w: search query cannot be empty", app.ErrConfig)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		return app.Config{}, false, err
	}
	return cfg, false, nil
}

func run(ctx context.Context, cfg app.Config) (string, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	err = a.Run(ctx, cfg.Query)
	return a.Summary(), err
}

func parseViewport(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(strings.TrimSpace(s)), "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: viewport %q must look like 1920x1080", app.ErrConfig, s)
	}
	return w, h, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
