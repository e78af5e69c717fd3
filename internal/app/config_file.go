package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to flags and env.
type FileConfig struct {
	Query     string `yaml:"query" json:"query"`
	Output    string `yaml:"output" json:"output"`
	OutputPDF string `yaml:"outputPDF" json:"outputPDF"`

	Google struct {
		APIKey string `yaml:"key" json:"key"`
		CX     string `yaml:"cx" json:"cx"`
	} `yaml:"google" json:"google"`

	Searx struct {
		URL string `yaml:"url" json:"url"`
		Key string `yaml:"key" json:"key"`
	} `yaml:"searx" json:"searx"`

	Search struct {
		File       string `yaml:"file" json:"file"`
		MaxResults int    `yaml:"maxResults" json:"maxResults"`
	} `yaml:"search" json:"search"`

	Extract struct {
		Workers     int      `yaml:"workers" json:"workers"`
		Renderer    string   `yaml:"renderer" json:"renderer"`
		ChromePath  string   `yaml:"chromePath" json:"chromePath"`
		NoSandbox   bool     `yaml:"noSandbox" json:"noSandbox"`
		Viewport    [2]int   `yaml:"viewport" json:"viewport"`
		UserAgent   string   `yaml:"userAgent" json:"userAgent"`
		NavTimeout  Duration `yaml:"navTimeout" json:"navTimeout"`
		IdleTimeout Duration `yaml:"idleTimeout" json:"idleTimeout"`
		MaxAttempts int      `yaml:"maxAttempts" json:"maxAttempts"`
	} `yaml:"extract" json:"extract"`

	LLM struct {
		Provider     string `yaml:"provider" json:"provider"`
		Model        string `yaml:"model" json:"model"`
		GeminiAPIKey string `yaml:"geminiKey" json:"geminiKey"`
		BaseURL      string `yaml:"base" json:"base"`
		APIKey       string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	DryRun  bool `yaml:"dryRun" json:"dryRun"`
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// Duration accepts Go duration strings such as "25s" in YAML and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if strings.TrimSpace(s) == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value set in fc onto cfg. It runs before
// env and flags, so those still win.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	str := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	num := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, v Duration) {
		if v > 0 {
			*dst = time.Duration(v)
		}
	}

	str(&cfg.Query, fc.Query)
	str(&cfg.OutputPath, fc.Output)
	str(&cfg.OutputPDFPath, fc.OutputPDF)

	str(&cfg.GoogleAPIKey, fc.Google.APIKey)
	str(&cfg.GoogleCX, fc.Google.CX)
	str(&cfg.SearxURL, fc.Searx.URL)
	str(&cfg.SearxKey, fc.Searx.Key)
	str(&cfg.FileSearchPath, fc.Search.File)
	num(&cfg.MaxResults, fc.Search.MaxResults)

	num(&cfg.Workers, fc.Extract.Workers)
	str(&cfg.Renderer, fc.Extract.Renderer)
	str(&cfg.ChromePath, fc.Extract.ChromePath)
	if fc.Extract.NoSandbox {
		cfg.NoSandbox = true
	}
	if fc.Extract.Viewport[0] > 0 && fc.Extract.Viewport[1] > 0 {
		cfg.ViewportWidth, cfg.ViewportHeight = fc.Extract.Viewport[0], fc.Extract.Viewport[1]
	}
	str(&cfg.UserAgent, fc.Extract.UserAgent)
	dur(&cfg.NavigationTimeout, fc.Extract.NavTimeout)
	dur(&cfg.IdleTimeout, fc.Extract.IdleTimeout)
	num(&cfg.MaxAttempts, fc.Extract.MaxAttempts)

	str(&cfg.LLMProvider, fc.LLM.Provider)
	str(&cfg.LLMModel, fc.LLM.Model)
	str(&cfg.GeminiAPIKey, fc.LLM.GeminiAPIKey)
	str(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	str(&cfg.LLMAPIKey, fc.LLM.APIKey)

	if fc.DryRun {
		cfg.DryRun = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}

// ErrConfig marks configuration problems; the CLI exits 1 on it.
var ErrConfig = errors.New("config")

// ValidateConfig checks that a search backend and, unless this is a dry
// run, the chosen LLM provider are usable.
func ValidateConfig(cfg Config) error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
	}
	if strings.TrimSpace(cfg.OutputPath) == "" {
		return bad("output path is required")
	}
	if cfg.FileSearchPath == "" && (cfg.GoogleAPIKey == "" || cfg.GoogleCX == "") && cfg.SearxURL == "" {
		return bad("no search backend: set GOOGLE_API_KEY and GOOGLE_CX, SEARX_URL, or SEARCH_FILE")
	}
	if cfg.Workers < 1 || cfg.MaxResults < 1 || cfg.MaxAttempts < 1 {
		return bad("workers, max results and max attempts must be at least 1")
	}
	switch cfg.Renderer {
	case RendererBrowser, RendererHTTP:
	default:
		return bad("unknown renderer %q", cfg.Renderer)
	}
	if cfg.DryRun {
		return nil
	}
	switch cfg.LLMProvider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return bad("GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderOpenAI:
		if cfg.LLMModel == "" {
			return bad("llm.model is required for the openai provider (or set LLM_MODEL)")
		}
	default:
		return bad("unknown llm provider %q", cfg.LLMProvider)
	}
	return nil
}
