package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields whose environment variables are
// set. Call it after ApplyFileConfig and before applying explicit flags.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&cfg.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&cfg.GoogleCX, "GOOGLE_CX")
	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.SearxURL, "SEARX_URL", "SEARXNG_URL")
	setString(&cfg.SearxKey, "SEARX_KEY", "SEARXNG_KEY")
	setString(&cfg.FileSearchPath, "SEARCH_FILE")
	setString(&cfg.LLMProvider, "LLM_PROVIDER")
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	setString(&cfg.ChromePath, "CHROME_PATH")
	setString(&cfg.OutputPath, "OUTPUT_PATH")

	setInt := func(dst *int, key string) {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n > 0 {
			*dst = n
		}
	}
	setInt(&cfg.Workers, "WORKERS")
	setInt(&cfg.MaxResults, "MAX_RESULTS")

	setDuration := func(dst *time.Duration, key string) {
		if d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil && d > 0 {
			*dst = d
		}
	}
	setDuration(&cfg.NavigationTimeout, "NAV_TIMEOUT")
	setDuration(&cfg.IdleTimeout, "IDLE_TIMEOUT")

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, key string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.DryRun, "DRY_RUN")
	setBool(&cfg.NoSandbox, "CHROME_NO_SANDBOX")
}
