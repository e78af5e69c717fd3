// Package budget estimates prompt sizes against model context windows.
// Estimates are heuristic; they exist to warn before a request is likely to
// be truncated or rejected, not to count tokens exactly.
package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultContextTokens is assumed for models that are not recognised.
const DefaultContextTokens = 8192

// EstimateTokensFromChars converts a character count into tokens at roughly
// four characters per token, rounding up.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens counts characters, not bytes, so non-Latin text is not
// overestimated.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// EstimatePromptTokens sums the estimates of a system message, a user
// message and any source excerpts.
func EstimatePromptTokens(system string, user string, excerpts []string) int {
	total := EstimateTokens(system) + EstimateTokens(user)
	for _, ex := range excerpts {
		total += EstimateTokens(ex)
	}
	return total
}

// contextByPrefix is matched longest prefix first.
var contextByPrefix = []struct {
	prefix string
	tokens int
}{
	{"gemini-1.5-pro", 2_097_152},
	{"gemini-1.5-flash", 1_048_576},
	{"gemini-2.0", 1_048_576},
	{"gemini-2.5", 1_048_576},
	{"gemini-1.0-pro", 32_760},
	{"gemini-pro", 32_760},
	{"gpt-4o", 128_000},
	{"gpt-4-turbo", 128_000},
	{"gpt-4.1", 1_047_576},
	{"gpt-3.5-turbo", 16_385},
	{"llama-3.1", 128_000},
	{"llama-3", 8_192},
}

// ModelContextTokens returns the context window of a model, matching by
// name prefix case-insensitively. A "models/" prefix is ignored.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	name = strings.TrimPrefix(name, "models/")
	best, bestLen := DefaultContextTokens, 0
	for _, c := range contextByPrefix {
		if strings.HasPrefix(name, c.prefix) && len(c.prefix) > bestLen {
			best, bestLen = c.tokens, len(c.prefix)
		}
	}
	return best
}

// HeadroomTokens is the larger of 5% of the context window and 512.
func HeadroomTokens(modelName string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// RemainingContext is the context left after the prompt, the reserved
// output and headroom. It is never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := ModelContextTokens(modelName) - HeadroomTokens(modelName) - reservedForOutput - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FitsInContext reports whether a prompt leaves any room once output and
// headroom are reserved.
func FitsInContext(modelName string, reservedForOutput int, promptTokens int) bool {
	return RemainingContext(modelName, reservedForOutput, promptTokens) > 0
}
