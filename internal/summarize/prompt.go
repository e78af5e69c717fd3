package summarize

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/gosummarize/internal/fetch"
)

// MaxSourceChars is how much of each page's content reaches the prompt.
const MaxSourceChars = 2000

// SystemPrompt frames every summary request.
const SystemPrompt = "You are a careful research assistant. Base every statement on the provided source materials and keep attribution to their numbered sources."

// Truncate returns the first n characters of s. It never splits a
// multi-byte character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// FormatSources renders pages as numbered source blocks, each content cut
// to MaxSourceChars.
func FormatSources(pages []fetch.Page) string {
	var sb strings.Builder
	sb.WriteString("# Source Materials:\n\n")
	for i, p := range pages {
		fmt.Fprintf(&sb, "\n### Source %d: %s\nURL: %s\n\n", i+1, p.Title, p.URL)
		sb.WriteString(Truncate(p.Content, MaxSourceChars))
		sb.WriteString("\n\n---\n")
	}
	return sb.String()
}

// BuildPrompt asks for a Markdown summary of pages with Key Findings,
// Important Details and Sources sections.
func BuildPrompt(query string, pages []fetch.Page) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze and summarize the following content about: \"%s\"\n\n", query)
	sb.WriteString("Create a detailed summary with these sections:\n")
	sb.WriteString("1. Key Findings (2-3 paragraphs)\n")
	sb.WriteString("2. Important Details (bullet points)\n")
	sb.WriteString("3. Sources (numbered list)\n\n")
	sb.WriteString("Focus on accuracy, clarity, and completeness.\n")
	sb.WriteString("Present conflicting information if found.\n")
	sb.WriteString("Use proper markdown formatting.\n\n")
	sb.WriteString("Content to analyze:\n")
	sb.WriteString(FormatSources(pages))
	return sb.String()
}

func excerpts(pages []fetch.Page) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, Truncate(p.Content, MaxSourceChars))
	}
	return out
}
