// Package summarize turns extracted pages into a Markdown summary through
// an llm.Generator.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/gosummarize/internal/budget"
	"github.com/hyperifyio/gosummarize/internal/fetch"
	"github.com/hyperifyio/gosummarize/internal/llm"
)

// ErrEmptySummary indicates the model produced no usable text.
var ErrEmptySummary = errors.New("empty summary")

// Sampling holds the generation parameters sent with every request.
type Sampling struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

func DefaultSampling() Sampling {
	return Sampling{Temperature: 0.7, TopP: 0.8, TopK: 40, MaxOutputTokens: 4096}
}

type Summarizer struct {
	Generator llm.Generator
	// Model is used only for prompt budget estimates.
	Model    string
	Sampling Sampling
	// RetryDelay is the pause before the single retry. Zero means 100ms.
	RetryDelay time.Duration
}

// Summarize builds the prompt for query and pages and returns the model's
// Markdown. A failed call is retried once after a short pause.
func (s *Summarizer) Summarize(ctx context.Context, query string, pages []fetch.Page) (string, error) {
	if s.Generator == nil {
		return "", errors.New("summarizer not configured")
	}
	prompt := BuildPrompt(query, pages)
	s.logBudget(prompt, pages)

	req := llm.Request{
		System:          SystemPrompt,
		Prompt:          prompt,
		Temperature:     s.Sampling.Temperature,
		TopP:            s.Sampling.TopP,
		TopK:            s.Sampling.TopK,
		MaxOutputTokens: s.Sampling.MaxOutputTokens,
	}
	out, err := s.Generator.Generate(ctx, req)
	if err != nil && !errors.Is(err, llm.ErrNoContent) {
		log.Debug().Err(err).Msg("summary call failed; retrying once")
		if werr := s.wait(ctx); werr != nil {
			return "", werr
		}
		out, err = s.Generator.Generate(ctx, req)
		if err != nil && !errors.Is(err, llm.ErrNoContent) {
			return "", fmt.Errorf("summary call (after retry): %w", err)
		}
	}
	out = strings.TrimSpace(out)
	if errors.Is(err, llm.ErrNoContent) || out == "" {
		return "", ErrEmptySummary
	}
	return out, nil
}

func (s *Summarizer) wait(ctx context.Context) error {
	d := s.RetryDelay
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Summarizer) logBudget(prompt string, pages []fetch.Page) {
	tokens := budget.EstimatePromptTokens(SystemPrompt, prompt, nil)
	reserved := int(s.Sampling.MaxOutputTokens)
	ev := log.Debug()
	if !budget.FitsInContext(s.Model, reserved, tokens) {
		ev = log.Warn()
	}
	ev.Str("model", s.Model).
		Int("sources", len(pages)).
		Int("excerpt_tokens", budget.EstimatePromptTokens("", "", excerpts(pages))).
		Int("prompt_tokens", tokens).
		Int("context_tokens", budget.ModelContextTokens(s.Model)).
		Msg("summary prompt budget")
}
