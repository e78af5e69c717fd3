// Package llm adapts chat-style model backends to one small interface.
package llm

import (
	"context"
	"errors"
)

// Request is one single-turn generation. Zero sampling fields leave the
// backend's defaults in place.
type Request struct {
	System          string
	Prompt          string
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrNoContent is returned when a backend answers without any text.
var ErrNoContent = errors.New("model returned no content")
