package llm

import (
	"context"
	"errors"
)

var (
	ErrEmptyPrompt = errors.New("prompt must not be empty")
	ErrNoChoices   = errors.New("completion returned no choices")
)

// Generator produces a single text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
