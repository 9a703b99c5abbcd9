// Package ai wraps the text-generation providers used for name extraction
// and summaries.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generator produces text from a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ErrUnknownProvider is returned for a provider name New does not know.
var ErrUnknownProvider = errors.New("unknown ai provider")

// ErrEmptyResponse is returned when a provider answers without text.
var ErrEmptyResponse = errors.New("empty response from ai provider")

// Config selects and configures a Generator.
type Config struct {
	Provider     string
	OpenAIKey    string
	AnthropicKey string
	Model        string
}

// New returns the Generator named by cfg.Provider.
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAI(cfg.OpenAIKey, cfg.Model), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg.AnthropicKey, cfg.Model), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
}
