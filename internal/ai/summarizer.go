package ai

import (
	"context"
	"fmt"
	"strings"
)

const summaryMaxTokens = 2000

// Summarizer writes episode summaries from transcripts.
type Summarizer struct {
	gen Generator
}

// NewSummarizer creates a Summarizer backed by gen.
func NewSummarizer(gen Generator) *Summarizer {
	return &Summarizer{gen: gen}
}

// Summarize returns a summary of transcript. Very long transcripts are
// truncated before they are sent.
func (s *Summarizer) Summarize(ctx context.Context, title, transcript string) (string, error) {
	text, err := s.gen.Generate(ctx, summarySystemPrompt, summaryPrompt(title, transcript), summaryMaxTokens)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
