package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"vidcorpus/internal/model"
)

const extractionMaxTokens = 1000

// Extractor proposes hosts and guests from channel and episode text.
type Extractor struct {
	gen Generator
	log *slog.Logger
}

// NewExtractor creates an Extractor backed by gen.
func NewExtractor(gen Generator, log *slog.Logger) *Extractor {
	return &Extractor{gen: gen, log: log}
}

type hostItem struct {
	Name       string `json:"name"`
	Confidence string `json:"confidence"`
}

type guestItem struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// ProposeHosts asks the model for the channel's regular hosts.
func (e *Extractor) ProposeHosts(ctx context.Context, ch model.Channel, recent []model.Episode) ([]model.Candidate, error) {
	text, err := e.gen.Generate(ctx, extractionSystemPrompt, hostPrompt(ch, recent), extractionMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate hosts: %w", err)
	}

	items := ExtractList[hostItem](text)
	e.log.Debug("hosts proposed", "channel", ch.Name, "count", len(items))

	out := make([]model.Candidate, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		out = append(out, model.Candidate{
			Name:       name,
			Role:       model.RoleHost,
			Confidence: model.ParseConfidence(strings.ToLower(it.Confidence)),
		})
	}
	return out, nil
}

// ProposeGuests asks the model for the guests of one episode.
func (e *Extractor) ProposeGuests(ctx context.Context, ch model.Channel, ep model.Episode, knownHosts []string) ([]model.Candidate, error) {
	text, err := e.gen.Generate(ctx, extractionSystemPrompt, guestPrompt(ch, ep, knownHosts), extractionMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("generate guests: %w", err)
	}

	items := ExtractList[guestItem](text)
	e.log.Debug("guests proposed", "episode", ep.ExternalID, "count", len(items))

	out := make([]model.Candidate, 0, len(items))
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		role := model.Role(strings.ToLower(strings.TrimSpace(it.Role)))
		if role == "" {
			role = model.RoleGuest
		}
		out = append(out, model.Candidate{Name: name, Role: role})
	}
	return out, nil
}
