// Package transcript resolves episode transcripts through an ordered chain
// of providers with content validation.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// MinLength is the length a transcript must exceed to count as content.
const MinLength = 10

// Request identifies the episode whose transcript is wanted.
type Request struct {
	ExternalID string
	URL        string
	Language   string
}

// Result is a successfully resolved transcript.
type Result struct {
	Text     string
	Language string
	Provider string
}

// Provider fetches a transcript from one backend.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// Failure records why a single provider did not produce a transcript.
type Failure struct {
	Provider string
	Reason   string
}

// ErrNoProviders is returned when no configured provider could be tried.
var ErrNoProviders = errors.New("no providers available")

// ResolveError is returned when every provider failed.
type ResolveError struct {
	Failures []Failure
}

func (e *ResolveError) Error() string {
	if len(e.Failures) == 0 {
		return ErrNoProviders.Error()
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Provider + ": " + f.Reason
	}
	return strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrNoProviders when nothing was tried.
func (e *ResolveError) Unwrap() error {
	if len(e.Failures) == 0 {
		return ErrNoProviders
	}
	return nil
}

// Resolver tries providers in a caller-supplied order.
type Resolver struct {
	providers map[string]Provider
	order     []string
	language  string
	log       *slog.Logger
}

// NewResolver creates a Resolver. order names providers by Name(); language,
// when non-empty, is the required base language (e.g. "en").
func NewResolver(providers []Provider, order []string, language string, log *slog.Logger) *Resolver {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Resolver{
		providers: byName,
		order:     order,
		language:  language,
		log:       log,
	}
}

// Order returns the default provider order.
func (r *Resolver) Order() []string {
	return r.order
}

// Resolve fetches a transcript using the default provider order.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	return r.ResolveWith(ctx, req, r.order)
}

// ResolveWith fetches a transcript trying providers strictly in order. The
// first valid result wins. Invalid results (too short, wrong language) count
// as failures and fall through to the next provider.
func (r *Resolver) ResolveWith(ctx context.Context, req Request, order []string) (*Result, error) {
	if req.Language == "" {
		req.Language = r.language
	}

	var failures []Failure
	for _, name := range order {
		p, ok := r.providers[name]
		if !ok {
			r.log.Warn("unknown transcript provider", "provider", name)
			continue
		}

		res, err := p.Fetch(ctx, req)
		if err == nil {
			err = r.validate(res, req.Language)
		}
		if err != nil {
			r.log.Debug("transcript provider failed", "provider", name, "episode", req.ExternalID, "error", err)
			failures = append(failures, Failure{Provider: name, Reason: err.Error()})
			continue
		}

		res.Provider = name
		if res.Language == "" {
			res.Language = req.Language
		}
		return res, nil
	}

	return nil, &ResolveError{Failures: failures}
}

func (r *Resolver) validate(res *Result, language string) error {
	if res == nil || len(strings.TrimSpace(res.Text)) <= MinLength {
		return errors.New("returned empty or too short transcript")
	}
	if language != "" && res.Language != "" && !MatchLanguage(res.Language, language) {
		return fmt.Errorf("transcript not in %s (got: %s)", language, res.Language)
	}
	return nil
}
