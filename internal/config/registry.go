package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"vidcorpus/internal/filter"
	"vidcorpus/internal/model"
)

// ChannelEntry is one tracked channel in the registry file.
type ChannelEntry struct {
	Name      string   `toml:"name"`
	Type      string   `toml:"type"`
	Handle    string   `toml:"handle"`
	Feed      string   `toml:"feed"`
	Include   []string `toml:"include"`
	Exclude   []string `toml:"exclude"`
	IncludeRe []string `toml:"include_re"`
	ExcludeRe []string `toml:"exclude_re"`
}

// Registry is the decoded channel registry.
type Registry struct {
	Channels []ChannelEntry `toml:"channel"`
}

// TrackedChannel is a registry entry resolved to a channel and its filters.
type TrackedChannel struct {
	Channel model.Channel
	Filters []model.Filter
}

// LoadRegistry reads and validates the channel registry at path.
func LoadRegistry(path string) ([]TrackedChannel, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read channel registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes registry TOML. Unknown keys are rejected.
func ParseRegistry(data []byte) ([]TrackedChannel, error) {
	var reg Registry
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&reg); err != nil {
		return nil, fmt.Errorf("parse channel registry: %w", err)
	}

	seen := make(map[string]string, len(reg.Channels))
	tracked := make([]TrackedChannel, 0, len(reg.Channels))
	for i, e := range reg.Channels {
		tc, err := e.resolve()
		if err != nil {
			return nil, fmt.Errorf("channel #%d (%s): %w", i+1, e.Name, err)
		}
		key := string(tc.Channel.Type) + ":" + tc.Channel.ExternalID
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("channel %q duplicates %q", e.Name, prev)
		}
		seen[key] = e.Name
		tracked = append(tracked, tc)
	}
	return tracked, nil
}

func (e ChannelEntry) resolve() (TrackedChannel, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return TrackedChannel{}, fmt.Errorf("name is required")
	}

	typ := model.ChannelType(strings.ToLower(e.Type))
	if typ == "" {
		typ = model.ChannelYouTube
		if e.Feed != "" {
			typ = model.ChannelRSS
		}
	}

	var externalID string
	switch typ {
	case model.ChannelYouTube:
		externalID = strings.TrimSpace(e.Handle)
		if externalID == "" {
			return TrackedChannel{}, fmt.Errorf("youtube channel needs a handle")
		}
	case model.ChannelRSS:
		externalID = strings.TrimSpace(e.Feed)
		if externalID == "" {
			return TrackedChannel{}, fmt.Errorf("rss channel needs a feed URL")
		}
	default:
		return TrackedChannel{}, fmt.Errorf("unknown channel type %q", e.Type)
	}

	var filters []model.Filter
	add := func(kind model.FilterKind, values []string) {
		for _, val := range values {
			filters = append(filters, model.Filter{Kind: kind, Scope: model.ScopeTitle, Value: val})
		}
	}
	add(model.FilterInclude, e.Include)
	add(model.FilterExclude, e.Exclude)
	add(model.FilterIncludeRe, e.IncludeRe)
	add(model.FilterExcludeRe, e.ExcludeRe)
	if _, err := filter.Compile(filters); err != nil {
		return TrackedChannel{}, err
	}

	return TrackedChannel{
		Channel: model.Channel{
			Type:       typ,
			ExternalID: externalID,
			Handle:     externalID,
			Name:       name,
		},
		Filters: filters,
	}, nil
}
