// Package syncplan decides which upstream episodes of a channel are new.
package syncplan

import (
	"context"
	"fmt"
	"time"

	"vidcorpus/internal/filter"
	"vidcorpus/internal/model"
)

// Defaults for incremental sync.
const (
	DefaultMinDuration     = 20 * time.Minute
	DefaultLimit           = 20
	DefaultNewChannelLimit = 10
)

// Options bounds a plan.
type Options struct {
	MinDuration     time.Duration
	Limit           int
	NewChannelLimit int
}

// DefaultOptions returns the standard sync bounds.
func DefaultOptions() Options {
	return Options{
		MinDuration:     DefaultMinDuration,
		Limit:           DefaultLimit,
		NewChannelLimit: DefaultNewChannelLimit,
	}
}

// Plan is the outcome of comparing a listing against stored episodes.
type Plan struct {
	// Items are the new episodes, newest first.
	Items      []model.ListingItem
	NewChannel bool
	Listed     int
	TooShort   int
	Filtered   int
	// Capped is the number of new items dropped by the limit.
	Capped int
}

// Build selects the new items of a newest-first listing. Items shorter than
// the minimum duration or rejected by the filter set are dropped; the walk
// stops at the first item already in known. A channel with no known items is
// capped at NewChannelLimit, any other channel at Limit.
func Build(listing []model.ListingItem, known map[string]bool, filters *filter.Set, opts Options) Plan {
	plan := Plan{Listed: len(listing), NewChannel: len(known) == 0}

	limit := opts.Limit
	if plan.NewChannel {
		limit = opts.NewChannelLimit
	}
	minSeconds := int(opts.MinDuration / time.Second)

	for _, item := range listing {
		if item.DurationSeconds < minSeconds || item.DurationSeconds <= 0 {
			plan.TooShort++
			continue
		}
		if !filters.Match(filter.Item{Title: item.Title, Description: item.Description}) {
			plan.Filtered++
			continue
		}
		if known[item.ExternalID] {
			break
		}
		if limit > 0 && len(plan.Items) >= limit {
			plan.Capped++
			continue
		}
		plan.Items = append(plan.Items, item)
	}

	return plan
}

// Lister fetches a channel's upstream listing.
type Lister interface {
	ListChannel(ctx context.Context, ch model.Channel, limit int) (model.ChannelInfo, []model.ListingItem, error)
}

// Store is the slice of storage the planner reads.
type Store interface {
	ListEpisodeExternalIDs(ctx context.Context, channelID int64) ([]string, error)
}

// Planner loads a channel's listing and stored state and builds a plan.
type Planner struct {
	store Store
	opts  Options
}

// New creates a Planner.
func New(store Store, opts Options) *Planner {
	return &Planner{store: store, opts: opts}
}

// Options returns the planner's bounds.
func (p *Planner) Options() Options {
	return p.opts
}

// Plan lists the channel and returns the new items along with the channel
// info reported upstream. A listing failure returns an error and no plan.
func (p *Planner) Plan(ctx context.Context, lister Lister, ch model.Channel, filters *filter.Set) (model.ChannelInfo, Plan, error) {
	ids, err := p.store.ListEpisodeExternalIDs(ctx, ch.ID)
	if err != nil {
		return model.ChannelInfo{}, Plan{}, fmt.Errorf("load known episodes: %w", err)
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	info, listing, err := lister.ListChannel(ctx, ch, p.listingDepth(len(known) == 0))
	if err != nil {
		return model.ChannelInfo{}, Plan{}, fmt.Errorf("list channel: %w", err)
	}

	return info, Build(listing, known, filters, p.opts), nil
}

// listingDepth bounds how far back the upstream listing is read. Short and
// filtered items are interleaved with real episodes, so the listing is read
// well past the cap.
func (p *Planner) listingDepth(newChannel bool) int {
	limit := p.opts.Limit
	if newChannel {
		limit = p.opts.NewChannelLimit
	}
	if limit <= 0 {
		return 0
	}
	return limit * 5
}
