package fetcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"vidcorpus/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RSS lists podcast feeds.
type RSS struct {
	client  HTTPClient
	timeout time.Duration

	mu    sync.Mutex
	items map[string]model.EpisodeMetadata
}

// NewRSS creates an RSS source with the given HTTP client.
func NewRSS(client HTTPClient) *RSS {
	return &RSS{
		client:  client,
		timeout: 30 * time.Second,
		items:   map[string]model.EpisodeMetadata{},
	}
}

// Fetch downloads and parses a feed.
func (f *RSS) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "vidcorpus/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

// ListChannel implements Source. The channel's external ID is the feed URL.
func (f *RSS) ListChannel(ctx context.Context, ch model.Channel, limit int) (model.ChannelInfo, []model.ListingItem, error) {
	feed, err := f.Fetch(ctx, ch.ExternalID)
	if err != nil {
		return model.ChannelInfo{}, nil, err
	}

	info := model.ChannelInfo{
		ExternalID:  ch.ExternalID,
		Name:        feed.Title,
		Description: strPtr(PlainText(feed.Description)),
	}
	if feed.Image != nil {
		info.ThumbnailURL = strPtr(feed.Image.URL)
	}

	items := make([]*gofeed.Item, len(feed.Items))
	copy(items, feed.Items)
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].PublishedParsed, items[j].PublishedParsed
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	listing := make([]model.ListingItem, 0, len(items))
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		guid := ItemGUID(it)
		md := itemMetadata(it)
		f.items[cacheKey(ch.ExternalID, guid)] = md

		li := model.ListingItem{
			ExternalID:  guid,
			URL:         itemURL(it),
			Title:       it.Title,
			Description: PlainText(it.Description),
			PublishedAt: md.PublishedAt,
		}
		if md.DurationSeconds != nil {
			li.DurationSeconds = *md.DurationSeconds
		}
		listing = append(listing, li)
	}
	return info, listing, nil
}

// EpisodeMetadata implements Source. Items seen by the last listing are
// served from memory; otherwise the feed is fetched again.
func (f *RSS) EpisodeMetadata(ctx context.Context, ch model.Channel, ep model.Episode) (*model.EpisodeMetadata, error) {
	key := cacheKey(ch.ExternalID, ep.ExternalID)
	if md, ok := f.cached(key); ok {
		return &md, nil
	}

	if _, _, err := f.ListChannel(ctx, ch, 0); err != nil {
		return nil, err
	}
	if md, ok := f.cached(key); ok {
		return &md, nil
	}
	return nil, fmt.Errorf("episode %s no longer in feed", ep.ExternalID)
}

func (f *RSS) cached(key string) (model.EpisodeMetadata, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	md, ok := f.items[key]
	return md, ok
}

func cacheKey(feedURL, guid string) string {
	return feedURL + "\x00" + guid
}

func itemMetadata(it *gofeed.Item) model.EpisodeMetadata {
	md := model.EpisodeMetadata{
		Title:       strPtr(it.Title),
		Description: strPtr(PlainText(it.Description)),
		URL:         strPtr(itemURL(it)),
		PublishedAt: it.PublishedParsed,
	}
	if it.Image != nil {
		md.ThumbnailURL = strPtr(it.Image.URL)
	}
	if it.ITunesExt != nil {
		if d := ParseDuration(it.ITunesExt.Duration); d > 0 {
			md.DurationSeconds = &d
		}
		if md.ThumbnailURL == nil {
			md.ThumbnailURL = strPtr(it.ITunesExt.Image)
		}
	}
	if md.PublishedAt != nil {
		t := md.PublishedAt.UTC()
		md.PublishedAt = &t
	}
	return md
}

// itemURL prefers the item's page link and falls back to the media enclosure.
func itemURL(it *gofeed.Item) string {
	if it.Link != "" {
		return it.Link
	}
	for _, enc := range it.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

// ParseDuration reads an itunes:duration value ("3723", "62:03" or
// "1:02:03") as seconds. Unparseable values yield 0.
func ParseDuration(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	total := 0
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// ItemGUID returns the GUID for an RSS item.
// If the item has no GUID, a SHA-256 hash of title+link is used.
func ItemGUID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	h := sha256.Sum256([]byte(item.Title + "|" + item.Link))
	return fmt.Sprintf("sha256:%x", h[:16])
}
