// Package fetcher lists channel uploads and fetches episode metadata from
// YouTube (through yt-dlp) and podcast RSS feeds.
package fetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vidcorpus/internal/model"
)

// Source lists one kind of channel and describes its episodes.
type Source interface {
	ListChannel(ctx context.Context, ch model.Channel, limit int) (model.ChannelInfo, []model.ListingItem, error)
	EpisodeMetadata(ctx context.Context, ch model.Channel, ep model.Episode) (*model.EpisodeMetadata, error)
}

// Router dispatches to the Source registered for a channel's type.
type Router struct {
	sources map[model.ChannelType]Source
}

// NewRouter creates a Router for the given sources.
func NewRouter(sources map[model.ChannelType]Source) *Router {
	return &Router{sources: sources}
}

func (r *Router) source(typ model.ChannelType) (Source, error) {
	s, ok := r.sources[typ]
	if !ok {
		return nil, fmt.Errorf("no source for channel type %q", typ)
	}
	return s, nil
}

// ListChannel implements Source.
func (r *Router) ListChannel(ctx context.Context, ch model.Channel, limit int) (model.ChannelInfo, []model.ListingItem, error) {
	s, err := r.source(ch.Type)
	if err != nil {
		return model.ChannelInfo{}, nil, err
	}
	return s.ListChannel(ctx, ch, limit)
}

// EpisodeMetadata implements Source.
func (r *Router) EpisodeMetadata(ctx context.Context, ch model.Channel, ep model.Episode) (*model.EpisodeMetadata, error) {
	s, err := r.source(ch.Type)
	if err != nil {
		return nil, err
	}
	return s.EpisodeMetadata(ctx, ch, ep)
}

// PlainText strips HTML markup from s and collapses whitespace. Input that is
// not HTML passes through with whitespace collapsed.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("br, p, li").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
