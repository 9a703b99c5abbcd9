package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"vidcorpus/internal/model"
)

// Runner executes yt-dlp and returns its JSON output.
type Runner interface {
	// Playlist dumps a flat listing of at most limit entries.
	Playlist(ctx context.Context, url string, limit int) (string, error)
	// Video dumps the full metadata of a single video.
	Video(ctx context.Context, url string) (string, error)
}

type ytdlpRunner struct{}

func (ytdlpRunner) Playlist(ctx context.Context, url string, limit int) (string, error) {
	dl := ytdlp.New().
		FlatPlaylist().
		DumpSingleJSON().
		SkipDownload()
	if limit > 0 {
		dl = dl.PlaylistItems(fmt.Sprintf("1:%d", limit))
	}
	res, err := dl.Run(ctx, url)
	if err != nil {
		return "", ytdlpError(res, err)
	}
	return res.Stdout, nil
}

func (ytdlpRunner) Video(ctx context.Context, url string) (string, error) {
	res, err := ytdlp.New().
		DumpSingleJSON().
		NoPlaylist().
		SkipDownload().
		Run(ctx, url)
	if err != nil {
		return "", ytdlpError(res, err)
	}
	return res.Stdout, nil
}

func ytdlpError(res *ytdlp.Result, err error) error {
	if res != nil && strings.TrimSpace(res.Stderr) != "" {
		return fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(lastLine(res.Stderr)))
	}
	return fmt.Errorf("yt-dlp: %w", err)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// YouTube lists channel uploads and reads video metadata through yt-dlp.
type YouTube struct {
	run     Runner
	timeout time.Duration
}

// NewYouTube creates a YouTube source backed by the yt-dlp binary.
func NewYouTube() *YouTube {
	return NewYouTubeWithRunner(ytdlpRunner{})
}

// NewYouTubeWithRunner creates a YouTube source with a custom runner.
func NewYouTubeWithRunner(r Runner) *YouTube {
	return &YouTube{run: r, timeout: 2 * time.Minute}
}

type ytThumbnail struct {
	URL string `json:"url"`
}

type ytEntry struct {
	ID               string        `json:"id"`
	URL              string        `json:"url"`
	WebpageURL       string        `json:"webpage_url"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Duration         float64       `json:"duration"`
	UploadDate       string        `json:"upload_date"`
	Timestamp        int64         `json:"timestamp"`
	ReleaseTimestamp int64         `json:"release_timestamp"`
	Thumbnail        string        `json:"thumbnail"`
	Thumbnails       []ytThumbnail `json:"thumbnails"`
	ViewCount        *int64        `json:"view_count"`
	LiveStatus       string        `json:"live_status"`
}

type ytPlaylist struct {
	ID                   string        `json:"id"`
	ChannelID            string        `json:"channel_id"`
	Channel              string        `json:"channel"`
	Title                string        `json:"title"`
	Description          string        `json:"description"`
	ChannelFollowerCount *int64        `json:"channel_follower_count"`
	Thumbnails           []ytThumbnail `json:"thumbnails"`
	Entries              []ytEntry     `json:"entries"`
}

// ChannelURL returns the uploads page for a handle ("@name"), a channel ID
// ("UC...") or a full URL.
func ChannelURL(externalID string) string {
	switch {
	case strings.HasPrefix(externalID, "http://"), strings.HasPrefix(externalID, "https://"):
		return externalID
	case strings.HasPrefix(externalID, "UC") && !strings.Contains(externalID, "@"):
		return "https://www.youtube.com/channel/" + externalID + "/videos"
	default:
		return "https://www.youtube.com/@" + strings.TrimPrefix(externalID, "@") + "/videos"
	}
}

// VideoURL returns the watch URL of a video ID.
func VideoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ListChannel implements Source.
func (y *YouTube) ListChannel(ctx context.Context, ch model.Channel, limit int) (model.ChannelInfo, []model.ListingItem, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	out, err := y.run.Playlist(ctx, ChannelURL(ch.ExternalID), limit)
	if err != nil {
		return model.ChannelInfo{}, nil, fmt.Errorf("list channel %s: %w", ch.ExternalID, err)
	}

	var pl ytPlaylist
	if err := json.Unmarshal([]byte(out), &pl); err != nil {
		return model.ChannelInfo{}, nil, fmt.Errorf("parse channel listing: %w", err)
	}

	name := pl.Channel
	if name == "" {
		name = strings.TrimSuffix(pl.Title, " - Videos")
	}
	info := model.ChannelInfo{
		ExternalID:      pl.ChannelID,
		Name:            name,
		Description:     strPtr(strings.TrimSpace(pl.Description)),
		SubscriberCount: pl.ChannelFollowerCount,
		ThumbnailURL:    strPtr(bestThumbnail(pl.Thumbnails)),
	}

	items := make([]model.ListingItem, 0, len(pl.Entries))
	for _, e := range pl.Entries {
		if e.ID == "" {
			continue
		}
		items = append(items, model.ListingItem{
			ExternalID:      e.ID,
			URL:             VideoURL(e.ID),
			Title:           e.Title,
			Description:     e.Description,
			DurationSeconds: int(e.Duration),
			PublishedAt:     e.published(),
		})
	}
	return info, items, nil
}

// EpisodeMetadata implements Source.
func (y *YouTube) EpisodeMetadata(ctx context.Context, _ model.Channel, ep model.Episode) (*model.EpisodeMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	out, err := y.run.Video(ctx, VideoURL(ep.ExternalID))
	if err != nil {
		return nil, fmt.Errorf("video metadata %s: %w", ep.ExternalID, err)
	}
	return parseVideoMetadata(out)
}

func parseVideoMetadata(out string) (*model.EpisodeMetadata, error) {
	var e ytEntry
	if err := json.Unmarshal([]byte(out), &e); err != nil {
		return nil, fmt.Errorf("parse video metadata: %w", err)
	}

	md := &model.EpisodeMetadata{
		Title:        strPtr(e.Title),
		Description:  strPtr(e.Description),
		URL:          strPtr(e.WebpageURL),
		PublishedAt:  e.published(),
		ThumbnailURL: strPtr(e.Thumbnail),
		ViewCount:    e.ViewCount,
		LiveStatus:   e.LiveStatus,
	}
	if md.ThumbnailURL == nil {
		md.ThumbnailURL = strPtr(bestThumbnail(e.Thumbnails))
	}
	if d := int(e.Duration); d > 0 {
		md.DurationSeconds = &d
	}
	return md, nil
}

// published prefers upload_date (YYYYMMDD) and falls back to timestamps.
func (e ytEntry) published() *time.Time {
	if e.UploadDate != "" {
		if t, err := time.Parse("20060102", e.UploadDate); err == nil {
			return &t
		}
	}
	for _, ts := range []int64{e.Timestamp, e.ReleaseTimestamp} {
		if ts > 0 {
			t := time.Unix(ts, 0).UTC()
			return &t
		}
	}
	return nil
}

func bestThumbnail(ts []ytThumbnail) string {
	for i := len(ts) - 1; i >= 0; i-- {
		if ts[i].URL != "" {
			return ts[i].URL
		}
	}
	return ""
}
