package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"

	"vidcorpus/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
	calls      int
	lastReq    *http.Request
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}

const feedURL = "https://podcast.example.com/feed.xml"

func TestFetch(t *testing.T) {
	xml := loadFixture(t, "../../testdata/podcast.xml")

	tests := []struct {
		name      string
		transport *mockTransport
		wantTitle string
		wantItems int
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			wantTitle: "Long Conversations",
			wantItems: 3,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewRSS(tt.transport)
			feed, err := f.Fetch(context.Background(), feedURL)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.wantTitle, feed.Title); diff != "" {
				t.Errorf("title mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantItems, len(feed.Items)); diff != "" {
				t.Errorf("item count mismatch (-want +got):\n%s", diff)
			}
			if got := tt.transport.lastReq.Header.Get("User-Agent"); got == "" {
				t.Error("User-Agent header not set")
			}
		})
	}
}

func TestRSSListChannel(t *testing.T) {
	tr := &mockTransport{body: loadFixture(t, "../../testdata/podcast.xml"), statusCode: 200}
	f := NewRSS(tr)
	ch := model.Channel{Type: model.ChannelRSS, ExternalID: feedURL}

	info, items, err := f.ListChannel(context.Background(), ch, 0)
	if err != nil {
		t.Fatalf("list channel: %v", err)
	}

	wantInfo := model.ChannelInfo{
		ExternalID:   feedURL,
		Name:         "Long Conversations",
		Description:  ptr("Hosted by Jane Doe. Weekly deep dives."),
		ThumbnailURL: ptr("https://podcast.example.com/cover.jpg"),
	}
	if diff := cmp.Diff(wantInfo, info); diff != "" {
		t.Errorf("channel info mismatch (-want +got):\n%s", diff)
	}

	trailerGUID := ItemGUID(&gofeed.Item{Title: "Trailer", Link: "https://podcast.example.com/trailer"})
	wantItems := []model.ListingItem{
		{
			ExternalID:      "ep-42",
			URL:             "https://cdn.example.com/42.mp3",
			Title:           "Episode 42: Databases",
			Description:     "Grace Hopper joins us.",
			DurationSeconds: 3600,
			PublishedAt:     date(2026, time.March, 9, 10),
		},
		{
			ExternalID:      "ep-41",
			URL:             "https://podcast.example.com/41",
			Title:           "Episode 41: Compilers",
			Description:     "Jane talks to Alan Turing. Part two.",
			DurationSeconds: 3723,
			PublishedAt:     date(2026, time.March, 2, 10),
		},
		{
			ExternalID:      trailerGUID,
			URL:             "https://podcast.example.com/trailer",
			Title:           "Trailer",
			Description:     "Coming soon.",
			DurationSeconds: 150,
			PublishedAt:     date(2026, time.February, 2, 10),
		},
	}
	if diff := cmp.Diff(wantItems, items); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}

	_, limited, err := f.ListChannel(context.Background(), ch, 1)
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(limited) != 1 || limited[0].ExternalID != "ep-42" {
		t.Errorf("limit should keep the newest item, got %+v", limited)
	}
}

func TestRSSEpisodeMetadata(t *testing.T) {
	tr := &mockTransport{body: loadFixture(t, "../../testdata/podcast.xml"), statusCode: 200}
	f := NewRSS(tr)
	ch := model.Channel{Type: model.ChannelRSS, ExternalID: feedURL}
	ctx := context.Background()

	md, err := f.EpisodeMetadata(ctx, ch, model.Episode{ExternalID: "ep-41"})
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	want := &model.EpisodeMetadata{
		Title:           ptr("Episode 41: Compilers"),
		Description:     ptr("Jane talks to Alan Turing. Part two."),
		URL:             ptr("https://podcast.example.com/41"),
		DurationSeconds: ptr(3723),
		PublishedAt:     date(2026, time.March, 2, 10),
	}
	if diff := cmp.Diff(want, md); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	if tr.calls != 1 {
		t.Errorf("expected one fetch, got %d", tr.calls)
	}

	if _, err := f.EpisodeMetadata(ctx, ch, model.Episode{ExternalID: "ep-42"}); err != nil {
		t.Fatalf("cached metadata: %v", err)
	}
	if tr.calls != 1 {
		t.Errorf("cached item refetched feed, calls %d", tr.calls)
	}

	if _, err := f.EpisodeMetadata(ctx, ch, model.Episode{ExternalID: "gone"}); err == nil {
		t.Error("expected error for item missing from feed")
	}
	if tr.calls != 2 {
		t.Errorf("missing item should refetch once, calls %d", tr.calls)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"3723", 3723},
		{"62:03", 3723},
		{"1:02:03", 3723},
		{" 02:30 ", 150},
		{"", 0},
		{"about an hour", 0},
		{"1:-2", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseDuration(tt.in)); diff != "" {
				t.Errorf("duration mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestItemGUID(t *testing.T) {
	tests := []struct {
		name     string
		item     *gofeed.Item
		wantGUID string
		hasHash  bool
	}{
		{
			name:     "with guid",
			item:     &gofeed.Item{GUID: "abc-123"},
			wantGUID: "abc-123",
		},
		{
			name:    "without guid generates hash",
			item:    &gofeed.Item{Title: "Episode Without GUID", Link: "https://example.com/ep-1"},
			hasHash: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ItemGUID(tt.item)
			if tt.hasHash {
				if !strings.HasPrefix(got, "sha256:") {
					t.Errorf("expected sha256 prefix, got %q", got)
				}
				if again := ItemGUID(tt.item); again != got {
					t.Errorf("hash not stable: %q != %q", got, again)
				}
				return
			}
			if diff := cmp.Diff(tt.wantGUID, got); diff != "" {
				t.Errorf("GUID mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  just   text\n here ", "just text here"},
		{"paragraphs", "<p>one</p><p>two</p>", "one two"},
		{"line breaks", "first<br>second", "first second"},
		{"entities", "Tom &amp; Jerry", "Tom & Jerry"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, PlainText(tt.in)); diff != "" {
				t.Errorf("text mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type fakeRunner struct {
	playlist string
	video    string
	err      error

	lastURL   string
	lastLimit int
}

func (f *fakeRunner) Playlist(_ context.Context, url string, limit int) (string, error) {
	f.lastURL, f.lastLimit = url, limit
	return f.playlist, f.err
}

func (f *fakeRunner) Video(_ context.Context, url string) (string, error) {
	f.lastURL = url
	return f.video, f.err
}

const channelListing = `{
  "id": "UCabc",
  "channel_id": "UCabc",
  "channel": "The Show",
  "title": "The Show - Videos",
  "description": "  Long form interviews.  ",
  "channel_follower_count": 1200,
  "thumbnails": [{"url": "https://img.example.com/small.jpg"}, {"url": "https://img.example.com/big.jpg"}],
  "entries": [
    {"id": "v2", "title": "Second", "description": "d2", "duration": 3600.0, "upload_date": "20260309"},
    {"id": "v1", "title": "First", "duration": 1500, "timestamp": 1772445600},
    {"id": "", "title": "broken entry"}
  ]
}`

func TestYouTubeListChannel(t *testing.T) {
	run := &fakeRunner{playlist: channelListing}
	y := NewYouTubeWithRunner(run)

	info, items, err := y.ListChannel(context.Background(), model.Channel{Type: model.ChannelYouTube, ExternalID: "@theshow"}, 5)
	if err != nil {
		t.Fatalf("list channel: %v", err)
	}
	if run.lastURL != "https://www.youtube.com/@theshow/videos" || run.lastLimit != 5 {
		t.Errorf("runner called with %q limit %d", run.lastURL, run.lastLimit)
	}

	wantInfo := model.ChannelInfo{
		ExternalID:      "UCabc",
		Name:            "The Show",
		Description:     ptr("Long form interviews."),
		SubscriberCount: ptr(int64(1200)),
		ThumbnailURL:    ptr("https://img.example.com/big.jpg"),
	}
	if diff := cmp.Diff(wantInfo, info); diff != "" {
		t.Errorf("channel info mismatch (-want +got):\n%s", diff)
	}

	wantItems := []model.ListingItem{
		{
			ExternalID:      "v2",
			URL:             "https://www.youtube.com/watch?v=v2",
			Title:           "Second",
			Description:     "d2",
			DurationSeconds: 3600,
			PublishedAt:     date(2026, time.March, 9, 0),
		},
		{
			ExternalID:      "v1",
			URL:             "https://www.youtube.com/watch?v=v1",
			Title:           "First",
			DurationSeconds: 1500,
			PublishedAt:     date(2026, time.March, 2, 10),
		},
	}
	if diff := cmp.Diff(wantItems, items); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestYouTubeListChannelErrors(t *testing.T) {
	tests := []struct {
		name string
		run  *fakeRunner
	}{
		{"runner failure", &fakeRunner{err: errors.New("exit status 1")}},
		{"bad json", &fakeRunner{playlist: "{not json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewYouTubeWithRunner(tt.run).ListChannel(context.Background(), model.Channel{ExternalID: "@x"}, 1)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestYouTubeEpisodeMetadata(t *testing.T) {
	tests := []struct {
		name  string
		video string
		want  *model.EpisodeMetadata
	}{
		{
			name: "finished video",
			video: `{"id":"v1","title":"First","description":"about things","webpage_url":"https://www.youtube.com/watch?v=v1",
				"duration":1500,"upload_date":"20260302","thumbnail":"https://img.example.com/v1.jpg","view_count":77,"live_status":"was_live"}`,
			want: &model.EpisodeMetadata{
				Title:           ptr("First"),
				Description:     ptr("about things"),
				URL:             ptr("https://www.youtube.com/watch?v=v1"),
				DurationSeconds: ptr(1500),
				PublishedAt:     date(2026, time.March, 2, 0),
				ThumbnailURL:    ptr("https://img.example.com/v1.jpg"),
				ViewCount:       ptr(int64(77)),
				LiveStatus:      "was_live",
			},
		},
		{
			name:  "upcoming premiere",
			video: `{"id":"v3","title":"Soon","release_timestamp":1772445600,"live_status":"is_upcoming","thumbnails":[{"url":"https://img.example.com/v3.jpg"}]}`,
			want: &model.EpisodeMetadata{
				Title:        ptr("Soon"),
				PublishedAt:  date(2026, time.March, 2, 10),
				ThumbnailURL: ptr("https://img.example.com/v3.jpg"),
				LiveStatus:   model.LiveStatusIsUpcoming,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &fakeRunner{video: tt.video}
			got, err := NewYouTubeWithRunner(run).EpisodeMetadata(context.Background(), model.Channel{}, model.Episode{ExternalID: "v1"})
			if err != nil {
				t.Fatalf("metadata: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("metadata mismatch (-want +got):\n%s", diff)
			}
			if run.lastURL != "https://www.youtube.com/watch?v=v1" {
				t.Errorf("runner called with %q", run.lastURL)
			}
		})
	}
}

func TestChannelURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@lexfridman", "https://www.youtube.com/@lexfridman/videos"},
		{"lexfridman", "https://www.youtube.com/@lexfridman/videos"},
		{"UCSHZKyawb77ixDdsGog4iWA", "https://www.youtube.com/channel/UCSHZKyawb77ixDdsGog4iWA/videos"},
		{"https://www.youtube.com/@x/streams", "https://www.youtube.com/@x/streams"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ChannelURL(tt.in)); diff != "" {
				t.Errorf("url mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type stubSource struct{ name string }

func (s stubSource) ListChannel(context.Context, model.Channel, int) (model.ChannelInfo, []model.ListingItem, error) {
	return model.ChannelInfo{Name: s.name}, nil, nil
}

func (s stubSource) EpisodeMetadata(context.Context, model.Channel, model.Episode) (*model.EpisodeMetadata, error) {
	return &model.EpisodeMetadata{Title: ptr(s.name)}, nil
}

func TestRouter(t *testing.T) {
	r := NewRouter(map[model.ChannelType]Source{
		model.ChannelYouTube: stubSource{name: "yt"},
		model.ChannelRSS:     stubSource{name: "rss"},
	})
	ctx := context.Background()

	info, _, err := r.ListChannel(ctx, model.Channel{Type: model.ChannelRSS}, 1)
	if err != nil || info.Name != "rss" {
		t.Errorf("rss routing = %q, %v", info.Name, err)
	}
	md, err := r.EpisodeMetadata(ctx, model.Channel{Type: model.ChannelYouTube}, model.Episode{})
	if err != nil || *md.Title != "yt" {
		t.Errorf("youtube routing = %v, %v", md, err)
	}
	if _, _, err := r.ListChannel(ctx, model.Channel{Type: "vimeo"}, 1); err == nil {
		t.Error("expected error for unregistered type")
	}
}
