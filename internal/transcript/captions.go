package transcript

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

// SubtitleDownloader writes SRT subtitle files for a video into dir.
type SubtitleDownloader func(ctx context.Context, videoURL, dir, lang string) error

// Captions reads YouTube manual or automatic captions through yt-dlp.
type Captions struct {
	download SubtitleDownloader
	timeout  time.Duration
}

// NewCaptions creates a captions provider backed by yt-dlp.
func NewCaptions() *Captions {
	return NewCaptionsWithDownloader(downloadSubtitles)
}

// NewCaptionsWithDownloader creates a captions provider with a custom downloader.
func NewCaptionsWithDownloader(d SubtitleDownloader) *Captions {
	return &Captions{download: d, timeout: 30 * time.Second}
}

// Name implements Provider.
func (c *Captions) Name() string { return "youtube" }

// Fetch implements Provider.
func (c *Captions) Fetch(ctx context.Context, req Request) (*Result, error) {
	if req.URL != "" && !isYouTubeURL(req.URL) {
		return nil, errors.New("not a YouTube episode")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "vidcorpus-captions-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	videoURL := "https://www.youtube.com/watch?v=" + req.ExternalID
	if err := c.download(ctx, videoURL, dir, req.Language); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New("timeout downloading captions")
		}
		return nil, fmt.Errorf("download captions: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.srt"))
	if err != nil || len(files) == 0 {
		return nil, errors.New("no captions available")
	}
	sort.Strings(files)

	content, err := os.ReadFile(files[0]) //nolint:gosec // path comes from our own temp dir
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}

	return &Result{
		Text:     FlattenSRT(string(content)),
		Language: subtitleLanguage(files[0]),
	}, nil
}

func downloadSubtitles(ctx context.Context, videoURL, dir, lang string) error {
	if lang == "" {
		lang = "en"
	}
	dl := ytdlp.New().
		WriteSubs().
		WriteAutoSubs().
		SubLangs(lang + ".*," + lang).
		ConvertSubs("srt").
		SkipDownload().
		Output(filepath.Join(dir, "%(id)s"))

	if _, err := dl.Run(ctx, videoURL); err != nil {
		return err
	}
	return nil
}

// subtitleLanguage extracts the language tag from "<id>.<lang>.srt".
func subtitleLanguage(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".srt")
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[i+1:]
	}
	return ""
}

var srtTag = regexp.MustCompile(`<[^>]+>`)

// FlattenSRT turns SRT subtitles into plain text, dropping cue numbers,
// timings, markup and the rolling repeats of auto-generated captions.
func FlattenSRT(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var lines []string
	for _, block := range strings.Split(content, "\n\n") {
		for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
			line = strings.TrimSpace(srtTag.ReplaceAllString(line, ""))
			if line == "" || strings.Contains(line, "-->") || isCueNumber(line) {
				continue
			}
			if n := len(lines); n > 0 {
				prev := lines[n-1]
				if strings.Contains(prev, line) {
					continue
				}
				if strings.HasPrefix(line, prev) {
					lines[n-1] = line
					continue
				}
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}

func isCueNumber(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
