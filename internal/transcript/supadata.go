package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrMissingAPIKey is returned by providers that need a credential and have none.
var ErrMissingAPIKey = errors.New("api key not configured")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const supadataBaseURL = "https://api.supadata.ai"

// Supadata fetches transcripts from the Supadata transcript API.
type Supadata struct {
	client  HTTPClient
	apiKey  string
	baseURL string
	timeout time.Duration
}

// NewSupadata creates a Supadata provider.
func NewSupadata(client HTTPClient, apiKey string) *Supadata {
	return &Supadata{
		client:  client,
		apiKey:  apiKey,
		baseURL: supadataBaseURL,
		timeout: 30 * time.Second,
	}
}

// WithBaseURL points the provider at another API host.
func (s *Supadata) WithBaseURL(u string) *Supadata {
	s.baseURL = strings.TrimRight(u, "/")
	return s
}

// Name implements Provider.
func (s *Supadata) Name() string { return "supadata" }

type supadataSegment struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type supadataResponse struct {
	Content json.RawMessage `json:"content"`
	Lang    string          `json:"lang"`
	JobID   string          `json:"jobId"`
}

// Fetch implements Provider.
func (s *Supadata) Fetch(ctx context.Context, req Request) (*Result, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("SUPADATA_API_KEY: %w", ErrMissingAPIKey)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("url", episodeURL(req))
	if req.Language != "" {
		q.Set("lang", req.Language)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/transcript?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", s.apiKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New("API timeout")
		}
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %d - %s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200))
	}

	var parsed supadataResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.JobID != "" && len(parsed.Content) == 0 {
		return nil, fmt.Errorf("transcript job %s still pending", parsed.JobID)
	}

	text, lang, err := parseSupadataContent(parsed.Content)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = parsed.Lang
	}

	return &Result{Text: text, Language: lang}, nil
}

// parseSupadataContent accepts either a list of timed segments or plain text.
func parseSupadataContent(raw json.RawMessage) (string, string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", "", nil
	}

	var segments []supadataSegment
	if err := json.Unmarshal(raw, &segments); err == nil {
		parts := make([]string, 0, len(segments))
		for _, seg := range segments {
			parts = append(parts, seg.Text)
		}
		lang := ""
		if len(segments) > 0 {
			lang = segments[0].Lang
		}
		return collapseSpace(strings.Join(parts, " ")), lang, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", "", fmt.Errorf("unexpected content format: %w", err)
	}
	return strings.TrimSpace(text), "", nil
}

// episodeURL returns the canonical short URL for YouTube ids and the stored
// URL for anything else.
func episodeURL(req Request) string {
	if req.URL != "" && !isYouTubeURL(req.URL) {
		return req.URL
	}
	return "https://youtu.be/" + req.ExternalID
}

func isYouTubeURL(u string) bool {
	return strings.Contains(u, "youtube.com/") || strings.Contains(u, "youtu.be/")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
