package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Reference is what an external lookup knows about a person.
type Reference struct {
	URL      string
	PhotoURL string
}

// Lookup finds reference material for a person by name. A nil Reference with
// a nil error means nothing was found.
type Lookup interface {
	Lookup(ctx context.Context, name string) (*Reference, error)
}

const (
	wikipediaAPI       = "https://en.wikipedia.org/w/api.php"
	wikipediaPageBase  = "https://en.wikipedia.org/wiki/"
	wikipediaUserAgent = "vidcorpus/1.0 (episode corpus enrichment)"
)

// Wikipedia looks people up through the MediaWiki search API.
type Wikipedia struct {
	client  HTTPClient
	apiURL  string
	timeout time.Duration
}

// NewWikipedia creates a Wikipedia lookup.
func NewWikipedia(client HTTPClient) *Wikipedia {
	return &Wikipedia{client: client, apiURL: wikipediaAPI, timeout: 10 * time.Second}
}

// WithAPIURL points the lookup at another MediaWiki endpoint.
func (w *Wikipedia) WithAPIURL(u string) *Wikipedia {
	w.apiURL = u
	return w
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type pageImagesResponse struct {
	Query struct {
		Pages map[string]struct {
			Thumbnail struct {
				Source string `json:"source"`
			} `json:"thumbnail"`
		} `json:"pages"`
	} `json:"query"`
}

// Lookup implements Lookup. The page photo is optional and its failure is
// not reported.
func (w *Wikipedia) Lookup(ctx context.Context, name string) (*Reference, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var search searchResponse
	err := w.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {name},
		"srlimit":  {"1"},
		"format":   {"json"},
	}, &search)
	if err != nil {
		return nil, fmt.Errorf("search wikipedia: %w", err)
	}
	if len(search.Query.Search) == 0 {
		return nil, nil
	}

	title := search.Query.Search[0].Title
	ref := &Reference{URL: wikipediaPageBase + url.PathEscape(strings.ReplaceAll(title, " ", "_"))}

	var images pageImagesResponse
	err = w.get(ctx, url.Values{
		"action":      {"query"},
		"titles":      {title},
		"prop":        {"pageimages"},
		"pithumbsize": {"500"},
		"format":      {"json"},
	}, &images)
	if err == nil {
		for _, page := range images.Query.Pages {
			if page.Thumbnail.Source != "" {
				ref.PhotoURL = page.Thumbnail.Source
				break
			}
		}
	}

	return ref, nil
}

func (w *Wikipedia) get(ctx context.Context, params url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", wikipediaUserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
