package identity

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// routeTransport answers by MediaWiki query kind.
type routeTransport struct {
	search     string
	images     string
	statusCode int
	userAgents []string
}

func (m *routeTransport) Do(req *http.Request) (*http.Response, error) {
	m.userAgents = append(m.userAgents, req.Header.Get("User-Agent"))
	body := m.images
	if req.URL.Query().Get("list") == "search" {
		body = m.search
	}
	status := m.statusCode
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}, nil
}

func TestWikipediaLookup(t *testing.T) {
	tests := []struct {
		name      string
		transport *routeTransport
		want      *Reference
		wantErr   bool
	}{
		{
			name: "page and photo",
			transport: &routeTransport{
				search: `{"query":{"search":[{"title":"Jane Doe (scientist)"}]}}`,
				images: `{"query":{"pages":{"123":{"thumbnail":{"source":"https://upload.example/jane.jpg"}}}}}`,
			},
			want: &Reference{
				URL:      "https://en.wikipedia.org/wiki/Jane_Doe_%28scientist%29",
				PhotoURL: "https://upload.example/jane.jpg",
			},
		},
		{
			name: "page without photo",
			transport: &routeTransport{
				search: `{"query":{"search":[{"title":"John Roe"}]}}`,
				images: `not json`,
			},
			want: &Reference{URL: "https://en.wikipedia.org/wiki/John_Roe"},
		},
		{
			name:      "no results",
			transport: &routeTransport{search: `{"query":{"search":[]}}`},
			want:      nil,
		},
		{
			name:      "http error",
			transport: &routeTransport{statusCode: 503},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewWikipedia(tt.transport).Lookup(context.Background(), "Jane Doe")
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("reference mismatch (-want +got):\n%s", diff)
			}
			for _, ua := range tt.transport.userAgents {
				if ua == "" {
					t.Error("request sent without User-Agent")
				}
			}
		})
	}
}
