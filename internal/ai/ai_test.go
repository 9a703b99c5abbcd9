package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/go-cmp/cmp"
	openaiopt "github.com/openai/openai-go/v2/option"

	"vidcorpus/internal/model"
)

func ptr[T any](v T) *T { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGenerator struct {
	text      string
	err       error
	system    string
	prompt    string
	maxTokens int
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string, maxTokens int) (string, error) {
	f.system, f.prompt, f.maxTokens = system, prompt, maxTokens
	return f.text, f.err
}

func TestExtractList(t *testing.T) {
	type item struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name string
		text string
		want []item
	}{
		{name: "plain array", text: `[{"name":"Jane Doe"}]`, want: []item{{"Jane Doe"}}},
		{name: "json fence", text: "```json\n[{\"name\":\"Jane Doe\"}]\n```", want: []item{{"Jane Doe"}}},
		{name: "bare fence", text: "```\n[{\"name\":\"A\"},{\"name\":\"B\"}]\n```", want: []item{{"A"}, {"B"}}},
		{name: "surrounding prose", text: `Here are the hosts: [{"name":"Jane Doe"}] hope this helps`, want: []item{{"Jane Doe"}}},
		{name: "empty array", text: "[]", want: []item{}},
		{name: "null", text: "null", want: []item{}},
		{name: "not json", text: "I could not find anyone.", want: []item{}},
		{name: "object not array", text: `{"name":"Jane"}`, want: []item{}},
		{name: "broken array", text: `[{"name": "Jane"`, want: []item{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractList[item](tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractList() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProposeHosts(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n" + `[
		{"name": "Jane Doe", "confidence": "HIGH"},
		{"name": "", "confidence": "high"},
		{"name": "John Roe", "confidence": "sure"}
	]` + "\n```"}
	e := NewExtractor(gen, discardLogger())

	ch := model.Channel{Name: "Deep Talks", Description: ptr(strings.Repeat("d", 1500))}
	recent := []model.Episode{
		{Title: "Ep 1", Description: ptr(strings.Repeat("x", 400))},
		{Title: "Ep 2"},
	}

	got, err := e.ProposeHosts(context.Background(), ch, recent)
	if err != nil {
		t.Fatalf("propose hosts: %v", err)
	}
	want := []model.Candidate{
		{Name: "Jane Doe", Role: model.RoleHost, Confidence: model.ConfidenceHigh},
		{Name: "John Roe", Role: model.RoleHost, Confidence: model.ConfidenceMedium},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}

	if gen.system != extractionSystemPrompt || gen.maxTokens != extractionMaxTokens {
		t.Errorf("unexpected system/maxTokens: %q %d", gen.system, gen.maxTokens)
	}
	if strings.Contains(gen.prompt, strings.Repeat("d", 1001)) {
		t.Error("channel description not clipped to 1000 chars")
	}
	if !strings.Contains(gen.prompt, strings.Repeat("x", 300)+"...") || strings.Contains(gen.prompt, strings.Repeat("x", 301)) {
		t.Error("episode description not clipped to 300 chars")
	}
}

func TestProposeGuests(t *testing.T) {
	gen := &fakeGenerator{text: `[{"name":"Alan Turing","role":"guest"},{"name":"Grace Hopper"}]`}
	e := NewExtractor(gen, discardLogger())

	got, err := e.ProposeGuests(context.Background(),
		model.Channel{Name: "Deep Talks"},
		model.Episode{Title: "Machines", Description: ptr("Alan joins us")},
		[]string{"Jane Doe", "John Roe"},
	)
	if err != nil {
		t.Fatalf("propose guests: %v", err)
	}
	want := []model.Candidate{
		{Name: "Alan Turing", Role: model.RoleGuest},
		{Name: "Grace Hopper", Role: model.RoleGuest},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(gen.prompt, "Known hosts (DO NOT include these): Jane Doe, John Roe") {
		t.Errorf("prompt missing host context:\n%s", gen.prompt)
	}
}

func TestProposeGuestsGeneratorError(t *testing.T) {
	boom := errors.New("rate limited")
	e := NewExtractor(&fakeGenerator{err: boom}, discardLogger())
	if _, err := e.ProposeGuests(context.Background(), model.Channel{}, model.Episode{}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	gen := &fakeGenerator{text: "  - point one\n- point two  "}
	s := NewSummarizer(gen)

	long := strings.Repeat("a", transcriptLimit+50)
	got, err := s.Summarize(context.Background(), "Big Ideas", long)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != "- point one\n- point two" {
		t.Errorf("summary = %q", got)
	}
	if gen.maxTokens != summaryMaxTokens {
		t.Errorf("maxTokens = %d", gen.maxTokens)
	}
	if !strings.HasSuffix(gen.prompt, strings.Repeat("a", 10)+transcriptTruncatedMarker) {
		t.Error("long transcript not truncated with marker")
	}
	if !strings.Contains(gen.prompt, "Video Title: Big Ideas") {
		t.Error("prompt missing title")
	}

	if _, err := NewSummarizer(&fakeGenerator{text: "   "}).Summarize(context.Background(), "", "text"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestNew(t *testing.T) {
	if g, err := New(Config{Provider: "openai", OpenAIKey: "k"}); err != nil {
		t.Errorf("openai: %v", err)
	} else if _, ok := g.(*OpenAI); !ok {
		t.Errorf("openai returned %T", g)
	}
	if g, err := New(Config{Provider: "Anthropic", AnthropicKey: "k"}); err != nil {
		t.Errorf("anthropic: %v", err)
	} else if _, ok := g.(*Anthropic); !ok {
		t.Errorf("anthropic returned %T", g)
	}
	if _, err := New(Config{Provider: "llama"}); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "[{\"name\":\"Jane Doe\"}]"}}]
		}`)
	}))
	defer srv.Close()

	o := NewOpenAI("test-key", "", openaiopt.WithBaseURL(srv.URL+"/"), openaiopt.WithMaxRetries(0))
	text, err := o.Generate(context.Background(), "sys", "user prompt", 123)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != `[{"name":"Jane Doe"}]` {
		t.Errorf("text = %q", text)
	}
	if got.Model != "gpt-4o-mini" || got.MaxTokens != 123 || len(got.Messages) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Messages[0].Role != "system" || got.Messages[1].Content != "user prompt" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestOpenAIGenerateError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer srv.Close()

	o := NewOpenAI("k", "", openaiopt.WithBaseURL(srv.URL+"/"), openaiopt.WithMaxRetries(0))
	if _, err := o.Generate(context.Background(), "s", "p", 10); err == nil {
		t.Fatal("expected error")
	}
}

func TestAnthropicGenerate(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		System    []struct {
			Text string `json:"text"`
		} `json:"system"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-20250514",
			"content": [{"type": "text", "text": "- a summary"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`)
	}))
	defer srv.Close()

	a := NewAnthropic("test-key", "", anthropicopt.WithBaseURL(srv.URL+"/"), anthropicopt.WithMaxRetries(0))
	text, err := a.Generate(context.Background(), "be brief", "summarize", 2000)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "- a summary" {
		t.Errorf("text = %q", text)
	}
	if got.Model != DefaultAnthropicModel || got.MaxTokens != 2000 {
		t.Errorf("unexpected request %+v", got)
	}
	if len(got.System) != 1 || got.System[0].Text != "be brief" {
		t.Errorf("system = %+v", got.System)
	}
}
