package review

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"vidcorpus/internal/model"
)

func TestParseDecision(t *testing.T) {
	tests := map[string]Decision{
		"y":    AcceptAll,
		" Y ":  AcceptAll,
		"n":    RejectAll,
		"e":    PerItem,
		"s":    Skip,
		"":     Skip,
		"what": Skip,
	}
	for in, want := range tests {
		if got := ParseDecision(in); got != want {
			t.Errorf("ParseDecision(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTerminal(t *testing.T) {
	conf := model.ConfidenceHigh
	g := Group{
		Channel: model.Channel{ID: 1, Name: "Deep Talks"},
		Proposals: []Proposal{
			{LinkID: 1, PersonName: "Jane Doe", Confidence: &conf},
			{LinkID: 2, PersonName: "John Roe"},
		},
	}

	var out bytes.Buffer
	term := NewTerminal(strings.NewReader("e\ny\nn"), &out)
	ctx := context.Background()

	d, err := term.Decide(ctx, g)
	if err != nil || d != PerItem {
		t.Fatalf("Decide() = %v, %v", d, err)
	}
	if !strings.Contains(out.String(), "Jane Doe (high), John Roe") {
		t.Errorf("prompt missing proposals:\n%s", out.String())
	}

	first, err := term.DecideItem(ctx, g, g.Proposals[0])
	if err != nil || first != Accept {
		t.Fatalf("first item = %v, %v", first, err)
	}
	// last answer has no trailing newline
	second, err := term.DecideItem(ctx, g, g.Proposals[1])
	if err != nil || second != Reject {
		t.Fatalf("second item = %v, %v", second, err)
	}

	if _, err := term.DecideItem(ctx, g, g.Proposals[1]); err == nil {
		t.Error("expected error on exhausted input")
	}
}
