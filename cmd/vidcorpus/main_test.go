package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"vidcorpus/internal/config"
	"vidcorpus/internal/pipeline"
)

func TestParseEpisodeID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "42", want: 42},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseEpisodeID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseEpisodeID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseEpisodeID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[int]string{
		0:    "",
		150:  "2:30",
		3600: "1:00:00",
		3723: "1:02:03",
	}
	for in, want := range tests {
		if got := formatDuration(in); got != want {
			t.Errorf("formatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestPrintBatch(t *testing.T) {
	stats := pipeline.BatchStats{
		Total:     3,
		Succeeded: 1,
		Failed:    2,
		Errors:    pipeline.ErrorLog{Messages: []string{"7 First: no captions"}, Count: 2},
	}
	var buf bytes.Buffer
	printBatch(&buf, "Transcripts", stats)

	want := "Transcripts: 3 total, 1 succeeded, 0 skipped, 2 failed\n\nErrors (2):\n  - 7 First: no captions\n  ... and 1 more\n"
	if buf.String() != want {
		t.Errorf("printBatch =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Title"}, [][]string{{"1", "First"}, {"2"}}, 0)
	for _, want := range []string{"ID", "Title", "First"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWriteMarkdownPlain(t *testing.T) {
	var buf bytes.Buffer
	if err := writeMarkdown(&buf, "# Title\n\nBody"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "# Title\n\nBody\n" {
		t.Errorf("non-terminal output = %q", buf.String())
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{
		"bot", "extract-guests", "extract-hosts", "fetch-all-transcripts", "fetch-transcript",
		"get-summary", "get-transcript", "list-pending", "next-summary", "next-transcript",
		"save-summary", "status", "summarize", "sync-new", "verify-hosts", "watch",
	}
	got := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestApplyLimits(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    [2]int
		wantErr bool
	}{
		{name: "config values kept", want: [2]int{20, 10}},
		{name: "flags override", args: []string{"--limit", "5", "--new-channel-limit", "3"}, want: [2]int{5, 3}},
		{name: "zero new channel limit", args: []string{"--new-channel-limit", "0"}, want: [2]int{20, 10}, wantErr: true},
		{name: "negative limit", args: []string{"--limit", "-1"}, want: [2]int{20, 10}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "sync"}
			addSyncFlags(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatal(err)
			}
			c := &config.Config{Limit: 20, NewChannelLimit: 10}

			err := applyLimits(cmd, c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("applyLimits error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := [2]int{c.Limit, c.NewChannelLimit}; got != tt.want {
				t.Errorf("limits = %v, want %v", got, tt.want)
			}
		})
	}
}
