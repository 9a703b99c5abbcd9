package main

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"vidcorpus/internal/model"
	"vidcorpus/internal/pipeline"
)

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, col := range rightAligned {
		configs = append(configs, table.ColumnConfig{Number: col + 1, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// newProgress returns a batch progress callback drawing a bar on stderr, or
// nil when stderr is not a terminal.
func newProgress(description string) pipeline.Progress {
	if !isTerminal(os.Stderr) {
		return nil
	}
	var bar *progressbar.ProgressBar
	return func(done, total int, _ model.Episode) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(description),
				progressbar.OptionSetWidth(30),
				progressbar.OptionShowCount(),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}))
		}
		_ = bar.Set(done)
		if done == total {
			_ = bar.Finish()
		}
	}
}

// writeMarkdown renders markdown for a terminal and writes it verbatim otherwise.
func writeMarkdown(w io.Writer, content string) error {
	f, ok := w.(*os.File)
	if !ok || !isTerminal(f) {
		_, err := fmt.Fprintln(w, content)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(terminalWidth(f)),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(content)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = fmt.Fprint(w, out)
	return err
}

func terminalWidth(f *os.File) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	if width > 10 {
		return width - 4
	}
	return width
}

// copyOrPrint puts text on the clipboard when toClipboard is set and reports
// it on stdout. Otherwise show runs.
func copyOrPrint(toClipboard bool, what, text string, show func()) error {
	if !toClipboard {
		show()
		return nil
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copy %s to clipboard: %w", what, err)
	}
	fmt.Printf("%s copied to clipboard (%d chars)\n", what, len(text))
	return nil
}

func printBatch(w io.Writer, label string, s pipeline.BatchStats) {
	_, _ = fmt.Fprintf(w, "%s: %d total, %d succeeded, %d skipped, %d failed\n",
		label, s.Total, s.Succeeded, s.Skipped, s.Failed)
	printErrors(w, s.Errors)
}

func printErrors(w io.Writer, l pipeline.ErrorLog) {
	if l.Count == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "\nErrors (%d):\n", l.Count)
	for _, msg := range l.Messages {
		_, _ = fmt.Fprintf(w, "  - %s\n", msg)
	}
	if hidden := l.Hidden(); hidden > 0 {
		_, _ = fmt.Fprintf(w, "  ... and %d more\n", hidden)
	}
}

func formatDate(ep *model.Episode) string {
	if ep.PublishedAt == nil {
		return ""
	}
	return ep.PublishedAt.UTC().Format("2006-01-02")
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return ""
	}
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
