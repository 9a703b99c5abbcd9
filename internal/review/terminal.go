package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Terminal asks for decisions on an interactive terminal.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a Terminal reading answers from in and writing prompts to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Decide implements DecisionSource.
func (t *Terminal) Decide(_ context.Context, g Group) (Decision, error) {
	_, _ = fmt.Fprintf(t.out, "\nChannel: %s\n", g.Channel.Name)
	_, _ = fmt.Fprintf(t.out, "Detected hosts: %s\n", formatProposals(g.Proposals))
	_, _ = fmt.Fprintln(t.out, "Options: [y]es all correct, [n]o remove all, [e]dit individually, [s]kip")

	answer, err := t.ask("Choice: ")
	if err != nil {
		return Skip, err
	}
	return ParseDecision(answer), nil
}

// DecideItem implements DecisionSource.
func (t *Terminal) DecideItem(_ context.Context, _ Group, p Proposal) (ItemDecision, error) {
	_, _ = fmt.Fprintf(t.out, "  %s - [y]es verify, [n]o remove, [s]kip\n", p.PersonName)
	answer, err := t.ask("  Choice: ")
	if err != nil {
		return SkipItem, err
	}
	return ParseItemDecision(answer), nil
}

func (t *Terminal) ask(prompt string) (string, error) {
	_, _ = fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ParseDecision maps a y/n/e/s answer to a Decision. Anything else skips.
func ParseDecision(s string) Decision {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return AcceptAll
	case "n", "no":
		return RejectAll
	case "e", "edit":
		return PerItem
	}
	return Skip
}

// ParseItemDecision maps a y/n answer to an ItemDecision. Anything else skips.
func ParseItemDecision(s string) ItemDecision {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return Accept
	case "n", "no":
		return Reject
	}
	return SkipItem
}

func formatProposals(ps []Proposal) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.PersonName
		if p.Confidence != nil {
			parts[i] += " (" + string(*p.Confidence) + ")"
		}
	}
	return strings.Join(parts, ", ")
}
