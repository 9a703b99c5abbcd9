// Package review defines the human decision point used to verify
// automatically proposed channel hosts.
package review

import (
	"context"

	"vidcorpus/internal/model"
)

// Decision is the verdict for a whole channel group.
type Decision int

// Group decisions.
const (
	Skip Decision = iota
	AcceptAll
	RejectAll
	PerItem
)

func (d Decision) String() string {
	switch d {
	case AcceptAll:
		return "accept-all"
	case RejectAll:
		return "reject-all"
	case PerItem:
		return "per-item"
	}
	return "skip"
}

// ItemDecision is the verdict for one proposal inside a per-item review.
type ItemDecision int

// Item decisions.
const (
	SkipItem ItemDecision = iota
	Accept
	Reject
)

// Proposal is one unverified link awaiting a decision.
type Proposal struct {
	LinkID     int64
	PersonName string
	Confidence *model.Confidence
}

// Group is the set of pending proposals for one channel.
type Group struct {
	Channel   model.Channel
	Proposals []Proposal
}

// Names returns the proposed person names in order.
func (g Group) Names() []string {
	names := make([]string, len(g.Proposals))
	for i, p := range g.Proposals {
		names[i] = p.PersonName
	}
	return names
}

// DecisionSource answers verification prompts.
type DecisionSource interface {
	Decide(ctx context.Context, g Group) (Decision, error)
	DecideItem(ctx context.Context, g Group, p Proposal) (ItemDecision, error)
}
