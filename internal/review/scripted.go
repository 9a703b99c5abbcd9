package review

import "context"

// Scripted returns predetermined decisions keyed by channel ID and person name.
// Channels without an entry are skipped.
type Scripted struct {
	Groups map[int64]Decision
	Items  map[string]ItemDecision

	// Seen records the channels presented, in order.
	Seen []int64
}

// Decide implements DecisionSource.
func (s *Scripted) Decide(_ context.Context, g Group) (Decision, error) {
	s.Seen = append(s.Seen, g.Channel.ID)
	return s.Groups[g.Channel.ID], nil
}

// DecideItem implements DecisionSource.
func (s *Scripted) DecideItem(_ context.Context, _ Group, p Proposal) (ItemDecision, error) {
	return s.Items[p.PersonName], nil
}
