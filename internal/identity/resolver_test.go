package identity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"vidcorpus/internal/model"
	"vidcorpus/internal/review"
	"vidcorpus/internal/storage"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustChannel(t *testing.T, s *storage.DB, externalID string) *model.Channel {
	t.Helper()
	ch := &model.Channel{Type: model.ChannelYouTube, ExternalID: externalID, Name: externalID}
	if err := s.UpsertChannel(context.Background(), ch); err != nil {
		t.Fatalf("upsert channel: %v", err)
	}
	return ch
}

func mustEpisode(t *testing.T, s *storage.DB, channelID int64, externalID string) *model.Episode {
	t.Helper()
	published := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ep := &model.Episode{ChannelID: channelID, ExternalID: externalID, Title: "Episode " + externalID, PublishedAt: &published}
	if _, err := s.InsertEpisode(context.Background(), ep); err != nil {
		t.Fatalf("insert episode: %v", err)
	}
	return ep
}

type fakeProposer struct {
	hosts      []model.Candidate
	guests     []model.Candidate
	err        error
	knownHosts []string
	recent     int
}

func (f *fakeProposer) ProposeHosts(_ context.Context, _ model.Channel, recent []model.Episode) ([]model.Candidate, error) {
	f.recent = len(recent)
	return f.hosts, f.err
}

func (f *fakeProposer) ProposeGuests(_ context.Context, _ model.Channel, _ model.Episode, knownHosts []string) ([]model.Candidate, error) {
	f.knownHosts = knownHosts
	return f.guests, f.err
}

type fakeLookup struct {
	ref   *Reference
	err   error
	calls int
}

func (f *fakeLookup) Lookup(_ context.Context, _ string) (*Reference, error) {
	f.calls++
	return f.ref, f.err
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Jane Doe":          "jane-doe",
		"jane   doe":        "jane-doe",
		"Jane-Doe!":         "jane-doe",
		"  Jane_Doe  ":      "jane-doe",
		"jane__doe_":        "jane-doe",
		"Jane _ Doe":        "jane-doe",
		"José Martínez":     "jose-martinez",
		"Dr. A. B. Smith":   "dr-a-b-smith",
		"--weird -- name--": "weird-name",
		"!!!":               "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolvePersonCanonicalizes(t *testing.T) {
	ctx := context.Background()
	r := New(newTestDB(t), nil, discardLogger())

	var ids []int64
	for _, name := range []string{"Jane Doe", "jane   doe", "Jane-Doe!", "Jane_Doe"} {
		p, err := r.ResolvePerson(ctx, name, Refs{})
		if err != nil {
			t.Fatalf("resolve %q: %v", name, err)
		}
		if p.Slug != "jane-doe" {
			t.Errorf("slug for %q = %q", name, p.Slug)
		}
		ids = append(ids, p.ID)
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Errorf("expected one person, got ids %v", ids)
			break
		}
	}

	p, err := r.ResolvePerson(ctx, "Jane Doe", Refs{})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Jane Doe" {
		t.Errorf("first mention name should be kept, got %q", p.Name)
	}

	if _, err := r.ResolvePerson(ctx, "???", Refs{}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}

func TestResolvePersonNonDestructiveMerge(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	r := New(s, nil, discardLogger())

	if _, err := r.ResolvePerson(ctx, "Jane Doe", Refs{Links: map[string]string{LinkWikipedia: "X"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ResolvePerson(ctx, "Jane Doe", Refs{Links: map[string]string{LinkWebsite: "https://jane.example"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ResolvePerson(ctx, "jane doe", Refs{
		Links:    map[string]string{LinkWikipedia: "Y"},
		PhotoURL: "https://img.example/jane.jpg",
	}); err != nil {
		t.Fatal(err)
	}

	stored, err := s.GetPersonBySlug(ctx, "jane-doe")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{LinkWikipedia: "X", LinkWebsite: "https://jane.example"}
	if diff := cmp.Diff(want, stored.SocialLinks); diff != "" {
		t.Errorf("social links mismatch (-want +got):\n%s", diff)
	}
	if stored.PhotoURL == nil || *stored.PhotoURL != "https://img.example/jane.jpg" {
		t.Errorf("photo should fill an empty field, got %v", stored.PhotoURL)
	}
}

func TestResolvePersonLookup(t *testing.T) {
	ctx := context.Background()

	t.Run("fills missing wikipedia link once", func(t *testing.T) {
		lookup := &fakeLookup{ref: &Reference{URL: "https://en.wikipedia.org/wiki/Jane_Doe", PhotoURL: "https://img/jane.jpg"}}
		r := New(newTestDB(t), lookup, discardLogger())

		p, err := r.ResolvePerson(ctx, "Jane Doe", Refs{})
		if err != nil {
			t.Fatal(err)
		}
		if p.SocialLinks[LinkWikipedia] != "https://en.wikipedia.org/wiki/Jane_Doe" {
			t.Errorf("links = %v", p.SocialLinks)
		}
		if _, err := r.ResolvePerson(ctx, "Jane Doe", Refs{}); err != nil {
			t.Fatal(err)
		}
		if lookup.calls != 1 {
			t.Errorf("lookup calls = %d, want 1", lookup.calls)
		}
	})

	t.Run("failure does not block", func(t *testing.T) {
		lookup := &fakeLookup{err: errors.New("timeout")}
		r := New(newTestDB(t), lookup, discardLogger())

		p, err := r.ResolvePerson(ctx, "Jane Doe", Refs{})
		if err != nil {
			t.Fatalf("lookup failure must not fail resolution: %v", err)
		}
		if len(p.SocialLinks) != 0 || p.PhotoURL != nil {
			t.Errorf("expected no optional fields, got %v %v", p.SocialLinks, p.PhotoURL)
		}
	})
}

func TestLinkHostIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	r := New(s, nil, discardLogger())
	ch := mustChannel(t, s, "show")
	p, err := r.ResolvePerson(ctx, "Jane Doe", Refs{})
	if err != nil {
		t.Fatal(err)
	}

	high := model.ConfidenceHigh
	first, err := r.LinkHost(ctx, ch.ID, p.ID, &high, false)
	if err != nil {
		t.Fatal(err)
	}
	again, err := r.LinkHost(ctx, ch.ID, p.ID, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID || again.Verified {
		t.Errorf("relink should return the existing unverified link, got %+v", again)
	}

	verified, err := r.LinkHost(ctx, ch.ID, p.ID, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if verified.ID != first.ID || !verified.Verified {
		t.Errorf("expected existing link promoted to verified, got %+v", verified)
	}

	links, err := s.ListChannelPeople(ctx, ch.ID, model.RoleHost)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || !links[0].Verified {
		t.Errorf("links = %+v", links)
	}
}

func TestExtractHosts(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	r := New(s, nil, discardLogger())
	ch := mustChannel(t, s, "show")
	for _, id := range []string{"a", "b", "c"} {
		mustEpisode(t, s, ch.ID, id)
	}

	proposer := &fakeProposer{hosts: []model.Candidate{
		{Name: "Jane Doe", Confidence: model.ConfidenceHigh},
		{Name: "  "},
		{Name: "John Roe", Confidence: "certain"},
	}}

	res, err := r.ExtractHosts(ctx, ch, proposer, false)
	if err != nil {
		t.Fatalf("extract hosts: %v", err)
	}
	if diff := cmp.Diff(HostResult{Proposed: 3, Linked: 2}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if proposer.recent != 3 {
		t.Errorf("proposer saw %d episodes", proposer.recent)
	}

	links, err := s.ListChannelPeople(ctx, ch.ID, model.RoleHost)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Fatalf("got %d links", len(links))
	}
	for _, l := range links {
		if l.Verified || !l.IsPrimary || l.AIConfidence == nil {
			t.Errorf("unexpected link state %+v", l)
		}
	}
	if *links[1].AIConfidence != model.ConfidenceMedium {
		t.Errorf("unknown confidence should normalize to medium, got %s", *links[1].AIConfidence)
	}

	stored, err := s.GetChannel(ctx, ch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.HostsExtractedAt == nil {
		t.Error("hosts_extracted_at not set")
	}

	res, err = r.ExtractHosts(ctx, stored, proposer, false)
	if err != nil || !res.Skipped {
		t.Errorf("second run should skip, got %+v, %v", res, err)
	}
	res, err = r.ExtractHosts(ctx, stored, proposer, true)
	if err != nil || res.Skipped || res.Linked != 2 {
		t.Errorf("forced run = %+v, %v", res, err)
	}
}

func TestExtractParticipantsHostPropagation(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	r := New(s, nil, discardLogger())
	ch := mustChannel(t, s, "show")
	ep := mustEpisode(t, s, ch.ID, "ep1")

	host, err := r.ResolvePerson(ctx, "Jane Doe", Refs{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.LinkHost(ctx, ch.ID, host.ID, nil, true); err != nil {
		t.Fatal(err)
	}

	res, err := r.ExtractParticipants(ctx, ep, ch, &fakeProposer{})
	if err != nil {
		t.Fatalf("extract participants: %v", err)
	}
	if diff := cmp.Diff(ParticipantResult{Hosts: 1}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	links, err := s.ListEpisodePeople(ctx, ep.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0].Role != model.RoleHost || links[0].PersonID != host.ID {
		t.Errorf("episode links = %+v", links)
	}
}

func TestExtractParticipantsGuestsBeforeHosts(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	r := New(s, nil, discardLogger())
	ch := mustChannel(t, s, "show")
	ep := mustEpisode(t, s, ch.ID, "ep1")

	host, _ := r.ResolvePerson(ctx, "Jane Doe", Refs{})
	if _, err := r.LinkHost(ctx, ch.ID, host.ID, nil, true); err != nil {
		t.Fatal(err)
	}
	unverified, _ := r.ResolvePerson(ctx, "Not Yet", Refs{})
	if _, err := r.LinkHost(ctx, ch.ID, unverified.ID, nil, false); err != nil {
		t.Fatal(err)
	}

	proposer := &fakeProposer{guests: []model.Candidate{
		{Name: "Alan Turing", Role: model.RoleGuest},
		{Name: "JANE DOE", Role: model.RoleGuest},
		{Name: "Grace Hopper"},
	}}

	res, err := r.ExtractParticipants(ctx, ep, ch, proposer)
	if err != nil {
		t.Fatalf("extract participants: %v", err)
	}
	if diff := cmp.Diff(ParticipantResult{Guests: 2, Hosts: 1, Discarded: 1}, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Jane Doe"}, proposer.knownHosts); diff != "" {
		t.Errorf("known hosts mismatch (-want +got):\n%s", diff)
	}

	links, err := s.ListEpisodePeople(ctx, ep.ID)
	if err != nil {
		t.Fatal(err)
	}
	type row struct {
		Role  model.Role
		Order int
	}
	var got []row
	for _, l := range links {
		got = append(got, row{l.Role, l.DisplayOrder})
	}
	want := []row{{model.RoleGuest, 0}, {model.RoleGuest, 1}, {model.RoleHost, 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("episode links mismatch (-want +got):\n%s", diff)
	}

	// rerun is a no-op
	if _, err := r.ExtractParticipants(ctx, ep, ch, proposer); err != nil {
		t.Fatal(err)
	}
	again, _ := s.ListEpisodePeople(ctx, ep.ID)
	if len(again) != 3 {
		t.Errorf("rerun created duplicates: %d links", len(again))
	}
}

func proposeHosts(t *testing.T, r *Resolver, ch *model.Channel, names ...string) {
	t.Helper()
	var cands []model.Candidate
	for _, n := range names {
		cands = append(cands, model.Candidate{Name: n, Confidence: model.ConfidenceHigh})
	}
	if _, err := r.ExtractHosts(context.Background(), ch, &fakeProposer{hosts: cands}, true); err != nil {
		t.Fatalf("extract hosts: %v", err)
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	r := New(s, nil, discardLogger())

	accepted := mustChannel(t, s, "accepted")
	rejected := mustChannel(t, s, "rejected")
	perItem := mustChannel(t, s, "peritem")
	skipped := mustChannel(t, s, "skipped")
	proposeHosts(t, r, accepted, "Ann One", "Ben Two")
	proposeHosts(t, r, rejected, "Cat Three", "Dan Four", "Eve Five")
	proposeHosts(t, r, perItem, "Fay Six", "Gus Seven", "Hal Eight")
	proposeHosts(t, r, skipped, "Ivy Nine")

	src := &review.Scripted{
		Groups: map[int64]review.Decision{
			accepted.ID: review.AcceptAll,
			rejected.ID: review.RejectAll,
			perItem.ID:  review.PerItem,
		},
		Items: map[string]review.ItemDecision{
			"Fay Six":   review.Accept,
			"Gus Seven": review.Reject,
		},
	}

	stats, err := r.Verify(ctx, src)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if diff := cmp.Diff(VerifyStats{Verified: 3, Removed: 4, Skipped: 2}, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	remaining, err := s.ListChannelPeople(ctx, rejected.ID, model.RoleHost)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Errorf("reject-all left %d links", len(remaining))
	}

	groups, err := r.PendingGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var pending []string
	for _, g := range groups {
		pending = append(pending, g.Names()...)
	}
	if diff := cmp.Diff([]string{"Hal Eight", "Ivy Nine"}, pending); diff != "" {
		t.Errorf("skipped links should be re-presented (-want +got):\n%s", diff)
	}

	// people survive link removal
	if _, err := s.GetPersonBySlug(ctx, "cat-three"); err != nil {
		t.Errorf("person deleted with link: %v", err)
	}
}
