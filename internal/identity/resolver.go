// Package identity canonicalizes people across channels and episodes, links
// them with typed roles and runs the host verification workflow.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"vidcorpus/internal/model"
	"vidcorpus/internal/review"
	"vidcorpus/internal/storage"
)

// ErrEmptyName is returned when a name has no slug-worthy characters.
var ErrEmptyName = errors.New("name has no usable characters")

// Link keys used in Person.SocialLinks.
const (
	LinkWikipedia = "wikipedia"
	LinkWebsite   = "website"
)

// Refs are optional reference fields proposed alongside a name.
type Refs struct {
	Links    map[string]string
	PhotoURL string
}

// Store is the persistence the resolver needs.
type Store interface {
	GetPersonBySlug(ctx context.Context, slug string) (*model.Person, error)
	CreatePerson(ctx context.Context, p *model.Person) error
	UpdatePerson(ctx context.Context, p *model.Person) error

	GetChannel(ctx context.Context, id int64) (*model.Channel, error)
	ListRecentEpisodes(ctx context.Context, channelID int64, limit int) ([]model.Episode, error)
	MarkHostsExtracted(ctx context.Context, id int64, at time.Time) error

	CreateChannelPerson(ctx context.Context, link *model.ChannelPerson) error
	VerifyChannelPerson(ctx context.Context, id int64) error
	DeleteChannelPerson(ctx context.Context, id int64) error
	ListChannelPeople(ctx context.Context, channelID int64, role model.Role) ([]model.ChannelPerson, error)
	ListUnverifiedChannelPeople(ctx context.Context, role model.Role) ([]model.ChannelPerson, error)

	GetEpisodePerson(ctx context.Context, episodeID, personID int64, role model.Role) (*model.EpisodePerson, error)
	NextDisplayOrder(ctx context.Context, episodeID int64) (int, error)
	CreateEpisodePerson(ctx context.Context, link *model.EpisodePerson) error
}

// Proposer suggests people from channel and episode text.
type Proposer interface {
	ProposeHosts(ctx context.Context, ch model.Channel, recent []model.Episode) ([]model.Candidate, error)
	ProposeGuests(ctx context.Context, ch model.Channel, ep model.Episode, knownHosts []string) ([]model.Candidate, error)
}

// RecentEpisodesForHosts is how many recent episodes feed host extraction.
const RecentEpisodesForHosts = 10

// Resolver links people to channels and episodes.
type Resolver struct {
	store  Store
	lookup Lookup
	log    *slog.Logger
}

// New creates a Resolver. lookup may be nil to disable reference enrichment.
func New(store Store, lookup Lookup, log *slog.Logger) *Resolver {
	return &Resolver{store: store, lookup: lookup, log: log}
}

// ResolvePerson returns the canonical person for name, creating it on first
// mention. Proposed refs only fill fields that are still empty.
func (r *Resolver) ResolvePerson(ctx context.Context, name string, refs Refs) (*model.Person, error) {
	name = strings.TrimSpace(name)
	slug := Slugify(name)
	if slug == "" {
		return nil, fmt.Errorf("resolve %q: %w", name, ErrEmptyName)
	}

	p, err := r.store.GetPersonBySlug(ctx, slug)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		p = &model.Person{Name: name, Slug: slug, SocialLinks: map[string]string{}}
		if err := r.store.CreatePerson(ctx, p); err != nil {
			return nil, fmt.Errorf("create person: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("get person: %w", err)
	}

	if refs.Links[LinkWikipedia] == "" && p.SocialLinks[LinkWikipedia] == "" {
		refs = r.withLookup(ctx, name, refs)
	}

	if mergeRefs(p, refs) {
		if err := r.store.UpdatePerson(ctx, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// withLookup adds external reference data to refs. Failures are logged only.
func (r *Resolver) withLookup(ctx context.Context, name string, refs Refs) Refs {
	if r.lookup == nil {
		return refs
	}
	ref, err := r.lookup.Lookup(ctx, name)
	if err != nil {
		r.log.Warn("reference lookup failed", "name", name, "error", err)
		return refs
	}
	if ref == nil {
		return refs
	}

	links := make(map[string]string, len(refs.Links)+1)
	for k, v := range refs.Links {
		links[k] = v
	}
	if ref.URL != "" {
		links[LinkWikipedia] = ref.URL
	}
	refs.Links = links
	if refs.PhotoURL == "" {
		refs.PhotoURL = ref.PhotoURL
	}
	return refs
}

// mergeRefs fills absent fields of p from refs and reports whether p changed.
func mergeRefs(p *model.Person, refs Refs) bool {
	changed := false
	if p.SocialLinks == nil {
		p.SocialLinks = map[string]string{}
	}
	for k, v := range refs.Links {
		if v == "" || p.SocialLinks[k] != "" {
			continue
		}
		p.SocialLinks[k] = v
		changed = true
	}
	if refs.PhotoURL != "" && (p.PhotoURL == nil || *p.PhotoURL == "") {
		photo := refs.PhotoURL
		p.PhotoURL = &photo
		changed = true
	}
	return changed
}

// LinkHost links a person to a channel as host. Relinking returns the existing
// link; passing verified promotes an unverified link.
func (r *Resolver) LinkHost(ctx context.Context, channelID, personID int64, confidence *model.Confidence, verified bool) (*model.ChannelPerson, error) {
	link := &model.ChannelPerson{
		ChannelID:    channelID,
		PersonID:     personID,
		Role:         model.RoleHost,
		IsPrimary:    true,
		Verified:     verified,
		AIConfidence: confidence,
	}
	if err := r.store.CreateChannelPerson(ctx, link); err != nil {
		return nil, err
	}
	if verified && !link.Verified {
		if err := r.store.VerifyChannelPerson(ctx, link.ID); err != nil {
			return nil, err
		}
		link.Verified = true
	}
	return link, nil
}

// LinkEpisode links a person to an episode, appending to its display order.
// An existing (episode, person, role) link is returned unchanged.
func (r *Resolver) LinkEpisode(ctx context.Context, episodeID, personID int64, role model.Role) (*model.EpisodePerson, error) {
	existing, err := r.store.GetEpisodePerson(ctx, episodeID, personID, role)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	order, err := r.store.NextDisplayOrder(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	link := &model.EpisodePerson{EpisodeID: episodeID, PersonID: personID, Role: role, DisplayOrder: order}
	if err := r.store.CreateEpisodePerson(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// HostResult summarizes host extraction for one channel.
type HostResult struct {
	Skipped  bool
	Proposed int
	Linked   int
}

// ExtractHosts asks the proposer for a channel's hosts and links them
// unverified. Channels already processed are skipped unless force is set.
func (r *Resolver) ExtractHosts(ctx context.Context, ch *model.Channel, proposer Proposer, force bool) (HostResult, error) {
	if ch.HostsExtractedAt != nil && !force {
		return HostResult{Skipped: true}, nil
	}

	recent, err := r.store.ListRecentEpisodes(ctx, ch.ID, RecentEpisodesForHosts)
	if err != nil {
		return HostResult{}, fmt.Errorf("list recent episodes: %w", err)
	}

	candidates, err := proposer.ProposeHosts(ctx, *ch, recent)
	if err != nil {
		return HostResult{}, fmt.Errorf("propose hosts: %w", err)
	}

	res := HostResult{Proposed: len(candidates)}
	for _, c := range candidates {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		p, err := r.ResolvePerson(ctx, c.Name, Refs{})
		if errors.Is(err, ErrEmptyName) {
			continue
		}
		if err != nil {
			return res, err
		}
		conf := model.ParseConfidence(string(c.Confidence))
		if _, err := r.LinkHost(ctx, ch.ID, p.ID, &conf, false); err != nil {
			return res, fmt.Errorf("link host %s: %w", p.Name, err)
		}
		r.log.Debug("host proposed", "channel", ch.Name, "person", p.Name, "confidence", conf)
		res.Linked++
	}

	now := time.Now().UTC()
	if err := r.store.MarkHostsExtracted(ctx, ch.ID, now); err != nil {
		return res, err
	}
	ch.HostsExtractedAt = &now
	return res, nil
}

// ParticipantResult summarizes participant extraction for one episode.
type ParticipantResult struct {
	Guests    int
	Hosts     int
	Discarded int
}

// VerifiedHosts returns the channel's verified host links.
func (r *Resolver) VerifiedHosts(ctx context.Context, channelID int64) ([]model.ChannelPerson, error) {
	links, err := r.store.ListChannelPeople(ctx, channelID, model.RoleHost)
	if err != nil {
		return nil, err
	}
	var hosts []model.ChannelPerson
	for _, l := range links {
		if l.Verified {
			hosts = append(hosts, l)
		}
	}
	return hosts, nil
}

// ExtractParticipants links an episode's guests and the channel's verified
// hosts. Guests come first in proposal order, then hosts. Proposed guests
// matching a verified host are dropped.
func (r *Resolver) ExtractParticipants(ctx context.Context, ep *model.Episode, ch *model.Channel, proposer Proposer) (ParticipantResult, error) {
	var res ParticipantResult

	hosts, err := r.VerifiedHosts(ctx, ch.ID)
	if err != nil {
		return res, fmt.Errorf("list verified hosts: %w", err)
	}
	hostNames := make([]string, len(hosts))
	hostSlugs := make(map[string]bool, len(hosts))
	for i, h := range hosts {
		hostNames[i] = h.PersonName
		hostSlugs[Slugify(h.PersonName)] = true
	}

	candidates, err := proposer.ProposeGuests(ctx, *ch, *ep, hostNames)
	if err != nil {
		return res, fmt.Errorf("propose guests: %w", err)
	}

	for _, c := range candidates {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if isHost(name, hostNames, hostSlugs) {
			res.Discarded++
			continue
		}
		role := c.Role
		if role == "" || role == model.RoleHost {
			role = model.RoleGuest
		}

		p, err := r.ResolvePerson(ctx, name, Refs{})
		if errors.Is(err, ErrEmptyName) {
			continue
		}
		if err != nil {
			return res, err
		}
		if _, err := r.LinkEpisode(ctx, ep.ID, p.ID, role); err != nil {
			return res, fmt.Errorf("link guest %s: %w", p.Name, err)
		}
		res.Guests++
	}

	for _, h := range hosts {
		if _, err := r.LinkEpisode(ctx, ep.ID, h.PersonID, model.RoleHost); err != nil {
			return res, fmt.Errorf("link host %s: %w", h.PersonName, err)
		}
		res.Hosts++
	}

	return res, nil
}

func isHost(name string, hostNames []string, hostSlugs map[string]bool) bool {
	for _, h := range hostNames {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return hostSlugs[Slugify(name)]
}

// VerifyStats counts verification outcomes.
type VerifyStats struct {
	Verified int
	Removed  int
	Skipped  int
}

// Verify presents unverified host links grouped by channel to src and applies
// its decisions. Skipped links stay unverified for the next pass.
func (r *Resolver) Verify(ctx context.Context, src review.DecisionSource) (VerifyStats, error) {
	var stats VerifyStats

	groups, err := r.PendingGroups(ctx)
	if err != nil {
		return stats, err
	}

	for _, g := range groups {
		decision, err := src.Decide(ctx, g)
		if err != nil {
			return stats, fmt.Errorf("decide %s: %w", g.Channel.Name, err)
		}
		r.log.Info("host review", "channel", g.Channel.Name, "decision", decision.String(), "proposals", len(g.Proposals))

		for _, p := range g.Proposals {
			item := review.SkipItem
			switch decision {
			case review.AcceptAll:
				item = review.Accept
			case review.RejectAll:
				item = review.Reject
			case review.PerItem:
				item, err = src.DecideItem(ctx, g, p)
				if err != nil {
					return stats, fmt.Errorf("decide %s: %w", p.PersonName, err)
				}
			}

			switch item {
			case review.Accept:
				if err := r.store.VerifyChannelPerson(ctx, p.LinkID); err != nil {
					return stats, err
				}
				stats.Verified++
			case review.Reject:
				if err := r.store.DeleteChannelPerson(ctx, p.LinkID); err != nil {
					return stats, err
				}
				stats.Removed++
			default:
				stats.Skipped++
			}
		}
	}

	return stats, nil
}

// PendingGroups returns unverified host links grouped by channel.
func (r *Resolver) PendingGroups(ctx context.Context) ([]review.Group, error) {
	links, err := r.store.ListUnverifiedChannelPeople(ctx, model.RoleHost)
	if err != nil {
		return nil, fmt.Errorf("list unverified hosts: %w", err)
	}

	var groups []review.Group
	index := map[int64]int{}
	for _, l := range links {
		i, ok := index[l.ChannelID]
		if !ok {
			ch, err := r.store.GetChannel(ctx, l.ChannelID)
			if err != nil {
				return nil, fmt.Errorf("get channel %d: %w", l.ChannelID, err)
			}
			groups = append(groups, review.Group{Channel: *ch})
			i = len(groups) - 1
			index[l.ChannelID] = i
		}
		groups[i].Proposals = append(groups[i].Proposals, review.Proposal{
			LinkID:     l.ID,
			PersonName: l.PersonName,
			Confidence: l.AIConfidence,
		})
	}
	return groups, nil
}
