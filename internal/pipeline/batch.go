package pipeline

import (
	"context"
	"errors"
	"fmt"

	"vidcorpus/internal/model"
	"vidcorpus/internal/stage"
	"vidcorpus/internal/storage"
	"vidcorpus/internal/transcript"
)

// Progress is called after each episode of a batch.
type Progress func(done, total int, ep model.Episode)

func (p Progress) step(done, total int, ep model.Episode) {
	if p != nil {
		p(done, total, ep)
	}
}

// ListPending returns episodes still missing the given stage, newest first.
func (o *Orchestrator) ListPending(ctx context.Context, s model.Stage, limit int) ([]model.Episode, error) {
	return o.store.ListPendingEpisodes(ctx, storage.PendingFilter{Stage: s, Limit: limit})
}

func (o *Orchestrator) nextPending(ctx context.Context, s model.Stage) (*model.Episode, error) {
	eps, err := o.ListPending(ctx, s, 1)
	if err != nil {
		return nil, err
	}
	if len(eps) == 0 {
		return nil, ErrNothingPending
	}
	return &eps[0], nil
}

// NextTranscript returns the newest episode without a transcript.
func (o *Orchestrator) NextTranscript(ctx context.Context) (*model.Episode, error) {
	return o.nextPending(ctx, model.StageTranscript)
}

// NextSummary returns the newest episode with a transcript and no summary.
func (o *Orchestrator) NextSummary(ctx context.Context) (*model.Episode, error) {
	return o.nextPending(ctx, model.StageSummary)
}

// Transcript returns an episode that holds a transcript.
func (o *Orchestrator) Transcript(ctx context.Context, episodeID int64) (*model.Episode, error) {
	ep, err := o.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("get episode %d: %w", episodeID, err)
	}
	if !ep.HasTranscript() {
		return nil, fmt.Errorf("episode %d: %w", episodeID, stage.ErrNoTranscript)
	}
	return ep, nil
}

// FetchTranscript acquires the transcript of a single episode.
func (o *Orchestrator) FetchTranscript(ctx context.Context, episodeID int64) (*model.Episode, stage.Outcome, *transcript.Result, error) {
	ep, err := o.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, stage.Done, nil, fmt.Errorf("get episode %d: %w", episodeID, err)
	}
	out, res, err := o.deps.Tracker.AcquireTranscript(ctx, ep, false)
	return ep, out, res, err
}

// FetchTranscripts acquires transcripts for up to limit pending episodes.
func (o *Orchestrator) FetchTranscripts(ctx context.Context, limit int, progress Progress) (BatchStats, error) {
	stats := BatchStats{Errors: newErrorLog(o.maxErrors)}
	eps, err := o.ListPending(ctx, model.StageTranscript, limit)
	if err != nil {
		return stats, err
	}
	stats.Total = len(eps)

	for i := range eps {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		ep := &eps[i]
		out, res, err := o.deps.Tracker.AcquireTranscript(ctx, ep, false)
		switch {
		case err != nil:
			stats.Failed++
			stats.Errors.Add("%d %s: %v", ep.ID, ep.Title, err)
			o.log.Warn("fetch transcript", "episode_id", ep.ID, "error", err)
		case out == stage.Skipped:
			stats.Skipped++
		default:
			stats.Succeeded++
			o.log.Info("transcript acquired", "episode_id", ep.ID, "provider", res.Provider, "chars", len(res.Text))
		}
		progress.step(i+1, stats.Total, *ep)
	}
	return stats, nil
}

// Summarize generates summaries for up to limit episodes that need one.
func (o *Orchestrator) Summarize(ctx context.Context, limit int, progress Progress) (BatchStats, error) {
	stats := BatchStats{Errors: newErrorLog(o.maxErrors)}
	eps, err := o.ListPending(ctx, model.StageSummary, limit)
	if err != nil {
		return stats, err
	}
	stats.Total = len(eps)

	for i := range eps {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		ep := &eps[i]
		out, err := o.deps.Tracker.Summarize(ctx, ep, false)
		switch {
		case err != nil:
			stats.Failed++
			stats.Errors.Add("%d %s: %v", ep.ID, ep.Title, err)
			o.log.Warn("summarize", "episode_id", ep.ID, "error", err)
		case out == stage.Skipped:
			stats.Skipped++
		default:
			stats.Succeeded++
		}
		progress.step(i+1, stats.Total, *ep)
	}
	return stats, nil
}

// Summary returns an episode that holds a summary.
func (o *Orchestrator) Summary(ctx context.Context, episodeID int64) (*model.Episode, error) {
	ep, err := o.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("get episode %d: %w", episodeID, err)
	}
	if ep.Summary == nil || *ep.Summary == "" {
		return nil, fmt.Errorf("episode %d: %w", episodeID, ErrNoSummary)
	}
	return ep, nil
}

// SaveSummary stores an externally written summary.
func (o *Orchestrator) SaveSummary(ctx context.Context, episodeID int64, text string) (*model.Episode, error) {
	return o.deps.Tracker.SaveSummary(ctx, episodeID, text)
}

// ExtractHosts proposes hosts for every stored channel. Channels already
// processed are skipped unless force is set.
func (o *Orchestrator) ExtractHosts(ctx context.Context, force bool) (HostStats, error) {
	stats := HostStats{Errors: newErrorLog(o.maxErrors)}
	if o.deps.Proposer == nil {
		return stats, fmt.Errorf("extract hosts: %w", stage.ErrNotConfigured)
	}

	channels, err := o.store.ListChannels(ctx)
	if err != nil {
		return stats, err
	}

	for i := range channels {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		ch := &channels[i]
		stats.Channels++
		res, err := o.deps.Identity.ExtractHosts(ctx, ch, o.deps.Proposer, force)
		if err != nil {
			stats.Errors.Add("%s: %v", ch.Name, err)
			o.log.Warn("extract hosts", "channel", ch.Name, "error", err)
			continue
		}
		if res.Skipped {
			stats.Skipped++
			continue
		}
		stats.Proposed += res.Proposed
		stats.Linked += res.Linked
		o.log.Info("hosts proposed", "channel", ch.Name, "proposed", res.Proposed, "linked", res.Linked)
	}
	return stats, nil
}

// ExtractGuests links participants of one episode, when externalID is set,
// or of up to limit episodes still missing the participants stage. A named
// episode is re-extracted even if it was processed before.
func (o *Orchestrator) ExtractGuests(ctx context.Context, externalID string, limit int, progress Progress) (BatchStats, error) {
	stats := BatchStats{Errors: newErrorLog(o.maxErrors)}

	var eps []model.Episode
	force := externalID != ""
	if force {
		ep, err := o.store.GetEpisodeByExternalID(ctx, externalID)
		if err != nil {
			return stats, fmt.Errorf("get episode %s: %w", externalID, err)
		}
		eps = []model.Episode{*ep}
	} else {
		var err error
		eps, err = o.ListPending(ctx, model.StageParticipants, limit)
		if err != nil {
			return stats, err
		}
	}
	stats.Total = len(eps)

	channels := map[int64]*model.Channel{}
	for i := range eps {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		ep := &eps[i]
		ch, ok := channels[ep.ChannelID]
		if !ok {
			var err error
			ch, err = o.store.GetChannel(ctx, ep.ChannelID)
			if err != nil {
				return stats, fmt.Errorf("get channel %d: %w", ep.ChannelID, err)
			}
			channels[ep.ChannelID] = ch
		}

		out, res, err := o.deps.Tracker.ExtractParticipants(ctx, ch, ep, force)
		switch {
		case errors.Is(err, stage.ErrNotConfigured):
			return stats, err
		case err != nil:
			stats.Failed++
			stats.Errors.Add("%s: %v", ep.Title, err)
			o.log.Warn("extract guests", "episode_id", ep.ID, "error", err)
		case out == stage.Skipped:
			stats.Skipped++
		default:
			stats.Succeeded++
			o.log.Info("participants linked", "episode_id", ep.ID, "guests", res.Guests, "hosts", res.Hosts, "discarded", res.Discarded)
		}
		progress.step(i+1, stats.Total, *ep)
	}
	return stats, nil
}

// Stats returns corpus-wide progress counters.
func (o *Orchestrator) Stats(ctx context.Context) (*model.CorpusStats, error) {
	return o.store.Stats(ctx)
}

// LatestRun returns the most recent sync run, or nil if none was recorded.
func (o *Orchestrator) LatestRun(ctx context.Context) (*model.SyncRun, error) {
	run, err := o.store.LatestSyncRun(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return run, err
}
