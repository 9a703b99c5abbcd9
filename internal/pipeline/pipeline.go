// Package pipeline composes sync planning and the enrichment stages into
// whole-corpus runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vidcorpus/internal/config"
	"vidcorpus/internal/filter"
	"vidcorpus/internal/identity"
	"vidcorpus/internal/model"
	"vidcorpus/internal/stage"
	"vidcorpus/internal/storage"
	"vidcorpus/internal/syncplan"
)

// Source lists channels and describes their episodes.
type Source interface {
	syncplan.Lister
	stage.MetadataSource
}

// Notifier receives the summary of a finished sync run.
type Notifier interface {
	NotifyRun(ctx context.Context, stats RunStats) error
}

// Deps are the collaborators of an Orchestrator. Proposer and Notifier may be nil.
type Deps struct {
	Source   Source
	Planner  *syncplan.Planner
	Tracker  *stage.Tracker
	Identity *identity.Resolver
	Proposer identity.Proposer
	Notifier Notifier
}

// Orchestrator runs sync and batch enrichment against the store.
type Orchestrator struct {
	store     storage.Storage
	deps      Deps
	log       *slog.Logger
	maxErrors int
	newID     func() string
	now       func() time.Time
}

// New creates an Orchestrator. maxErrors bounds the error messages kept per run.
func New(store storage.Storage, deps Deps, maxErrors int, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		deps:      deps,
		log:       log,
		maxErrors: maxErrors,
		newID:     func() string { return uuid.NewString() },
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SyncOptions selects the optional stages of a sync run.
type SyncOptions struct {
	WithGuests  bool
	WithSummary bool
}

// SyncNew discovers new episodes for every tracked channel and runs them
// through the enrichment stages. Channel and episode failures are recorded
// and the run continues; the returned error is reserved for failures of the
// run itself.
func (o *Orchestrator) SyncNew(ctx context.Context, channels []config.TrackedChannel, opts SyncOptions) (RunStats, error) {
	stats := RunStats{RunID: o.newID(), Errors: newErrorLog(o.maxErrors)}

	run := &model.SyncRun{ID: stats.RunID, Status: model.RunRunning, StartedAt: o.now()}
	if err := o.store.CreateSyncRun(ctx, run); err != nil {
		return stats, err
	}
	o.log.Info("sync started", "run_id", run.ID, "channels", len(channels))

	for _, tc := range channels {
		if ctx.Err() != nil {
			break
		}
		stats.Channels++
		if err := o.syncChannel(ctx, tc, opts, &stats); err != nil {
			stats.ChannelsFailed++
			stats.Errors.Add("%s: %v", tc.Channel.Name, err)
			o.log.Error("sync channel", "channel", tc.Channel.Name, "error", err)
		}
	}

	run.Status = model.RunCompleted
	if ctx.Err() != nil {
		run.Status = model.RunFailed
	}
	finished := o.now()
	run.FinishedAt = &finished
	run.ChannelsProcessed = stats.Channels
	run.EpisodesFound = stats.EpisodesFound
	run.EpisodesInserted = stats.EpisodesInserted
	run.TranscriptsFetched = stats.Transcripts.Succeeded
	run.ErrorCount = stats.Errors.Count
	run.Errors = stats.Errors.Messages

	// The run record is written even when ctx was cancelled.
	if err := o.store.FinishSyncRun(context.WithoutCancel(ctx), run); err != nil {
		return stats, err
	}
	o.log.Info("sync finished", "run_id", run.ID, "status", run.Status,
		"inserted", stats.EpisodesInserted, "transcripts", stats.Transcripts.Succeeded, "errors", stats.Errors.Count)

	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.NotifyRun(ctx, stats); err != nil {
			o.log.Warn("notify run", "run_id", run.ID, "error", err)
		}
	}
	return stats, ctx.Err()
}

func (o *Orchestrator) syncChannel(ctx context.Context, tc config.TrackedChannel, opts SyncOptions, stats *RunStats) error {
	filters, err := filter.Compile(tc.Filters)
	if err != nil {
		return fmt.Errorf("compile filters: %w", err)
	}

	// A channel not stored yet plans with ID 0, which has no known episodes.
	// It is only written once the listing succeeds.
	ch := tc.Channel
	stored, err := o.store.GetChannelByExternalID(ctx, ch.Type, ch.ExternalID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	default:
		ch.ID = stored.ID
	}

	info, plan, err := o.deps.Planner.Plan(ctx, o.deps.Source, ch, filters)
	if err != nil {
		return err
	}

	ch.Description = info.Description
	ch.SubscriberCount = info.SubscriberCount
	ch.ThumbnailURL = info.ThumbnailURL
	if err := o.store.UpsertChannel(ctx, &ch); err != nil {
		return err
	}

	o.log.Info("channel planned", "channel", ch.Name, "listed", plan.Listed, "new", len(plan.Items),
		"too_short", plan.TooShort, "filtered", plan.Filtered, "capped", plan.Capped, "new_channel", plan.NewChannel)
	stats.EpisodesFound += len(plan.Items)

	for _, item := range plan.Items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.syncEpisode(ctx, &ch, item, opts, stats)
	}

	return o.store.MarkChannelSynced(ctx, ch.ID, o.now())
}

// syncEpisode inserts one planned item and advances it through the stages.
// Live and upcoming items are not inserted so a later sync picks them up.
func (o *Orchestrator) syncEpisode(ctx context.Context, ch *model.Channel, item model.ListingItem, opts SyncOptions, stats *RunStats) {
	log := o.log.With("channel", ch.Name, "external_id", item.ExternalID)

	ep := &model.Episode{
		ChannelID:       ch.ID,
		ExternalID:      item.ExternalID,
		URL:             item.URL,
		Title:           item.Title,
		DurationSeconds: item.DurationSeconds,
		PublishedAt:     item.PublishedAt,
	}
	if item.Description != "" {
		desc := item.Description
		ep.Description = &desc
	}

	stats.Metadata.Found++
	md, mdErr := o.deps.Source.EpisodeMetadata(ctx, *ch, *ep)
	if mdErr == nil && md.IsLiveOrUpcoming() {
		stats.LiveSkipped++
		stats.Metadata.Skipped++
		log.Info("skipping live episode", "live_status", md.LiveStatus)
		return
	}

	inserted, err := o.store.InsertEpisode(ctx, ep)
	if err != nil {
		stats.Metadata.record(false)
		stats.Errors.Add("%s: %v", item.Title, err)
		log.Error("insert episode", "error", err)
		return
	}
	if inserted {
		stats.EpisodesInserted++
	}
	stored, err := o.store.GetEpisode(ctx, ep.ID)
	if err != nil {
		stats.Metadata.record(false)
		stats.Errors.Add("%s: %v", item.Title, err)
		return
	}
	ep = stored
	log = log.With("episode_id", ep.ID)

	switch {
	case mdErr != nil:
		stats.Metadata.record(false)
		stats.Errors.Add("metadata %s: %v", item.Title, mdErr)
		log.Warn("fetch metadata", "error", mdErr)
	case ep.MetadataAt != nil:
		stats.Metadata.Skipped++
	default:
		err := o.deps.Tracker.RecordMetadata(ctx, ep, md)
		stats.Metadata.record(err == nil)
		if err != nil {
			stats.Errors.Add("metadata %s: %v", item.Title, err)
			log.Warn("record metadata", "error", err)
		}
	}

	stats.Transcripts.Found++
	out, res, err := o.deps.Tracker.AcquireTranscript(ctx, ep, false)
	switch {
	case err != nil:
		stats.Transcripts.record(false)
		stats.Errors.Add("transcript %s: %v", item.Title, err)
		log.Warn("no transcript", "error", err)
	case out == stage.Skipped:
		stats.Transcripts.Skipped++
	default:
		stats.Transcripts.record(true)
		log.Info("transcript acquired", "provider", res.Provider, "chars", len(res.Text))
	}

	if opts.WithGuests {
		stats.Participants.Found++
		out, pr, err := o.deps.Tracker.ExtractParticipants(ctx, ch, ep, false)
		switch {
		case err != nil:
			stats.Participants.record(false)
			stats.Errors.Add("participants %s: %v", item.Title, err)
			log.Warn("extract participants", "error", err)
		case out == stage.Skipped:
			stats.Participants.Skipped++
		default:
			stats.Participants.record(true)
			log.Info("participants linked", "guests", pr.Guests, "hosts", pr.Hosts, "discarded", pr.Discarded)
		}
	}

	if opts.WithSummary {
		stats.Summaries.Found++
		if !ep.HasTranscript() {
			stats.Summaries.Skipped++
			return
		}
		out, err := o.deps.Tracker.Summarize(ctx, ep, false)
		switch {
		case err != nil:
			stats.Summaries.record(false)
			stats.Errors.Add("summary %s: %v", item.Title, err)
			log.Warn("summarize", "error", err)
		case out == stage.Skipped:
			stats.Summaries.Skipped++
		default:
			stats.Summaries.record(true)
		}
	}
}

var (
	// ErrNothingPending is returned when no episode needs the requested stage.
	ErrNothingPending = errors.New("no pending episodes")
	// ErrNoSummary is returned when an episode has no stored summary.
	ErrNoSummary = errors.New("episode has no summary")
)
