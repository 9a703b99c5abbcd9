// Package stage advances episodes through their enrichment stages. Each stage
// has its own completion marker and re-running a completed stage is a no-op
// unless forced.
package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vidcorpus/internal/identity"
	"vidcorpus/internal/model"
	"vidcorpus/internal/transcript"
)

var (
	// ErrNoTranscript is returned when a stage needs a transcript the episode lacks.
	ErrNoTranscript = errors.New("episode has no transcript")
	// ErrNotFinished is returned for live or upcoming episodes.
	ErrNotFinished = errors.New("episode is live or upcoming")
	// ErrNotConfigured is returned when a stage's collaborator is missing.
	ErrNotConfigured = errors.New("stage not configured")
)

// Outcome reports what a stage call did.
type Outcome int

// Stage outcomes.
const (
	Done Outcome = iota
	Skipped
)

func (o Outcome) String() string {
	if o == Skipped {
		return "skipped"
	}
	return "done"
}

// Store is the persistence the tracker needs.
type Store interface {
	GetEpisode(ctx context.Context, id int64) (*model.Episode, error)
	MergeEpisodeMetadata(ctx context.Context, id int64, md model.EpisodeMetadata) error
	SetTranscript(ctx context.Context, id int64, text, language, provider string, at time.Time) error
	SetSummary(ctx context.Context, id int64, text string, at time.Time) error
	MarkStage(ctx context.Context, id int64, stage model.Stage, at time.Time) error
}

// MetadataSource fetches full metadata for one episode.
type MetadataSource interface {
	EpisodeMetadata(ctx context.Context, ch model.Channel, ep model.Episode) (*model.EpisodeMetadata, error)
}

// TranscriptSource resolves transcript text.
type TranscriptSource interface {
	Resolve(ctx context.Context, req transcript.Request) (*transcript.Result, error)
}

// ParticipantLinker links an episode's hosts and guests.
type ParticipantLinker interface {
	ExtractParticipants(ctx context.Context, ep *model.Episode, ch *model.Channel, proposer identity.Proposer) (identity.ParticipantResult, error)
}

// Summarizer writes a summary from a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, title, transcript string) (string, error)
}

// Deps are the collaborators of each stage. Any of them may be nil, in which
// case the matching stage returns ErrNotConfigured.
type Deps struct {
	Metadata     MetadataSource
	Transcripts  TranscriptSource
	Participants ParticipantLinker
	Proposer     identity.Proposer
	Summarizer   Summarizer
}

// Tracker runs stages against the store.
type Tracker struct {
	store Store
	deps  Deps
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Tracker.
func New(store Store, deps Deps, log *slog.Logger) *Tracker {
	return &Tracker{
		store: store,
		deps:  deps,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Advance runs fn unless the stage marker of ep is already set and force is
// false. After fn succeeds ep is reloaded from the store.
func (t *Tracker) Advance(ctx context.Context, ep *model.Episode, s model.Stage, force bool, fn func(ctx context.Context) error) (Outcome, error) {
	if ep.StageAt(s) != nil && !force {
		t.log.Debug("stage already complete", "episode_id", ep.ID, "stage", s)
		return Skipped, nil
	}
	if err := fn(ctx); err != nil {
		return Done, err
	}

	fresh, err := t.store.GetEpisode(ctx, ep.ID)
	if err != nil {
		return Done, fmt.Errorf("reload episode: %w", err)
	}
	*ep = *fresh
	return Done, nil
}

// CaptureMetadata merges fetched metadata into ep and marks the metadata stage.
// Live and upcoming episodes return ErrNotFinished without a marker.
func (t *Tracker) CaptureMetadata(ctx context.Context, ch model.Channel, ep *model.Episode, force bool) (Outcome, error) {
	if t.deps.Metadata == nil {
		return Done, fmt.Errorf("metadata: %w", ErrNotConfigured)
	}
	return t.Advance(ctx, ep, model.StageMetadata, force, func(ctx context.Context) error {
		md, err := t.deps.Metadata.EpisodeMetadata(ctx, ch, *ep)
		if err != nil {
			return fmt.Errorf("fetch metadata: %w", err)
		}
		return t.recordMetadata(ctx, ep.ID, md)
	})
}

// RecordMetadata merges metadata that was fetched elsewhere and marks the
// metadata stage.
func (t *Tracker) RecordMetadata(ctx context.Context, ep *model.Episode, md *model.EpisodeMetadata) error {
	_, err := t.Advance(ctx, ep, model.StageMetadata, true, func(ctx context.Context) error {
		return t.recordMetadata(ctx, ep.ID, md)
	})
	return err
}

func (t *Tracker) recordMetadata(ctx context.Context, id int64, md *model.EpisodeMetadata) error {
	if md.IsLiveOrUpcoming() {
		return ErrNotFinished
	}
	if err := t.store.MergeEpisodeMetadata(ctx, id, *md); err != nil {
		return err
	}
	return t.store.MarkStage(ctx, id, model.StageMetadata, t.now())
}

// AcquireTranscript resolves and stores a transcript. An episode that already
// holds a transcript is skipped unless force is set.
func (t *Tracker) AcquireTranscript(ctx context.Context, ep *model.Episode, force bool) (Outcome, *transcript.Result, error) {
	if ep.HasTranscript() && !force {
		return Skipped, nil, nil
	}
	if t.deps.Transcripts == nil {
		return Done, nil, fmt.Errorf("transcript: %w", ErrNotConfigured)
	}

	var res *transcript.Result
	out, err := t.Advance(ctx, ep, model.StageTranscript, true, func(ctx context.Context) error {
		r, err := t.deps.Transcripts.Resolve(ctx, transcript.Request{ExternalID: ep.ExternalID, URL: ep.URL})
		if err != nil {
			return err
		}
		res = r
		return t.store.SetTranscript(ctx, ep.ID, r.Text, r.Language, r.Provider, t.now())
	})
	return out, res, err
}

// ExtractParticipants links the episode's guests and verified hosts and marks
// the participants stage.
func (t *Tracker) ExtractParticipants(ctx context.Context, ch *model.Channel, ep *model.Episode, force bool) (Outcome, identity.ParticipantResult, error) {
	var res identity.ParticipantResult
	if t.deps.Participants == nil || t.deps.Proposer == nil {
		return Done, res, fmt.Errorf("participants: %w", ErrNotConfigured)
	}
	out, err := t.Advance(ctx, ep, model.StageParticipants, force, func(ctx context.Context) error {
		r, err := t.deps.Participants.ExtractParticipants(ctx, ep, ch, t.deps.Proposer)
		if err != nil {
			return err
		}
		res = r
		return t.store.MarkStage(ctx, ep.ID, model.StageParticipants, t.now())
	})
	return out, res, err
}

// Summarize generates and stores a summary. The episode must have a transcript.
func (t *Tracker) Summarize(ctx context.Context, ep *model.Episode, force bool) (Outcome, error) {
	if ep.SummaryAt != nil && !force {
		return Skipped, nil
	}
	if !ep.HasTranscript() {
		return Done, fmt.Errorf("summarize episode %d: %w", ep.ID, ErrNoTranscript)
	}
	if t.deps.Summarizer == nil {
		return Done, fmt.Errorf("summary: %w", ErrNotConfigured)
	}
	return t.Advance(ctx, ep, model.StageSummary, force, func(ctx context.Context) error {
		text, err := t.deps.Summarizer.Summarize(ctx, ep.Title, *ep.Transcript)
		if err != nil {
			return err
		}
		return t.store.SetSummary(ctx, ep.ID, text, t.now())
	})
}

// SaveSummary stores an externally written summary for an episode.
func (t *Tracker) SaveSummary(ctx context.Context, episodeID int64, text string) (*model.Episode, error) {
	ep, err := t.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, fmt.Errorf("get episode %d: %w", episodeID, err)
	}
	if !ep.HasTranscript() {
		return nil, fmt.Errorf("save summary for episode %d: %w", episodeID, ErrNoTranscript)
	}
	if _, err := t.Advance(ctx, ep, model.StageSummary, true, func(ctx context.Context) error {
		return t.store.SetSummary(ctx, ep.ID, text, t.now())
	}); err != nil {
		return nil, err
	}
	return ep, nil
}
