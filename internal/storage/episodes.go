package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vidcorpus/internal/model"
)

const episodeColumns = `id, channel_id, external_id, url, title, description, duration_seconds,
	published_at, thumbnail_url, view_count, transcript, transcript_language, transcript_provider,
	summary, metadata_at, transcript_at, participants_at, summary_at, created_at`

var stageColumns = map[model.Stage]string{
	model.StageMetadata:     "metadata_at",
	model.StageTranscript:   "transcript_at",
	model.StageParticipants: "participants_at",
	model.StageSummary:      "summary_at",
}

// InsertEpisode inserts a newly discovered episode. It reports false when the
// (channel, external_id) pair already exists, in which case ep.ID is set to
// the existing row and nothing is written.
func (s *DB) InsertEpisode(ctx context.Context, ep *model.Episode) (bool, error) {
	now := nowString()
	var id int64
	err := s.queryRow(ctx,
		`INSERT INTO episodes (channel_id, external_id, url, title, description, duration_seconds,
		                       published_at, thumbnail_url, view_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (channel_id, external_id) DO NOTHING
		 RETURNING id`,
		ep.ChannelID, ep.ExternalID, ep.URL, ep.Title, nullString(ep.Description), ep.DurationSeconds,
		nullTime(ep.PublishedAt), nullString(ep.ThumbnailURL), nullInt64(ep.ViewCount), now,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.queryRow(ctx,
			`SELECT id FROM episodes WHERE channel_id = ? AND external_id = ?`,
			ep.ChannelID, ep.ExternalID,
		).Scan(&ep.ID)
		if err != nil {
			return false, fmt.Errorf("lookup existing episode: %w", err)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert episode: %w", err)
	}
	ep.ID = id
	ep.CreatedAt = parseTime(now)
	return true, nil
}

// GetEpisode returns a single episode by its ID.
func (s *DB) GetEpisode(ctx context.Context, id int64) (*model.Episode, error) {
	row := s.queryRow(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	return scanEpisode(row)
}

// GetEpisodeByExternalID returns the oldest stored episode with the given
// upstream identifier.
func (s *DB) GetEpisodeByExternalID(ctx context.Context, externalID string) (*model.Episode, error) {
	row := s.queryRow(ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE external_id = ? ORDER BY id LIMIT 1`, externalID,
	)
	return scanEpisode(row)
}

// ListEpisodeExternalIDs returns the upstream identifiers already stored for a channel.
func (s *DB) ListEpisodeExternalIDs(ctx context.Context, channelID int64) ([]string, error) {
	rows, err := s.query(ctx, `SELECT external_id FROM episodes WHERE channel_id = ?`, channelID)
	if err != nil {
		return nil, fmt.Errorf("query episode ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan episode id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListRecentEpisodes returns a channel's most recently published episodes.
func (s *DB) ListRecentEpisodes(ctx context.Context, channelID int64, limit int) ([]model.Episode, error) {
	rows, err := s.query(ctx,
		`SELECT `+episodeColumns+` FROM episodes
		 WHERE channel_id = ?
		 ORDER BY published_at IS NULL, published_at DESC, id DESC
		 LIMIT ?`,
		channelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEpisodes(rows)
}

// ListPendingEpisodes returns episodes whose stage marker is unset, newest
// first. Summary is only pending once a transcript exists.
func (s *DB) ListPendingEpisodes(ctx context.Context, f PendingFilter) ([]model.Episode, error) {
	col, ok := stageColumns[f.Stage]
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", f.Stage)
	}

	q := `SELECT ` + episodeColumns + ` FROM episodes WHERE ` + col + ` IS NULL`
	var args []any
	if f.Stage == model.StageSummary {
		q += ` AND transcript_at IS NOT NULL`
	}
	if f.ChannelID != 0 {
		q += ` AND channel_id = ?`
		args = append(args, f.ChannelID)
	}
	q += ` ORDER BY published_at IS NULL, published_at DESC, id DESC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEpisodes(rows)
}

// MergeEpisodeMetadata writes every known field of md into the episode and
// leaves the others untouched.
func (s *DB) MergeEpisodeMetadata(ctx context.Context, id int64, md model.EpisodeMetadata) error {
	var duration any
	if md.DurationSeconds != nil && *md.DurationSeconds > 0 {
		duration = *md.DurationSeconds
	}
	err := s.execOne(ctx,
		`UPDATE episodes SET
		   title = COALESCE(?, title),
		   description = COALESCE(?, description),
		   url = COALESCE(?, url),
		   duration_seconds = COALESCE(?, duration_seconds),
		   published_at = COALESCE(?, published_at),
		   thumbnail_url = COALESCE(?, thumbnail_url),
		   view_count = COALESCE(?, view_count)
		 WHERE id = ?`,
		nullString(md.Title), nullString(md.Description), nullString(md.URL), duration,
		nullTime(md.PublishedAt), nullString(md.ThumbnailURL), nullInt64(md.ViewCount), id,
	)
	if err != nil {
		return fmt.Errorf("merge episode metadata: %w", err)
	}
	return nil
}

// SetTranscript stores transcript text and marks the transcript stage.
func (s *DB) SetTranscript(ctx context.Context, id int64, text, language, provider string, at time.Time) error {
	if text == "" {
		return errors.New("set transcript: empty text")
	}
	err := s.execOne(ctx,
		`UPDATE episodes SET transcript = ?, transcript_language = ?, transcript_provider = ?, transcript_at = ?
		 WHERE id = ?`,
		text, nullString(&language), nullString(&provider), formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("set transcript: %w", err)
	}
	return nil
}

// SetSummary stores summary text and marks the summary stage.
func (s *DB) SetSummary(ctx context.Context, id int64, text string, at time.Time) error {
	if text == "" {
		return errors.New("set summary: empty text")
	}
	err := s.execOne(ctx,
		`UPDATE episodes SET summary = ?, summary_at = ? WHERE id = ?`,
		text, formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return nil
}

// MarkStage sets the completion marker of a stage. Transcript and summary
// markers are set together with their text by SetTranscript and SetSummary.
func (s *DB) MarkStage(ctx context.Context, id int64, stage model.Stage, at time.Time) error {
	if stage == model.StageTranscript || stage == model.StageSummary {
		return fmt.Errorf("mark stage %s: stage carries content, use its setter", stage)
	}
	col, ok := stageColumns[stage]
	if !ok {
		return fmt.Errorf("mark stage: unknown stage %q", stage)
	}
	if err := s.execOne(ctx, `UPDATE episodes SET `+col+` = ? WHERE id = ?`, formatTime(at), id); err != nil {
		return fmt.Errorf("mark stage %s: %w", stage, err)
	}
	return nil
}

func scanEpisode(row scannable) (*model.Episode, error) {
	var ep model.Episode
	var desc, published, thumb, transcript, lang, provider, summary sql.NullString
	var metaAt, transcriptAt, participantsAt, summaryAt, created sql.NullString
	var views sql.NullInt64
	err := row.Scan(&ep.ID, &ep.ChannelID, &ep.ExternalID, &ep.URL, &ep.Title, &desc, &ep.DurationSeconds,
		&published, &thumb, &views, &transcript, &lang, &provider,
		&summary, &metaAt, &transcriptAt, &participantsAt, &summaryAt, &created)
	if err != nil {
		return nil, notFound(err, "episode")
	}
	ep.Description = scanString(desc)
	ep.PublishedAt = scanTime(published)
	ep.ThumbnailURL = scanString(thumb)
	ep.ViewCount = scanInt64(views)
	ep.Transcript = scanString(transcript)
	ep.TranscriptLanguage = scanString(lang)
	ep.TranscriptProvider = scanString(provider)
	ep.Summary = scanString(summary)
	ep.MetadataAt = scanTime(metaAt)
	ep.TranscriptAt = scanTime(transcriptAt)
	ep.ParticipantsAt = scanTime(participantsAt)
	ep.SummaryAt = scanTime(summaryAt)
	if created.Valid {
		ep.CreatedAt = parseTime(created.String)
	}
	return &ep, nil
}

func scanEpisodes(rows *sql.Rows) ([]model.Episode, error) {
	var episodes []model.Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, *ep)
	}
	return episodes, rows.Err()
}
