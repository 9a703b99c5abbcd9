package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"vidcorpus/internal/model"
)

// CreateSyncRun records the start of a sync run.
func (s *DB) CreateSyncRun(ctx context.Context, run *model.SyncRun) error {
	if run.Status == "" {
		run.Status = model.RunRunning
	}
	_, err := s.exec(ctx,
		`INSERT INTO sync_runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

// FinishSyncRun stores the final status and counters of a sync run.
func (s *DB) FinishSyncRun(ctx context.Context, run *model.SyncRun) error {
	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("encode run errors: %w", err)
	}
	err = s.execOne(ctx,
		`UPDATE sync_runs SET status = ?, finished_at = ?, channels_processed = ?, episodes_found = ?,
		   episodes_inserted = ?, transcripts_fetched = ?, error_count = ?, errors = ?
		 WHERE id = ?`,
		string(run.Status), nullTime(run.FinishedAt), run.ChannelsProcessed, run.EpisodesFound,
		run.EpisodesInserted, run.TranscriptsFetched, run.ErrorCount, string(b), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish sync run: %w", err)
	}
	return nil
}

// LatestSyncRun returns the most recently started sync run.
func (s *DB) LatestSyncRun(ctx context.Context) (*model.SyncRun, error) {
	var run model.SyncRun
	var status, started, errs string
	var finished sql.NullString
	err := s.queryRow(ctx,
		`SELECT id, status, started_at, finished_at, channels_processed, episodes_found,
		        episodes_inserted, transcripts_fetched, error_count, errors
		 FROM sync_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&run.ID, &status, &started, &finished, &run.ChannelsProcessed, &run.EpisodesFound,
		&run.EpisodesInserted, &run.TranscriptsFetched, &run.ErrorCount, &errs)
	if err != nil {
		return nil, notFound(err, "sync run")
	}
	run.Status = model.RunStatus(status)
	run.StartedAt = parseTime(started)
	run.FinishedAt = scanTime(finished)
	if err := json.Unmarshal([]byte(errs), &run.Errors); err != nil {
		return nil, fmt.Errorf("decode run errors: %w", err)
	}
	return &run, nil
}

// Stats returns corpus-wide progress counters.
func (s *DB) Stats(ctx context.Context) (*model.CorpusStats, error) {
	st := &model.CorpusStats{TranscriptsByProvider: map[string]int{}}

	counts := []struct {
		dst   *int
		query string
	}{
		{&st.Episodes, `SELECT COUNT(*) FROM episodes`},
		{&st.WithTranscript, `SELECT COUNT(*) FROM episodes WHERE transcript_at IS NOT NULL`},
		{&st.WithSummary, `SELECT COUNT(*) FROM episodes WHERE summary_at IS NOT NULL`},
		{&st.NeedsSummary, `SELECT COUNT(*) FROM episodes WHERE transcript_at IS NOT NULL AND summary_at IS NULL`},
		{&st.WithParticipants, `SELECT COUNT(*) FROM episodes WHERE participants_at IS NOT NULL`},
		{&st.Channels, `SELECT COUNT(*) FROM channels`},
		{&st.ChannelsWithHosts, `SELECT COUNT(*) FROM channels WHERE hosts_extracted_at IS NOT NULL`},
		{&st.People, `SELECT COUNT(*) FROM people`},
		{&st.UnverifiedHostLinks, `SELECT COUNT(*) FROM channel_people WHERE role = 'host' AND verified = 0`},
	}
	for _, c := range counts {
		if err := s.queryRow(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}
	st.WithoutTranscript = st.Episodes - st.WithTranscript
	st.ChannelsWithoutHosts = st.Channels - st.ChannelsWithHosts

	rows, err := s.query(ctx,
		`SELECT transcript_provider, COUNT(*) FROM episodes
		 WHERE transcript_at IS NOT NULL AND transcript_provider IS NOT NULL
		 GROUP BY transcript_provider`,
	)
	if err != nil {
		return nil, fmt.Errorf("query providers: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var provider string
		var n int
		if err := rows.Scan(&provider, &n); err != nil {
			return nil, fmt.Errorf("scan provider count: %w", err)
		}
		st.TranscriptsByProvider[provider] = n
	}
	return st, rows.Err()
}
