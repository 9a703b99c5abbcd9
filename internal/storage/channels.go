package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vidcorpus/internal/model"
)

const channelColumns = `id, type, external_id, handle, name, description, subscriber_count,
	thumbnail_url, last_synced_at, hosts_extracted_at, created_at`

// UpsertChannel inserts a channel or refreshes an existing one keyed by
// (type, external_id). Optional fields are only replaced by non-null values.
// On return ch reflects the stored row.
func (s *DB) UpsertChannel(ctx context.Context, ch *model.Channel) error {
	var id int64
	err := s.queryRow(ctx,
		`INSERT INTO channels (type, external_id, handle, name, description, subscriber_count, thumbnail_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (type, external_id) DO UPDATE SET
		   handle = CASE WHEN excluded.handle = '' THEN channels.handle ELSE excluded.handle END,
		   name = CASE WHEN excluded.name = '' THEN channels.name ELSE excluded.name END,
		   description = COALESCE(excluded.description, channels.description),
		   subscriber_count = COALESCE(excluded.subscriber_count, channels.subscriber_count),
		   thumbnail_url = COALESCE(excluded.thumbnail_url, channels.thumbnail_url)
		 RETURNING id`,
		string(ch.Type), ch.ExternalID, ch.Handle, ch.Name, nullString(ch.Description),
		nullInt64(ch.SubscriberCount), nullString(ch.ThumbnailURL), nowString(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert channel: %w", err)
	}

	stored, err := s.GetChannel(ctx, id)
	if err != nil {
		return err
	}
	*ch = *stored
	return nil
}

// GetChannel returns a single channel by its ID.
func (s *DB) GetChannel(ctx context.Context, id int64) (*model.Channel, error) {
	row := s.queryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = ?`, id)
	return scanChannel(row)
}

// GetChannelByExternalID returns the channel with the given natural key.
func (s *DB) GetChannelByExternalID(ctx context.Context, typ model.ChannelType, externalID string) (*model.Channel, error) {
	row := s.queryRow(ctx,
		`SELECT `+channelColumns+` FROM channels WHERE type = ? AND external_id = ?`,
		string(typ), externalID,
	)
	return scanChannel(row)
}

// ListChannels returns all channels ordered by name.
func (s *DB) ListChannels(ctx context.Context) ([]model.Channel, error) {
	rows, err := s.query(ctx, `SELECT `+channelColumns+` FROM channels ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, rows.Err()
}

// MarkChannelSynced records the time of the last successful listing sync.
func (s *DB) MarkChannelSynced(ctx context.Context, id int64, at time.Time) error {
	if err := s.execOne(ctx, `UPDATE channels SET last_synced_at = ? WHERE id = ?`, formatTime(at), id); err != nil {
		return fmt.Errorf("mark channel synced: %w", err)
	}
	return nil
}

// MarkHostsExtracted records the time hosts were last extracted for a channel.
func (s *DB) MarkHostsExtracted(ctx context.Context, id int64, at time.Time) error {
	if err := s.execOne(ctx, `UPDATE channels SET hosts_extracted_at = ? WHERE id = ?`, formatTime(at), id); err != nil {
		return fmt.Errorf("mark hosts extracted: %w", err)
	}
	return nil
}

func scanChannel(row scannable) (*model.Channel, error) {
	var ch model.Channel
	var typ string
	var desc, thumb, synced, hosts, created sql.NullString
	var subs sql.NullInt64
	err := row.Scan(&ch.ID, &typ, &ch.ExternalID, &ch.Handle, &ch.Name, &desc, &subs,
		&thumb, &synced, &hosts, &created)
	if err != nil {
		return nil, notFound(err, "channel")
	}
	ch.Type = model.ChannelType(typ)
	ch.Description = scanString(desc)
	ch.SubscriberCount = scanInt64(subs)
	ch.ThumbnailURL = scanString(thumb)
	ch.LastSyncedAt = scanTime(synced)
	ch.HostsExtractedAt = scanTime(hosts)
	if created.Valid {
		ch.CreatedAt = parseTime(created.String)
	}
	return &ch, nil
}
