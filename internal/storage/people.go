package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"vidcorpus/internal/model"
)

const personColumns = `id, name, slug, social_links, photo_url, created_at, updated_at`

// GetPerson returns a person by ID.
func (s *DB) GetPerson(ctx context.Context, id int64) (*model.Person, error) {
	row := s.queryRow(ctx, `SELECT `+personColumns+` FROM people WHERE id = ?`, id)
	return scanPerson(row)
}

// GetPersonBySlug returns the person with the given canonical slug.
func (s *DB) GetPersonBySlug(ctx context.Context, slug string) (*model.Person, error) {
	row := s.queryRow(ctx, `SELECT `+personColumns+` FROM people WHERE slug = ?`, slug)
	return scanPerson(row)
}

// CreatePerson inserts a person and populates its ID and timestamps. If the
// slug already exists the stored record is loaded into p instead.
func (s *DB) CreatePerson(ctx context.Context, p *model.Person) error {
	links, err := encodeLinks(p.SocialLinks)
	if err != nil {
		return err
	}
	now := nowString()
	var id int64
	err = s.queryRow(ctx,
		`INSERT INTO people (name, slug, social_links, photo_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (slug) DO NOTHING
		 RETURNING id`,
		p.Name, p.Slug, links, nullString(p.PhotoURL), now, now,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := s.GetPersonBySlug(ctx, p.Slug)
		if err != nil {
			return err
		}
		*p = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	p.ID = id
	p.CreatedAt = parseTime(now)
	p.UpdatedAt = p.CreatedAt
	return nil
}

// UpdatePerson persists a person's links and photo and bumps updated_at.
func (s *DB) UpdatePerson(ctx context.Context, p *model.Person) error {
	links, err := encodeLinks(p.SocialLinks)
	if err != nil {
		return err
	}
	now := nowString()
	err = s.execOne(ctx,
		`UPDATE people SET name = ?, social_links = ?, photo_url = ?, updated_at = ? WHERE id = ?`,
		p.Name, links, nullString(p.PhotoURL), now, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	p.UpdatedAt = parseTime(now)
	return nil
}

const channelPersonColumns = `cp.id, cp.channel_id, cp.person_id, cp.role, cp.is_primary, cp.verified,
	cp.ai_confidence, cp.created_at, p.name`

// GetChannelPerson returns the link for (channel, person, role).
func (s *DB) GetChannelPerson(ctx context.Context, channelID, personID int64, role model.Role) (*model.ChannelPerson, error) {
	row := s.queryRow(ctx,
		`SELECT `+channelPersonColumns+`
		 FROM channel_people cp JOIN people p ON p.id = cp.person_id
		 WHERE cp.channel_id = ? AND cp.person_id = ? AND cp.role = ?`,
		channelID, personID, string(role),
	)
	return scanChannelPerson(row)
}

// CreateChannelPerson inserts a channel link. An existing link with the same
// (channel, person, role) is left untouched and loaded into link.
func (s *DB) CreateChannelPerson(ctx context.Context, link *model.ChannelPerson) error {
	var conf any
	if link.AIConfidence != nil {
		conf = string(*link.AIConfidence)
	}
	var id int64
	err := s.queryRow(ctx,
		`INSERT INTO channel_people (channel_id, person_id, role, is_primary, verified, ai_confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (channel_id, person_id, role) DO NOTHING
		 RETURNING id`,
		link.ChannelID, link.PersonID, string(link.Role), boolToInt(link.IsPrimary), boolToInt(link.Verified),
		conf, nowString(),
	).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("insert channel person: %w", err)
	}

	stored, err := s.GetChannelPerson(ctx, link.ChannelID, link.PersonID, link.Role)
	if err != nil {
		return err
	}
	*link = *stored
	return nil
}

// VerifyChannelPerson marks a channel link as human-verified.
func (s *DB) VerifyChannelPerson(ctx context.Context, id int64) error {
	if err := s.execOne(ctx, `UPDATE channel_people SET verified = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("verify channel person: %w", err)
	}
	return nil
}

// DeleteChannelPerson removes a channel link. The person record is kept.
func (s *DB) DeleteChannelPerson(ctx context.Context, id int64) error {
	if err := s.execOne(ctx, `DELETE FROM channel_people WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete channel person: %w", err)
	}
	return nil
}

// ListChannelPeople returns a channel's links with the given role.
func (s *DB) ListChannelPeople(ctx context.Context, channelID int64, role model.Role) ([]model.ChannelPerson, error) {
	rows, err := s.query(ctx,
		`SELECT `+channelPersonColumns+`
		 FROM channel_people cp JOIN people p ON p.id = cp.person_id
		 WHERE cp.channel_id = ? AND cp.role = ?
		 ORDER BY cp.id`,
		channelID, string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("query channel people: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChannelPeople(rows)
}

// ListUnverifiedChannelPeople returns all unverified links with the given
// role, grouped by channel.
func (s *DB) ListUnverifiedChannelPeople(ctx context.Context, role model.Role) ([]model.ChannelPerson, error) {
	rows, err := s.query(ctx,
		`SELECT `+channelPersonColumns+`
		 FROM channel_people cp JOIN people p ON p.id = cp.person_id
		 WHERE cp.verified = 0 AND cp.role = ?
		 ORDER BY cp.channel_id, cp.id`,
		string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("query unverified channel people: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChannelPeople(rows)
}

// GetEpisodePerson returns the link for (episode, person, role).
func (s *DB) GetEpisodePerson(ctx context.Context, episodeID, personID int64, role model.Role) (*model.EpisodePerson, error) {
	row := s.queryRow(ctx,
		`SELECT id, episode_id, person_id, role, display_order, created_at
		 FROM episode_people WHERE episode_id = ? AND person_id = ? AND role = ?`,
		episodeID, personID, string(role),
	)
	return scanEpisodePerson(row)
}

// NextDisplayOrder returns the next free display order for an episode.
func (s *DB) NextDisplayOrder(ctx context.Context, episodeID int64) (int, error) {
	var next int
	err := s.queryRow(ctx,
		`SELECT COALESCE(MAX(display_order) + 1, 0) FROM episode_people WHERE episode_id = ?`, episodeID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next display order: %w", err)
	}
	return next, nil
}

// CreateEpisodePerson inserts an episode link. An existing link with the same
// (episode, person, role) is left untouched and loaded into link.
func (s *DB) CreateEpisodePerson(ctx context.Context, link *model.EpisodePerson) error {
	var id int64
	err := s.queryRow(ctx,
		`INSERT INTO episode_people (episode_id, person_id, role, display_order, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (episode_id, person_id, role) DO NOTHING
		 RETURNING id`,
		link.EpisodeID, link.PersonID, string(link.Role), link.DisplayOrder, nowString(),
	).Scan(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("insert episode person: %w", err)
	}

	stored, err := s.GetEpisodePerson(ctx, link.EpisodeID, link.PersonID, link.Role)
	if err != nil {
		return err
	}
	*link = *stored
	return nil
}

// ListEpisodePeople returns an episode's links in display order.
func (s *DB) ListEpisodePeople(ctx context.Context, episodeID int64) ([]model.EpisodePerson, error) {
	rows, err := s.query(ctx,
		`SELECT id, episode_id, person_id, role, display_order, created_at
		 FROM episode_people WHERE episode_id = ? ORDER BY display_order, id`,
		episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query episode people: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []model.EpisodePerson
	for rows.Next() {
		l, err := scanEpisodePerson(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func encodeLinks(links map[string]string) (string, error) {
	if len(links) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(links)
	if err != nil {
		return "", fmt.Errorf("encode social links: %w", err)
	}
	return string(b), nil
}

func scanPerson(row scannable) (*model.Person, error) {
	var p model.Person
	var links string
	var photo, created, updated sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &links, &photo, &created, &updated); err != nil {
		return nil, notFound(err, "person")
	}
	p.SocialLinks = map[string]string{}
	if links != "" {
		if err := json.Unmarshal([]byte(links), &p.SocialLinks); err != nil {
			return nil, fmt.Errorf("decode social links: %w", err)
		}
	}
	p.PhotoURL = scanString(photo)
	if created.Valid {
		p.CreatedAt = parseTime(created.String)
	}
	if updated.Valid {
		p.UpdatedAt = parseTime(updated.String)
	}
	return &p, nil
}

func scanChannelPerson(row scannable) (*model.ChannelPerson, error) {
	var l model.ChannelPerson
	var role string
	var isPrimary, verified int
	var conf, created sql.NullString
	err := row.Scan(&l.ID, &l.ChannelID, &l.PersonID, &role, &isPrimary, &verified, &conf, &created, &l.PersonName)
	if err != nil {
		return nil, notFound(err, "channel person")
	}
	l.Role = model.Role(role)
	l.IsPrimary = isPrimary == 1
	l.Verified = verified == 1
	if conf.Valid {
		c := model.Confidence(conf.String)
		l.AIConfidence = &c
	}
	if created.Valid {
		l.CreatedAt = parseTime(created.String)
	}
	return &l, nil
}

func scanChannelPeople(rows *sql.Rows) ([]model.ChannelPerson, error) {
	var links []model.ChannelPerson
	for rows.Next() {
		l, err := scanChannelPerson(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func scanEpisodePerson(row scannable) (*model.EpisodePerson, error) {
	var l model.EpisodePerson
	var role string
	var created sql.NullString
	if err := row.Scan(&l.ID, &l.EpisodeID, &l.PersonID, &role, &l.DisplayOrder, &created); err != nil {
		return nil, notFound(err, "episode person")
	}
	l.Role = model.Role(role)
	if created.Valid {
		l.CreatedAt = parseTime(created.String)
	}
	return &l, nil
}
