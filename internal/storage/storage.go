// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"vidcorpus/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// PendingFilter selects episodes that still need a stage.
type PendingFilter struct {
	Stage     model.Stage
	ChannelID int64
	Limit     int
}

// Storage is the interface for all persistence operations.
type Storage interface {
	UpsertChannel(ctx context.Context, ch *model.Channel) error
	GetChannel(ctx context.Context, id int64) (*model.Channel, error)
	GetChannelByExternalID(ctx context.Context, typ model.ChannelType, externalID string) (*model.Channel, error)
	ListChannels(ctx context.Context) ([]model.Channel, error)
	MarkChannelSynced(ctx context.Context, id int64, at time.Time) error
	MarkHostsExtracted(ctx context.Context, id int64, at time.Time) error

	InsertEpisode(ctx context.Context, ep *model.Episode) (bool, error)
	GetEpisode(ctx context.Context, id int64) (*model.Episode, error)
	GetEpisodeByExternalID(ctx context.Context, externalID string) (*model.Episode, error)
	ListEpisodeExternalIDs(ctx context.Context, channelID int64) ([]string, error)
	ListRecentEpisodes(ctx context.Context, channelID int64, limit int) ([]model.Episode, error)
	ListPendingEpisodes(ctx context.Context, f PendingFilter) ([]model.Episode, error)
	MergeEpisodeMetadata(ctx context.Context, id int64, md model.EpisodeMetadata) error
	SetTranscript(ctx context.Context, id int64, text, language, provider string, at time.Time) error
	SetSummary(ctx context.Context, id int64, text string, at time.Time) error
	MarkStage(ctx context.Context, id int64, stage model.Stage, at time.Time) error

	GetPerson(ctx context.Context, id int64) (*model.Person, error)
	GetPersonBySlug(ctx context.Context, slug string) (*model.Person, error)
	CreatePerson(ctx context.Context, p *model.Person) error
	UpdatePerson(ctx context.Context, p *model.Person) error

	GetChannelPerson(ctx context.Context, channelID, personID int64, role model.Role) (*model.ChannelPerson, error)
	CreateChannelPerson(ctx context.Context, link *model.ChannelPerson) error
	VerifyChannelPerson(ctx context.Context, id int64) error
	DeleteChannelPerson(ctx context.Context, id int64) error
	ListChannelPeople(ctx context.Context, channelID int64, role model.Role) ([]model.ChannelPerson, error)
	ListUnverifiedChannelPeople(ctx context.Context, role model.Role) ([]model.ChannelPerson, error)

	GetEpisodePerson(ctx context.Context, episodeID, personID int64, role model.Role) (*model.EpisodePerson, error)
	NextDisplayOrder(ctx context.Context, episodeID int64) (int, error)
	CreateEpisodePerson(ctx context.Context, link *model.EpisodePerson) error
	ListEpisodePeople(ctx context.Context, episodeID int64) ([]model.EpisodePerson, error)

	CreateSyncRun(ctx context.Context, run *model.SyncRun) error
	FinishSyncRun(ctx context.Context, run *model.SyncRun) error
	LatestSyncRun(ctx context.Context) (*model.SyncRun, error)

	Stats(ctx context.Context) (*model.CorpusStats, error)

	Close() error
}
