// Package model defines the domain types used across the application.
package model

import "time"

// ChannelType identifies the kind of upstream source a channel is read from.
type ChannelType string

// Supported channel types.
const (
	ChannelYouTube ChannelType = "youtube"
	ChannelRSS     ChannelType = "rss"
)

// Channel is a tracked content source.
type Channel struct {
	ID               int64
	Type             ChannelType
	ExternalID       string
	Handle           string
	Name             string
	Description      *string
	SubscriberCount  *int64
	ThumbnailURL     *string
	LastSyncedAt     *time.Time
	HostsExtractedAt *time.Time
	CreatedAt        time.Time
}

// Stage is one enrichment phase of an episode.
type Stage string

// Enrichment stages in pipeline order.
const (
	StageMetadata     Stage = "metadata"
	StageTranscript   Stage = "transcript"
	StageParticipants Stage = "participants"
	StageSummary      Stage = "summary"
)

// Stages lists every stage in the order the pipeline runs them.
var Stages = []Stage{StageMetadata, StageTranscript, StageParticipants, StageSummary}

// Episode is one media item belonging to a channel.
type Episode struct {
	ID                 int64
	ChannelID          int64
	ExternalID         string
	URL                string
	Title              string
	Description        *string
	DurationSeconds    int
	PublishedAt        *time.Time
	ThumbnailURL       *string
	ViewCount          *int64
	Transcript         *string
	TranscriptLanguage *string
	TranscriptProvider *string
	Summary            *string
	MetadataAt         *time.Time
	TranscriptAt       *time.Time
	ParticipantsAt     *time.Time
	SummaryAt          *time.Time
	CreatedAt          time.Time
}

// StageAt returns the completion marker of the given stage, or nil if the
// stage has not completed.
func (e *Episode) StageAt(s Stage) *time.Time {
	switch s {
	case StageMetadata:
		return e.MetadataAt
	case StageTranscript:
		return e.TranscriptAt
	case StageParticipants:
		return e.ParticipantsAt
	case StageSummary:
		return e.SummaryAt
	}
	return nil
}

// SetStageAt updates the in-memory completion marker of a stage.
func (e *Episode) SetStageAt(s Stage, t time.Time) {
	switch s {
	case StageMetadata:
		e.MetadataAt = &t
	case StageTranscript:
		e.TranscriptAt = &t
	case StageParticipants:
		e.ParticipantsAt = &t
	case StageSummary:
		e.SummaryAt = &t
	}
}

// HasTranscript reports whether the episode holds non-empty transcript text.
func (e *Episode) HasTranscript() bool {
	return e.Transcript != nil && *e.Transcript != ""
}

// ListingItem is one entry of a channel's upstream listing, newest first.
type ListingItem struct {
	ExternalID      string
	URL             string
	Title           string
	Description     string
	DurationSeconds int
	PublishedAt     *time.Time
}

// ChannelInfo is channel-level data reported by an upstream source.
type ChannelInfo struct {
	ExternalID      string
	Name            string
	Description     *string
	SubscriberCount *int64
	ThumbnailURL    *string
}

// Live statuses reported by upstream metadata.
const (
	LiveStatusIsLive     = "is_live"
	LiveStatusIsUpcoming = "is_upcoming"
)

// EpisodeMetadata is a partial metadata snapshot. Nil fields are unknown and
// must never overwrite stored values.
type EpisodeMetadata struct {
	Title           *string
	Description     *string
	URL             *string
	DurationSeconds *int
	PublishedAt     *time.Time
	ThumbnailURL    *string
	ViewCount       *int64
	LiveStatus      string
}

// IsLiveOrUpcoming reports whether the item is not yet a finished recording.
func (m *EpisodeMetadata) IsLiveOrUpcoming() bool {
	return m.LiveStatus == LiveStatusIsLive || m.LiveStatus == LiveStatusIsUpcoming
}

// Person is a canonical human identity.
type Person struct {
	ID          int64
	Name        string
	Slug        string
	SocialLinks map[string]string
	PhotoURL    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Role is the part a person plays on a channel or episode.
type Role string

// Supported roles.
const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Confidence is the certainty tag attached to an automated proposal.
type Confidence string

// Supported confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence normalizes a free-form confidence value, defaulting to medium.
func ParseConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return Confidence(s)
	}
	return ConfidenceMedium
}

// ChannelPerson links a person to a channel with a role.
type ChannelPerson struct {
	ID           int64
	ChannelID    int64
	PersonID     int64
	Role         Role
	IsPrimary    bool
	Verified     bool
	AIConfidence *Confidence
	CreatedAt    time.Time

	// PersonName is filled by list queries that join people.
	PersonName string
}

// EpisodePerson links a person to an episode with a role.
type EpisodePerson struct {
	ID           int64
	EpisodeID    int64
	PersonID     int64
	Role         Role
	DisplayOrder int
	CreatedAt    time.Time
}

// Candidate is a person proposed by automated extraction.
type Candidate struct {
	Name       string
	Role       Role
	Confidence Confidence
}

// RunStatus is the lifecycle state of a sync run.
type RunStatus string

// Supported run statuses.
const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// SyncRun is a persisted record of one sync invocation.
type SyncRun struct {
	ID                 string
	Status             RunStatus
	StartedAt          time.Time
	FinishedAt         *time.Time
	ChannelsProcessed  int
	EpisodesFound      int
	EpisodesInserted   int
	TranscriptsFetched int
	ErrorCount         int
	Errors             []string
}

// CorpusStats summarizes corpus progress.
type CorpusStats struct {
	Episodes              int
	WithTranscript        int
	WithoutTranscript     int
	WithSummary           int
	NeedsSummary          int
	Channels              int
	ChannelsWithHosts     int
	ChannelsWithoutHosts  int
	People                int
	UnverifiedHostLinks   int
	WithParticipants      int
	TranscriptsByProvider map[string]int
}

// FilterKind defines the type of title filter rule.
type FilterKind string

// Supported filter kinds.
const (
	FilterInclude   FilterKind = "include"
	FilterExclude   FilterKind = "exclude"
	FilterIncludeRe FilterKind = "include_re"
	FilterExcludeRe FilterKind = "exclude_re"
)

// FilterScope defines which part of a listing item a filter matches against.
type FilterScope string

// Supported filter scopes.
const (
	ScopeTitle       FilterScope = "title"
	ScopeDescription FilterScope = "description"
	ScopeAll         FilterScope = "all"
)

// Filter is a single listing filter rule configured for a channel.
type Filter struct {
	Kind  FilterKind
	Scope FilterScope
	Value string
}
