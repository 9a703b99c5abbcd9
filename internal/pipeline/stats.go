package pipeline

import "fmt"

// DefaultMaxErrors is the number of error messages kept for display.
const DefaultMaxErrors = 5

// StageStats counts what happened to episodes entering one stage.
type StageStats struct {
	Found     int
	Processed int
	Succeeded int
	Skipped   int
	Failed    int
}

func (s *StageStats) record(ok bool) {
	s.Processed++
	if ok {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// ErrorLog keeps the first few error messages and the full count.
type ErrorLog struct {
	Messages []string
	Count    int
	limit    int
}

func newErrorLog(limit int) ErrorLog {
	if limit <= 0 {
		limit = DefaultMaxErrors
	}
	return ErrorLog{limit: limit}
}

// Add records an error message.
func (l *ErrorLog) Add(format string, args ...any) {
	l.Count++
	if len(l.Messages) < l.limit {
		l.Messages = append(l.Messages, fmt.Sprintf(format, args...))
	}
}

// Hidden returns how many messages were counted but not kept.
func (l *ErrorLog) Hidden() int {
	return l.Count - len(l.Messages)
}

// RunStats aggregates one sync run.
type RunStats struct {
	RunID          string
	Channels       int
	ChannelsFailed int

	EpisodesFound    int
	EpisodesInserted int
	LiveSkipped      int

	Metadata     StageStats
	Transcripts  StageStats
	Participants StageStats
	Summaries    StageStats

	Errors ErrorLog
}

// BatchStats aggregates a batch command over pending episodes.
type BatchStats struct {
	Total     int
	Succeeded int
	Skipped   int
	Failed    int
	Errors    ErrorLog
}

// HostStats aggregates host extraction over all channels.
type HostStats struct {
	Channels int
	Skipped  int
	Proposed int
	Linked   int
	Errors   ErrorLog
}
