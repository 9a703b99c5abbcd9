package bot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"vidcorpus/internal/model"
	"vidcorpus/internal/pipeline"
	"vidcorpus/internal/review"
)

const timeLayout = "2006-01-02 15:04 UTC"

// FormatRunSummary formats the report sent after a sync run.
func FormatRunSummary(s pipeline.RunStats) string {
	var b strings.Builder
	b.WriteString("Sync finished\n\n")
	fmt.Fprintf(&b, "Channels: %d", s.Channels)
	if s.ChannelsFailed > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.ChannelsFailed)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "New episodes: %d of %d found\n", s.EpisodesInserted, s.EpisodesFound)
	if s.LiveSkipped > 0 {
		fmt.Fprintf(&b, "Live or upcoming skipped: %d\n", s.LiveSkipped)
	}
	writeStage(&b, "Transcripts", s.Transcripts)
	writeStage(&b, "Participants", s.Participants)
	writeStage(&b, "Summaries", s.Summaries)

	if s.Errors.Count > 0 {
		fmt.Fprintf(&b, "\nErrors (%d):\n", s.Errors.Count)
		for _, msg := range s.Errors.Messages {
			fmt.Fprintf(&b, "- %s\n", msg)
		}
		if hidden := s.Errors.Hidden(); hidden > 0 {
			fmt.Fprintf(&b, "... and %d more\n", hidden)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeStage(b *strings.Builder, label string, s pipeline.StageStats) {
	if s.Processed == 0 && s.Skipped == 0 {
		return
	}
	fmt.Fprintf(b, "%s: %d ok, %d failed", label, s.Succeeded, s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(b, ", %d skipped", s.Skipped)
	}
	b.WriteString("\n")
}

// FormatStatus formats corpus progress and the most recent run, if any.
func FormatStatus(st *model.CorpusStats, run *model.SyncRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Episodes: %d\n", st.Episodes)
	fmt.Fprintf(&b, "With transcript: %d (%s)\n", st.WithTranscript, percent(st.WithTranscript, st.Episodes))
	fmt.Fprintf(&b, "Without transcript: %d\n", st.WithoutTranscript)
	fmt.Fprintf(&b, "With summary: %d, needs summary: %d\n", st.WithSummary, st.NeedsSummary)
	fmt.Fprintf(&b, "With participants: %d\n", st.WithParticipants)
	fmt.Fprintf(&b, "\nChannels: %d (%d with hosts, %d without)\n", st.Channels, st.ChannelsWithHosts, st.ChannelsWithoutHosts)
	fmt.Fprintf(&b, "People: %d\n", st.People)
	if st.UnverifiedHostLinks > 0 {
		fmt.Fprintf(&b, "Unverified hosts: %d\n", st.UnverifiedHostLinks)
	}

	if len(st.TranscriptsByProvider) > 0 {
		providers := make([]string, 0, len(st.TranscriptsByProvider))
		for p := range st.TranscriptsByProvider {
			providers = append(providers, p)
		}
		sort.Strings(providers)
		b.WriteString("\nTranscripts by provider:\n")
		for _, p := range providers {
			fmt.Fprintf(&b, "  %s: %d\n", p, st.TranscriptsByProvider[p])
		}
	}

	b.WriteString("\n")
	b.WriteString(FormatRun(run))
	return b.String()
}

// FormatRun formats a persisted sync run.
func FormatRun(run *model.SyncRun) string {
	if run == nil {
		return "No sync runs yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last sync: %s [%s]\n", run.StartedAt.UTC().Format(timeLayout), run.Status)
	if run.FinishedAt != nil {
		fmt.Fprintf(&b, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
	fmt.Fprintf(&b, "Channels: %d, episodes found: %d, inserted: %d, transcripts: %d\n",
		run.ChannelsProcessed, run.EpisodesFound, run.EpisodesInserted, run.TranscriptsFetched)
	if run.ErrorCount > 0 {
		fmt.Fprintf(&b, "Errors: %d\n", run.ErrorCount)
	}
	return b.String()
}

// FormatPending formats episodes still missing the given stage.
func FormatPending(stage model.Stage, eps []model.Episode) string {
	if len(eps) == 0 {
		return fmt.Sprintf("No episodes pending %s.", stage)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Pending %s (%d):\n", stage, len(eps))
	for _, ep := range eps {
		fmt.Fprintf(&b, "\n#%d %s", ep.ID, ep.Title)
		if ep.PublishedAt != nil {
			fmt.Fprintf(&b, " (%s)", ep.PublishedAt.UTC().Format("2006-01-02"))
		}
		if ep.URL != "" {
			fmt.Fprintf(&b, "\n%s", ep.URL)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatGroup formats the host proposals of one channel for review.
func FormatGroup(g review.Group) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Channel: %s\n", g.Channel.Name)
	if g.Channel.Handle != "" && g.Channel.Handle != g.Channel.Name {
		fmt.Fprintf(&b, "Handle: %s\n", g.Channel.Handle)
	}
	b.WriteString("Detected hosts:\n")
	for _, p := range g.Proposals {
		fmt.Fprintf(&b, "- %s\n", formatProposal(p))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatProposal(p review.Proposal) string {
	if p.Confidence == nil {
		return p.PersonName
	}
	return fmt.Sprintf("%s (%s)", p.PersonName, *p.Confidence)
}

func percent(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(n)*100/float64(total))
}
