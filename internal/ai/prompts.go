package ai

import (
	"fmt"
	"strings"

	"vidcorpus/internal/model"
)

const extractionSystemPrompt = "You are an expert at identifying people mentioned in video content. " +
	"Always respond with valid JSON arrays only."

const hostPromptTemplate = `YouTube Channel: %s

Channel Description/About:
%s

Recent video titles and descriptions:
%s

Identify the HOST(s) of this channel: people who appear in most or all videos as interviewers, presenters, or show runners. Hosts are the consistent faces of the channel, not the guests being interviewed.

IMPORTANT:
1. The channel description often states who the hosts are. Check it carefully.
2. Look for patterns like "hosted by X", "X and Y discuss", "your hosts X and Y".
3. Video descriptions often say "In this episode, [HOST] talks to [GUEST]". The host is the name repeated across videos.
4. Podcast channels usually have 1-3 regular hosts.

Return ONLY a JSON array (no other text) with the hosts:
[{"name": "Full Name", "confidence": "high|medium|low"}]

If you cannot identify any hosts with reasonable confidence, return an empty array: []
`

const guestPromptTemplate = `Channel: %s
%s

Video title: %s

Video description:
%s

Extract the GUEST(s) appearing in this video: people being interviewed, featured, or in conversation with the host(s).

IMPORTANT RULES:
1. Focus on the description. It usually contains the guest's name and bio. Titles are often clickbait and may mention famous people who are NOT guests.
2. Look for patterns like "X joins us", "X breaks down", "X is a [profession]", "conversation with X", "X discusses".
3. Do NOT extract people who are only mentioned or discussed. Only extract people who appear as guests.
4. If this is a news channel (reporting news, not interviews), return an empty array.
5. Do NOT include the hosts listed above.
6. Only include real people (not fictional characters, brands, or organizations).
7. Use the person's full name as it appears in the description.

Return ONLY a JSON array (no other text):
[{"name": "Full Name", "role": "guest"}]

If no guests can be identified or this is a news channel, return: []
`

const summarySystemPrompt = `You are an expert at summarizing video content. Your summaries capture:

1. Main topics and themes discussed
2. Key points and arguments made
3. Notable quotes or statements
4. Actionable insights or takeaways
5. The overall structure and flow of the discussion

Write in a clear, organized manner using bullet points and sections where appropriate. The summary should let someone understand the main content without watching the video while staying quick to read.

IMPORTANT: Do NOT include a title, header, or preamble. Start directly with the summary content. Do not write things like "Summary:" at the start.`

// Prompt size limits.
const (
	channelDescriptionLimit = 1000
	episodeDescriptionLimit = 300
	guestDescriptionLimit   = 2000
	transcriptLimit         = 100000
)

const transcriptTruncatedMarker = "\n\n[Transcript truncated due to length]"

func hostPrompt(ch model.Channel, recent []model.Episode) string {
	parts := make([]string, 0, len(recent))
	for _, ep := range recent {
		desc := ""
		if ep.Description != nil {
			desc = *ep.Description
		}
		if len([]rune(desc)) > episodeDescriptionLimit {
			desc = clip(desc, episodeDescriptionLimit) + "..."
		}
		parts = append(parts, fmt.Sprintf("Title: %s\nDescription: %s", ep.Title, desc))
	}

	chDesc := ""
	if ch.Description != nil {
		chDesc = clip(*ch.Description, channelDescriptionLimit)
	}
	return fmt.Sprintf(hostPromptTemplate, ch.Name, chDesc, strings.Join(parts, "\n\n"))
}

func guestPrompt(ch model.Channel, ep model.Episode, knownHosts []string) string {
	hostsContext := ""
	if len(knownHosts) > 0 {
		hostsContext = "Known hosts (DO NOT include these): " + strings.Join(knownHosts, ", ")
	}
	desc := ""
	if ep.Description != nil {
		desc = clip(*ep.Description, guestDescriptionLimit)
	}
	return fmt.Sprintf(guestPromptTemplate, ch.Name, hostsContext, ep.Title, desc)
}

func summaryPrompt(title, transcript string) string {
	if len([]rune(transcript)) > transcriptLimit {
		transcript = clip(transcript, transcriptLimit) + transcriptTruncatedMarker
	}
	var sb strings.Builder
	sb.WriteString("Please provide a comprehensive summary of the following video transcript.\n\n")
	if title != "" {
		sb.WriteString("Video Title: " + title + "\n\n")
	}
	sb.WriteString("Transcript:\n")
	sb.WriteString(transcript)
	return sb.String()
}

// clip returns at most n runes of s.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
