package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"vidcorpus/internal/bot"
	"vidcorpus/internal/model"
	"vidcorpus/internal/pipeline"
	"vidcorpus/internal/stage"
)

var nextTranscriptCmd = &cobra.Command{
	Use:   "next-transcript",
	Short: "Show the newest episode without a transcript",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer a.close()

		ep, err := a.orch.NextTranscript(cmd.Context())
		if errors.Is(err, pipeline.ErrNothingPending) {
			fmt.Println("NO_MORE_VIDEOS")
			fmt.Println("All episodes have transcripts!")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("VIDEO_ID: %d\n", ep.ID)
		fmt.Printf("EXTERNAL_ID: %s\n", ep.ExternalID)
		fmt.Printf("TITLE: %s\n", ep.Title)
		fmt.Printf("URL: %s\n", ep.URL)
		return nil
	},
}

var fetchTranscriptCmd = &cobra.Command{
	Use:   "fetch-transcript <episode_id>",
	Short: "Fetch and store the transcript of one episode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseEpisodeID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), needs{write: true, transcripts: true, upstream: true})
		if err != nil {
			return err
		}
		defer a.close()

		ep, out, res, err := a.orch.FetchTranscript(cmd.Context(), id)
		if isMissing(err) {
			return fmt.Errorf("episode %d not found", id)
		}
		if err != nil {
			if ep != nil {
				fmt.Printf("Fetching transcript for: %s\n", ep.Title)
			}
			fmt.Printf("FAILED: %v\n", err)
			return err
		}

		fmt.Printf("Fetching transcript for: %s\n", ep.Title)
		fmt.Printf("External ID: %s\n", ep.ExternalID)
		if out == stage.Skipped {
			fmt.Println("SKIPPED: episode already has a transcript")
			return nil
		}
		fmt.Printf("SUCCESS: Saved transcript (%d chars)\n", len(res.Text))
		fmt.Printf("Provider: %s\n", res.Provider)
		return nil
	},
}

var fetchAllTranscriptsCmd = &cobra.Command{
	Use:   "fetch-all-transcripts",
	Short: "Fetch transcripts for episodes that are missing one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		a, err := newApp(cmd.Context(), needs{write: true, transcripts: true, upstream: true})
		if err != nil {
			return err
		}
		defer a.close()

		stats, err := a.orch.FetchTranscripts(cmd.Context(), limit, newProgress("transcripts"))
		if err != nil {
			return err
		}
		if stats.Total == 0 {
			fmt.Println("All episodes have transcripts!")
			return nil
		}
		printBatch(os.Stdout, "Transcripts", stats)
		return nil
	},
}

var getTranscriptCmd = &cobra.Command{
	Use:   "get-transcript <episode_id>",
	Short: "Print the stored transcript of an episode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseEpisodeID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer a.close()

		ep, err := a.orch.Transcript(cmd.Context(), id)
		if isMissing(err) {
			return fmt.Errorf("episode %d not found", id)
		}
		if err != nil {
			return err
		}
		copyFlag, _ := cmd.Flags().GetBool("copy")
		return copyOrPrint(copyFlag, "Transcript", *ep.Transcript, func() { printTranscript(ep) })
	},
}

var listPendingCmd = &cobra.Command{
	Use:   "list-pending",
	Short: "List episodes still missing a stage (summaries by default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		stageName, _ := cmd.Flags().GetString("stage")
		s, err := bot.ParseStage(stageName)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer a.close()

		eps, err := a.orch.ListPending(cmd.Context(), s, limit)
		if err != nil {
			return err
		}
		if len(eps) == 0 {
			fmt.Println("NO_MORE_VIDEOS")
			fmt.Printf("No episodes pending %s.\n", s)
			return nil
		}

		rows := make([][]string, 0, len(eps))
		for i := range eps {
			ep := &eps[i]
			rows = append(rows, []string{
				strconv.FormatInt(ep.ID, 10),
				ep.Title,
				formatDate(ep),
				formatDuration(ep.DurationSeconds),
			})
		}
		fmt.Printf("=== %d EPISODES PENDING %s ===\n", len(eps), s)
		fmt.Println(renderTable([]string{"ID", "Title", "Published", "Duration"}, rows, 0, 3))
		return nil
	},
}

func printTranscript(ep *model.Episode) {
	fmt.Printf("VIDEO_ID: %d\n", ep.ID)
	fmt.Printf("TITLE: %s\n", ep.Title)
	fmt.Printf("TRANSCRIPT_LENGTH: %d chars\n", len(*ep.Transcript))
	fmt.Println("---TRANSCRIPT_START---")
	fmt.Println(*ep.Transcript)
	fmt.Println("---TRANSCRIPT_END---")
}

func parseEpisodeID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid episode ID %q", s)
	}
	return id, nil
}

func init() {
	fetchAllTranscriptsCmd.Flags().Int("limit", 100, "Max episodes to process")
	getTranscriptCmd.Flags().Bool("copy", false, "Copy the transcript to the clipboard instead of printing it")
	listPendingCmd.Flags().Int("limit", 5, "Max episodes to list")
	listPendingCmd.Flags().String("stage", string(model.StageSummary), "Stage the episodes are missing")
	rootCmd.AddCommand(nextTranscriptCmd, fetchTranscriptCmd, fetchAllTranscriptsCmd, getTranscriptCmd, listPendingCmd)
}
