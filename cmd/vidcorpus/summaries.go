package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vidcorpus/internal/pipeline"
)

var nextSummaryCmd = &cobra.Command{
	Use:   "next-summary",
	Short: "Print the next episode that has a transcript but no summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer a.close()

		ep, err := a.orch.NextSummary(cmd.Context())
		if errors.Is(err, pipeline.ErrNothingPending) {
			fmt.Println("NO_MORE_VIDEOS")
			fmt.Println("All episodes with transcripts have summaries!")
			return nil
		}
		if err != nil {
			return err
		}
		printTranscript(ep)
		return nil
	},
}

var saveSummaryCmd = &cobra.Command{
	Use:   "save-summary <episode_id> <text|->",
	Short: "Store a summary written elsewhere",
	Example: `  vidcorpus save-summary 42 "Jane and Alan discuss computability."
  vidcorpus save-summary 42 - < summary.md`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseEpisodeID(args[0])
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		if text == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read summary: %w", err)
			}
			text = string(data)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return errors.New("summary is empty")
		}

		a, err := newApp(cmd.Context(), needs{write: true})
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.orch.SaveSummary(cmd.Context(), id, text); err != nil {
			if isMissing(err) {
				return fmt.Errorf("episode %d not found", id)
			}
			return err
		}
		fmt.Printf("Saved summary for episode %d (%d chars)\n", id, len(text))
		return nil
	},
}

var getSummaryCmd = &cobra.Command{
	Use:   "get-summary <episode_id>",
	Short: "Print the stored summary of an episode",
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

		ep, err := a.orch.Summary(cmd.Context(), id)
		if isMissing(err) {
			return fmt.Errorf("episode %d not found", id)
		}
		if err != nil {
			return err
		}
		copyFlag, _ := cmd.Flags().GetBool("copy")
		if copyFlag {
			return copyOrPrint(true, "Summary", *ep.Summary, nil)
		}
		return writeMarkdown(os.Stdout, fmt.Sprintf("# %s\n\n%s", ep.Title, *ep.Summary))
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Generate AI summaries for episodes that need one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		a, err := newApp(cmd.Context(), needs{write: true, ai: true})
		if err != nil {
			return err
		}
		defer a.close()

		stats, err := a.orch.Summarize(cmd.Context(), limit, newProgress("summaries"))
		if err != nil {
			return err
		}
		if stats.Total == 0 {
			fmt.Println("All episodes with transcripts have summaries!")
			return nil
		}
		printBatch(os.Stdout, "Summaries", stats)
		return nil
	},
}

func init() {
	getSummaryCmd.Flags().Bool("copy", false, "Copy the summary to the clipboard instead of printing it")
	summarizeCmd.Flags().Int("limit", 10, "Max episodes to summarize")
	rootCmd.AddCommand(nextSummaryCmd, saveSummaryCmd, getSummaryCmd, summarizeCmd)
}
