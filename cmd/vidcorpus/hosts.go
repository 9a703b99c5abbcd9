package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vidcorpus/internal/review"
)

var extractHostsCmd = &cobra.Command{
	Use:   "extract-hosts",
	Short: "Propose hosts for every channel with AI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		a, err := newApp(cmd.Context(), needs{write: true, ai: true})
		if err != nil {
			return err
		}
		defer a.close()

		stats, err := a.orch.ExtractHosts(cmd.Context(), force)
		if err != nil {
			return err
		}
		fmt.Printf("Channels: %d (%d already processed)\n", stats.Channels, stats.Skipped)
		fmt.Printf("Hosts proposed: %d, linked: %d\n", stats.Proposed, stats.Linked)
		printErrors(os.Stdout, stats.Errors)
		if stats.Linked > 0 {
			fmt.Println("\nRun verify-hosts to review the proposals.")
		}
		return nil
	},
}

var verifyHostsCmd = &cobra.Command{
	Use:   "verify-hosts",
	Short: "Review proposed hosts channel by channel",
	Example: `  # Answer in the terminal
  vidcorpus verify-hosts

  # Answer with inline buttons in the configured Telegram chat
  vidcorpus verify-hosts --telegram`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		useTelegram, _ := cmd.Flags().GetBool("telegram")
		if useTelegram {
			if err := cfg.RequireTelegram(); err != nil {
				return err
			}
		} else if !isTerminal(os.Stdin) {
			return errors.New("verify-hosts needs an interactive terminal, or use --telegram")
		}

		a, err := newApp(cmd.Context(), needs{write: true})
		if err != nil {
			return err
		}
		defer a.close()

		var src review.DecisionSource = review.NewTerminal(os.Stdin, os.Stdout)
		if useTelegram {
			if a.telegram == nil {
				return errors.New("telegram bot is not available")
			}
			src = a.telegram.Reviewer()
		}

		stats, err := a.identity.Verify(cmd.Context(), src)
		if err != nil {
			return err
		}
		if stats.Verified+stats.Removed+stats.Skipped == 0 {
			fmt.Println("No unverified hosts.")
			return nil
		}
		fmt.Printf("\nVerified: %d, removed: %d, skipped: %d\n", stats.Verified, stats.Removed, stats.Skipped)
		return nil
	},
}

var extractGuestsCmd = &cobra.Command{
	Use:   "extract-guests",
	Short: "Link hosts and guests to episodes with AI",
	Example: `  vidcorpus extract-guests --limit 20
  vidcorpus extract-guests --video-id dQw4w9WgXcQ`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		videoID, _ := cmd.Flags().GetString("video-id")
		limit, _ := cmd.Flags().GetInt("limit")
		a, err := newApp(cmd.Context(), needs{write: true, ai: true})
		if err != nil {
			return err
		}
		defer a.close()

		progress := newProgress("guests")
		if videoID != "" {
			progress = nil
		}
		stats, err := a.orch.ExtractGuests(cmd.Context(), videoID, limit, progress)
		if isMissing(err) {
			return fmt.Errorf("episode %s not found", videoID)
		}
		if err != nil {
			return err
		}
		if stats.Total == 0 {
			fmt.Println("NO_MORE_VIDEOS")
			return nil
		}
		printBatch(os.Stdout, "Participants", stats)
		return nil
	},
}

func init() {
	extractHostsCmd.Flags().Bool("force", false, "Re-run extraction for channels already processed")
	verifyHostsCmd.Flags().Bool("telegram", false, "Ask in the Telegram chat instead of the terminal")
	extractGuestsCmd.Flags().String("video-id", "", "External ID of a single episode to (re)process")
	extractGuestsCmd.Flags().Int("limit", 20, "Max pending episodes to process")
	rootCmd.AddCommand(extractHostsCmd, verifyHostsCmd, extractGuestsCmd)
}
