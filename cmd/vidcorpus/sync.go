package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"vidcorpus/internal/bot"
	"vidcorpus/internal/config"
	"vidcorpus/internal/pipeline"
)

var syncNewCmd = &cobra.Command{
	Use:   "sync-new",
	Short: "Discover new episodes and run them through the enrichment stages",
	Example: `  vidcorpus sync-new
  vidcorpus sync-new --limit 5 --with-guests --with-summary`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := syncOptions(cmd)
		if err := applyLimits(cmd, cfg); err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), needs{write: true, transcripts: true, upstream: true, ai: opts.WithGuests || opts.WithSummary})
		if err != nil {
			return err
		}
		defer a.close()

		channels, err := a.channels()
		if err != nil {
			return err
		}

		stats, err := a.orch.SyncNew(cmd.Context(), channels, opts)
		if err != nil {
			return err
		}
		fmt.Println(bot.FormatRunSummary(stats))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run sync-new on an interval until interrupted",
	Example: `  vidcorpus watch --interval 1h --with-summary`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := syncOptions(cmd)
		if err := applyLimits(cmd, cfg); err != nil {
			return err
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval < time.Minute {
			return fmt.Errorf("interval must be at least 1m, got %s", interval)
		}

		a, err := newApp(cmd.Context(), needs{write: true, transcripts: true, upstream: true, ai: opts.WithGuests || opts.WithSummary})
		if err != nil {
			return err
		}
		defer a.close()

		a.log.Info("watching channels", "interval", interval, "registry", a.cfg.ChannelsFile)
		a.orch.Watch(cmd.Context(), interval, a.channels, opts)
		a.log.Info("watch stopped")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus progress and the last sync run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer a.close()

		st, err := a.orch.Stats(cmd.Context())
		if err != nil {
			return err
		}
		run, err := a.orch.LatestRun(cmd.Context())
		if err != nil {
			return err
		}

		rows := [][]string{
			{"Episodes", strconv.Itoa(st.Episodes)},
			{"With transcript", strconv.Itoa(st.WithTranscript)},
			{"Without transcript", strconv.Itoa(st.WithoutTranscript)},
			{"With summary", strconv.Itoa(st.WithSummary)},
			{"Needs summary", strconv.Itoa(st.NeedsSummary)},
			{"With participants", strconv.Itoa(st.WithParticipants)},
			{"Channels", strconv.Itoa(st.Channels)},
			{"Channels with hosts", strconv.Itoa(st.ChannelsWithHosts)},
			{"Channels without hosts", strconv.Itoa(st.ChannelsWithoutHosts)},
			{"People", strconv.Itoa(st.People)},
			{"Unverified hosts", strconv.Itoa(st.UnverifiedHostLinks)},
		}
		providers := make([]string, 0, len(st.TranscriptsByProvider))
		for p := range st.TranscriptsByProvider {
			providers = append(providers, p)
		}
		sort.Strings(providers)
		for _, p := range providers {
			rows = append(rows, []string{"Transcripts via " + p, strconv.Itoa(st.TranscriptsByProvider[p])})
		}

		fmt.Println(renderTable([]string{"Metric", "Count"}, rows, 1))
		fmt.Println()
		fmt.Print(bot.FormatRun(run))
		if run != nil {
			for _, msg := range run.Errors {
				fmt.Printf("  - %s\n", msg)
			}
		}
		return nil
	},
}

func syncOptions(cmd *cobra.Command) pipeline.SyncOptions {
	guests, _ := cmd.Flags().GetBool("with-guests")
	summary, _ := cmd.Flags().GetBool("with-summary")
	return pipeline.SyncOptions{WithGuests: guests, WithSummary: summary}
}

func applyLimits(cmd *cobra.Command, c *config.Config) error {
	limit, newChannelLimit := c.Limit, c.NewChannelLimit
	if cmd.Flags().Changed("limit") {
		limit, _ = cmd.Flags().GetInt("limit")
	}
	if cmd.Flags().Changed("new-channel-limit") {
		newChannelLimit, _ = cmd.Flags().GetInt("new-channel-limit")
	}
	if err := config.ValidateLimits(limit, newChannelLimit); err != nil {
		return err
	}
	c.Limit, c.NewChannelLimit = limit, newChannelLimit
	return nil
}

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, "Max new episodes per known channel (default from config, 20)")
	cmd.Flags().Int("new-channel-limit", 0, "Max episodes for a channel seen for the first time (default from config, 10)")
	cmd.Flags().Bool("with-guests", false, "Extract hosts and guests for new episodes")
	cmd.Flags().Bool("with-summary", false, "Generate summaries for new episodes")
}

func init() {
	addSyncFlags(syncNewCmd)
	addSyncFlags(watchCmd)
	watchCmd.Flags().Duration("interval", time.Hour, "Time between sync runs")
	rootCmd.AddCommand(syncNewCmd, watchCmd, statusCmd)
}
