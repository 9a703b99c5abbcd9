package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vidcorpus/internal/config"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vidcorpus",
	Short: "Build a searchable corpus of long-form video and podcast episodes",
	Long: `vidcorpus tracks YouTube channels and podcast feeds, discovers new episodes
and enriches them with metadata, transcripts, hosts, guests and summaries.

Channels are listed in a TOML registry (channels.toml by default).`,
	Example: `  # Discover and transcribe new episodes
  vidcorpus sync-new

  # Also link guests and write summaries
  vidcorpus sync-new --with-guests --with-summary

  # Review proposed hosts in the terminal
  vidcorpus verify-hosts`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		c, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if channels, _ := cmd.Flags().GetString("channels"); channels != "" {
			c.ChannelsFile = channels
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			c.LogLevel = "debug"
		}
		cfg = c
		logger = newLogger(c.LogLevel)
		return nil
	},
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().String("config", "", "Config file (default is ./config.toml or $XDG_CONFIG_HOME/vidcorpus/config.toml)")
	rootCmd.PersistentFlags().String("channels", "", "Channel registry file (default from config, channels.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}
