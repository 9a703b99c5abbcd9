package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Answer /status and /pending in the configured Telegram chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.RequireTelegram(); err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), needs{})
		if err != nil {
			return err
		}
		defer a.close()
		if a.telegram == nil {
			return errors.New("telegram bot is not available")
		}

		a.log.Info("starting bot", "chat_id", a.cfg.TelegramChatID)
		a.telegram.Run(cmd.Context(), a.orch)
		a.log.Info("bot stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
