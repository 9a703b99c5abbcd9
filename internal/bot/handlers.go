package bot

import (
	"context"
	"fmt"
)

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Corpus commands:
/status - episode, transcript and host counts with the last sync run
/pending [stage] [limit] - episodes still missing a stage (transcript, summary, participants, metadata)`)
}

func (b *Bot) handleStatus(ctx context.Context, src StatusSource, chatID int64) {
	st, err := src.Stats(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to load stats: %v", err))
		return
	}
	run, err := src.LatestRun(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to load last run: %v", err))
		return
	}
	b.reply(chatID, FormatStatus(st, run))
}

func (b *Bot) handlePending(ctx context.Context, src StatusSource, chatID int64, args string) {
	stage, limit, err := ParsePendingArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	eps, err := src.ListPending(ctx, stage, limit)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to list pending episodes: %v", err))
		return
	}
	b.reply(chatID, FormatPending(stage, eps))
}
