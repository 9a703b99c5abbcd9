// Package bot connects the corpus to a Telegram chat: run notifications,
// status commands and host verification through inline keyboards.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vidcorpus/internal/model"
	"vidcorpus/internal/pipeline"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// StatusSource reports corpus progress for the status commands.
type StatusSource interface {
	Stats(ctx context.Context) (*model.CorpusStats, error)
	LatestRun(ctx context.Context) (*model.SyncRun, error)
	ListPending(ctx context.Context, s model.Stage, limit int) ([]model.Episode, error)
}

// Bot talks to a single configured Telegram chat.
type Bot struct {
	api     telegramAPI
	chatID  int64
	log     *slog.Logger
	updates tgbotapi.UpdatesChannel
}

var _ pipeline.Notifier = (*Bot)(nil)

// New creates a Bot for the given token and chat.
func New(token string, chatID int64, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Bot{api: api, chatID: chatID, log: log}, nil
}

func (b *Bot) updateChan() tgbotapi.UpdatesChannel {
	if b.updates == nil {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		b.updates = b.api.GetUpdatesChan(u)
	}
	return b.updates
}

// Stop ends long polling. It is safe to call more than once.
func (b *Bot) Stop() {
	if b.updates != nil {
		b.api.StopReceivingUpdates()
		b.updates = nil
	}
}

// Run answers status commands in the configured chat, blocking until ctx is
// cancelled.
func (b *Bot) Run(ctx context.Context, src StatusSource) {
	updates := b.updateChan()

	for {
		select {
		case <-ctx.Done():
			b.Stop()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.ack(update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.Chat.ID != b.chatID {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, src, update.Message)
		}
	}
}

// SendMessage sends a text message to the configured chat.
func (b *Bot) SendMessage(text string) error {
	return b.send(b.chatID, text, nil)
}

func (b *Bot) send(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.send(chatID, text, nil); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// NotifyRun implements pipeline.Notifier.
func (b *Bot) NotifyRun(_ context.Context, stats pipeline.RunStats) error {
	return b.SendMessage(FormatRunSummary(stats))
}

func (b *Bot) handleCommand(ctx context.Context, src StatusSource, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start", "help":
		b.handleHelp(chatID)
	case "status":
		b.handleStatus(ctx, src, chatID)
	case "pending":
		b.handlePending(ctx, src, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
