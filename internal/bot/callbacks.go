package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vidcorpus/internal/review"
)

const (
	kindChannel = "verify"
	kindHost    = "host"

	actionAccept = "accept"
	actionReject = "reject"
	actionEdit   = "edit"
	actionSkip   = "skip"
)

// Reviewer is a review.DecisionSource that asks in the Telegram chat and waits
// for an inline keyboard answer.
type Reviewer struct {
	bot *Bot
}

var _ review.DecisionSource = (*Reviewer)(nil)

// Reviewer returns a decision source bound to the bot's chat.
func (b *Bot) Reviewer() *Reviewer {
	return &Reviewer{bot: b}
}

// Decide implements review.DecisionSource.
func (r *Reviewer) Decide(ctx context.Context, g review.Group) (review.Decision, error) {
	id := g.Channel.ID
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("All correct", kindChannel, id, actionAccept),
			button("Remove all", kindChannel, id, actionReject),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("One by one", kindChannel, id, actionEdit),
			button("Skip", kindChannel, id, actionSkip),
		),
	)
	if err := r.bot.send(r.bot.chatID, FormatGroup(g), markup); err != nil {
		return review.Skip, err
	}

	action, err := r.await(ctx, kindChannel, id)
	if err != nil {
		return review.Skip, err
	}
	switch action {
	case actionAccept:
		return review.AcceptAll, nil
	case actionReject:
		return review.RejectAll, nil
	case actionEdit:
		return review.PerItem, nil
	}
	return review.Skip, nil
}

// DecideItem implements review.DecisionSource.
func (r *Reviewer) DecideItem(ctx context.Context, g review.Group, p review.Proposal) (review.ItemDecision, error) {
	id := p.LinkID
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("Verify", kindHost, id, actionAccept),
			button("Remove", kindHost, id, actionReject),
			button("Skip", kindHost, id, actionSkip),
		),
	)
	text := fmt.Sprintf("%s: is %s a host?", g.Channel.Name, formatProposal(p))
	if err := r.bot.send(r.bot.chatID, text, markup); err != nil {
		return review.SkipItem, err
	}

	action, err := r.await(ctx, kindHost, id)
	if err != nil {
		return review.SkipItem, err
	}
	switch action {
	case actionAccept:
		return review.Accept, nil
	case actionReject:
		return review.Reject, nil
	}
	return review.SkipItem, nil
}

// await blocks until a callback for kind and id arrives from the configured
// chat. Other updates, including stale button presses, are acknowledged and
// dropped.
func (r *Reviewer) await(ctx context.Context, kind string, id int64) (string, error) {
	updates := r.bot.updateChan()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return "", fmt.Errorf("telegram updates closed")
			}
			cb := update.CallbackQuery
			if cb == nil {
				continue
			}
			r.bot.ack(cb)
			if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != r.bot.chatID {
				continue
			}
			parsed, err := ParseCallback(cb.Data)
			if err != nil || parsed.Kind != kind || parsed.ID != id {
				r.bot.log.Debug("ignoring callback", "data", cb.Data)
				continue
			}
			r.bot.log.Info("callback", "kind", kind, "id", id, "action", parsed.Action,
				"user_id", cb.From.ID, "username", cb.From.UserName)
			return parsed.Action, nil
		}
	}
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Debug("send callback ack", "error", err)
	}
}

func button(label, kind string, id int64, action string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, Callback{Kind: kind, ID: id, Action: action}.String())
}
