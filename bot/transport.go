package bot

import (
	"context"
	"fmt"

	"contestbot/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// membershipOKStatuses are the chat member statuses that count as subscribed
var membershipOKStatuses = map[string]bool{
	"member":        true,
	"administrator": true,
	"creator":       true,
}

// Transport adapts the Telegram API to the narrow interfaces the services
// depend on: membership checks, operator notifications and the results
// broadcast. It carries no handler state, so it can be built before the bot.
type Transport struct {
	api        *tgbotapi.BotAPI
	operatorID int64
}

// NewTransport creates the service-facing Telegram adapter
func NewTransport(api *tgbotapi.BotAPI, operatorID int64) *Transport {
	return &Transport{api: api, operatorID: operatorID}
}

// IsChannelMember reports whether the user is currently subscribed to the
// contest channel
func (t *Transport) IsChannelMember(ctx context.Context, channelID, telegramID int64) (bool, error) {
	member, err := t.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: channelID,
			UserID: telegramID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to check membership of user %d: %w", telegramID, err)
	}

	return membershipOKStatuses[member.Status], nil
}

// NotifyOperator sends a message to the operator. Delivery failures are
// logged; an unreachable operator never blocks the work being reported on.
func (t *Transport) NotifyOperator(ctx context.Context, text string) {
	if t.operatorID == 0 {
		return
	}
	if _, err := t.api.Send(tgbotapi.NewMessage(t.operatorID, text)); err != nil {
		log.Errorf("Failed to notify operator: %v", err)
	}
}

// SendResultsAnnouncement delivers the results message with a button that
// opens the recipient's final standings
func (t *Transport) SendResultsAnnouncement(ctx context.Context, telegramID int64, contest *models.Contest) error {
	msg := tgbotapi.NewMessage(telegramID, resultsAnnouncementText(contest))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 My results", callbackShowStats),
		),
	)

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send results announcement to %d: %w", telegramID, err)
	}
	return nil
}
