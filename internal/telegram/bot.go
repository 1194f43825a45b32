package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"tickerwatch/internal/alert"
	"tickerwatch/lib/helpers"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug
	log.Debugf("telegram bot authorized as %s", bot.Self.UserName)

	return &Bot{
		Bot:    bot,
		Config: c,
	}, nil
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.DisableWebPagePreview = true
	msg.ParseMode = "MarkdownV2"
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}

// Alert forwards an announcement to the configured chat.
func (b *Bot) Alert(_ context.Context, a alert.Announcement) error {
	return b.SendMessage(Message{
		ChatID: b.Config.ChatID,
		Text:   FormatAlert(a),
	})
}

// FormatAlert renders an announcement as a MarkdownV2 message.
func FormatAlert(a alert.Announcement) string {
	return fmt.Sprintf(
		"🚨 *Price Alert Triggered*\n\n*%s* is now *$%s*",
		helpers.EscapeMarkdownV2(a.Ticker),
		helpers.FormatPriceUS(a.Price, true),
	)
}
