// Package notify delivers fire-and-forget trade notifications over
// Telegram. Delivery failure is logged and never escalated; trading
// must not depend on a chat message going through.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"gridbot/logger"
)

// Telegram sends messages to one chat. A nil *Telegram is a valid
// no-op notifier so callers never need to branch on configuration.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects the bot API. Returns an error only when the
// token is rejected outright.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init failed: %w", err)
	}
	logger.Infof("✅ Telegram notifier ready (@%s)", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Send queues one message asynchronously
func (t *Telegram) Send(text string) {
	if t == nil || t.bot == nil {
		return
	}
	go func() {
		msg := tgbotapi.NewMessage(t.chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := t.bot.Send(msg); err != nil {
			logger.Warnf("⚠️  Telegram delivery failed: %v", err)
		}
	}()
}

// Sendf formats and sends
func (t *Telegram) Sendf(format string, args ...interface{}) {
	if t == nil {
		return
	}
	t.Send(fmt.Sprintf(format, args...))
}
