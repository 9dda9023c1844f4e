package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts alerts to a single chat.
type Telegram struct {
	bot    botSender
	chatID int64
}

// NewTelegram validates token against the Bot API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func newTelegramWithBot(bot botSender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, formatTelegram(alert))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func formatTelegram(alert Alert) string {
	var b strings.Builder
	b.WriteString("🚨 *CRITICAL meme alerts*\n\n")
	for _, tk := range alert.Tickers {
		fmt.Fprintf(&b, "• `%s`\n", escapeMarkdownV2(tk))
	}
	fmt.Fprintf(&b, "\n_%s_", escapeMarkdownV2(alert.At.UTC().Format("2006-01-02 15:04 MST")))
	return b.String()
}

func escapeMarkdownV2(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}
