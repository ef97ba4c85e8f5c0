package notification

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends alerts via Telegram Bot API.
type TelegramNotifier struct {
	chatID string
	client *resty.Client
}

// NewTelegramNotifier creates a Telegram notifier.
// botToken: Bot API token from @BotFather
// chatID: Target chat/group/channel ID
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return newTelegramNotifier(telegramAPI, botToken, chatID)
}

func newTelegramNotifier(baseURL, botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		chatID: chatID,
		client: resty.New().
			SetBaseURL(fmt.Sprintf("%s/bot%s", baseURL, botToken)).
			SetTimeout(10 * time.Second),
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	emoji := "ℹ️"
	switch alert.Level {
	case AlertWarning:
		emoji = "⚠️"
	case AlertCritical:
		emoji = "🚨"
	}

	text := fmt.Sprintf("%s *%s*\n\n%s", emoji, escapeMarkdown(alert.Title), escapeMarkdown(alert.Message))

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "MarkdownV2",
		}).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode())
	}

	log.Printf("[telegram] sent alert: %s", alert.Title)
	return nil
}

// escapeMarkdown escapes special characters for Telegram MarkdownV2.
func escapeMarkdown(s string) string {
	specials := []byte{'_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!'}
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		if bytes.IndexByte(specials, s[i]) >= 0 {
			buf.WriteByte('\\')
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
