package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/itsmeHabibs/poundrr-backend/internal/infra/httpclient"
)

// Bot pushes match notifications to users through the app's Telegram
// bot. The swipe engine only triggers the notification; delivery and
// retries beyond this call belong to Telegram.
type Bot struct {
	api *tgbotapi.BotAPI
}

func NewBot(token string) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPIWithClient(strings.TrimSpace(token), tgbotapi.APIEndpoint, httpclient.New(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Bot{api: api}, nil
}

func (b *Bot) SendMatchMessage(ctx context.Context, chatID int64, partnerName, openURL string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID <= 0 {
		return fmt.Errorf("invalid telegram chat id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text := "It's a match!"
	if strings.TrimSpace(partnerName) != "" {
		text = fmt.Sprintf("It's a match with %s!", strings.TrimSpace(partnerName))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if strings.TrimSpace(openURL) != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("Open chat", openURL),
			),
		)
	}

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send match message: %w", err)
	}

	return nil
}
