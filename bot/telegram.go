package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient implements Client on the Telegram Bot API.
type TelegramClient struct {
	api *tgbotapi.BotAPI

	// LongPoll is the getUpdates wait window in seconds. It also bounds how
	// long Run takes to notice cancellation, since the library call has no
	// context.
	LongPoll int
}

// NewTelegramClient validates token with getMe.
func NewTelegramClient(token string) (*TelegramClient, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	const longPoll = 25
	httpClient := &http.Client{Timeout: (longPoll + 10) * time.Second}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("telegram login failed: %w", err)
	}
	return &TelegramClient{api: api, LongPoll: longPoll}, nil
}

// Username returns the bot's handle.
func (t *TelegramClient) Username() string { return t.api.Self.UserName }

func (t *TelegramClient) GetUpdates(ctx context.Context, offset int) ([]Update, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = t.LongPoll
	cfg.AllowedUpdates = []string{"message"}

	raw, err := t.api.GetUpdates(cfg)
	if err != nil {
		return nil, err
	}

	updates := make([]Update, 0, len(raw))
	for _, u := range raw {
		out := Update{ID: u.UpdateID}
		if u.Message != nil {
			out.Text = u.Message.Text
			if u.Message.Chat != nil {
				out.ChatID = u.Message.Chat.ID
			}
		}
		updates = append(updates, out)
	}
	return updates, nil
}

func (t *TelegramClient) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
