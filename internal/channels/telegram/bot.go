// Package telegram delivers fired notifications to Telegram chats.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/medtrack-app/medtrack/internal/notify"
	"go.uber.org/zap"
)

// Config holds Telegram delivery configuration
type Config struct {
	Enabled bool    `mapstructure:"enabled"`
	Token   string  `mapstructure:"token"`
	ChatIDs []int64 `mapstructure:"chat_ids"`
}

// Bot is an outbound-only Telegram sink. Disabled bots swallow deliveries
// silently so callers never have to branch on configuration.
type Bot struct {
	api     *tgbotapi.BotAPI
	chatIDs []int64
	logger  *zap.Logger
	enabled bool
}

// NewBot creates a new Telegram sink
func NewBot(cfg Config, logger *zap.Logger) (*Bot, error) {
	if !cfg.Enabled || cfg.Token == "" {
		return &Bot{enabled: false}, nil
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = false

	logger.Info("Telegram delivery enabled",
		zap.String("username", api.Self.UserName),
		zap.Int("chats", len(cfg.ChatIDs)),
	)

	return &Bot{
		api:     api,
		chatIDs: cfg.ChatIDs,
		logger:  logger,
		enabled: true,
	}, nil
}

func (b *Bot) Name() string { return "telegram" }

// Deliver sends the notification text to every configured chat.
func (b *Bot) Deliver(n notify.Notification) error {
	if !b.enabled {
		return nil
	}

	text := fmt.Sprintf("*%s*\n%s", n.Content.Title, n.Content.Body)

	var lastErr error
	for _, chatID := range b.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown

		if _, err := b.api.Send(msg); err != nil {
			// Retry without markdown in case the medication name breaks parsing
			msg.ParseMode = ""
			if _, err = b.api.Send(msg); err != nil {
				b.logger.Error("Failed to send Telegram message",
					zap.Int64("chat_id", chatID),
					zap.Error(err),
				)
				lastErr = err
			}
		}
	}
	return lastErr
}
