// Package discord delivers fired notifications to a Discord channel.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/medtrack-app/medtrack/internal/notify"
	"go.uber.org/zap"
)

// Config holds Discord delivery configuration
type Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

// Bot posts notifications to one channel over the Discord REST API. No
// gateway connection is opened since the bot never listens for messages.
type Bot struct {
	session   *discordgo.Session
	channelID string
	logger    *zap.Logger
	enabled   bool
}

// NewBot creates a new Discord sink
func NewBot(cfg Config, logger *zap.Logger) (*Bot, error) {
	if !cfg.Enabled || cfg.Token == "" || cfg.ChannelID == "" {
		return &Bot{enabled: false}, nil
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	logger.Info("Discord delivery enabled", zap.String("channel_id", cfg.ChannelID))

	return &Bot{
		session:   session,
		channelID: cfg.ChannelID,
		logger:    logger,
		enabled:   true,
	}, nil
}

func (b *Bot) Name() string { return "discord" }

// Deliver posts the notification to the configured channel.
func (b *Bot) Deliver(n notify.Notification) error {
	if !b.enabled {
		return nil
	}

	text := fmt.Sprintf("**%s**\n%s", n.Content.Title, n.Content.Body)
	if _, err := b.session.ChannelMessageSend(b.channelID, text); err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}
