package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the medication tracker
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Channels      ChannelsConfig      `mapstructure:"channels"`
	Security      SecurityConfig      `mapstructure:"security"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	RateRPM      int    `mapstructure:"rate_rpm"`
	RateBurst    int    `mapstructure:"rate_burst"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	BadgerPath string `mapstructure:"badger_path"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// NotificationsConfig holds reminder scheduling settings
type NotificationsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	RescheduleCron string `mapstructure:"reschedule_cron"`
}

// ChannelsConfig holds delivery channel settings
type ChannelsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// TelegramConfig holds Telegram delivery settings
type TelegramConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	BotToken string  `mapstructure:"bot_token"`
	ChatIDs  []int64 `mapstructure:"chat_ids"`
}

// DiscordConfig holds Discord delivery settings
type DiscordConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
}

// WebhookConfig holds webhook delivery settings
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	JWTSecret     string   `mapstructure:"jwt_secret"`
	AdminPassword string   `mapstructure:"admin_password"`
	AllowOrigins  []string `mapstructure:"allow_origins"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	dataDir = expandPath(dataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.SetDefault("storage.badger_path", filepath.Join(dataDir, "badger"))
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "medtrack.db"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "medtrack.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (MEDTRACK_SERVER_PORT, MEDTRACK_SECURITY_JWT_SECRET, etc.)
	v.SetEnvPrefix("MEDTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.rate_rpm", 120)
	v.SetDefault("server.rate_burst", 30)

	// Notification defaults
	v.SetDefault("notifications.enabled", true)
	v.SetDefault("notifications.reschedule_cron", "5 0 * * *")

	// Channel defaults
	v.SetDefault("channels.webhook.timeout", 10)

	// Security defaults
	v.SetDefault("security.allow_origins", []string{"*"})
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "medtrack")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "medtrack")
}

// expandPath resolves a leading ~ to the user's home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// loadEnvOverrides resolves tokens from their conventional env var names in
// addition to the MEDTRACK_ prefixed ones
func loadEnvOverrides(cfg *Config) {
	if token := ResolveEnvWithAliases("MEDTRACK_CHANNELS_TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Channels.Telegram.BotToken = token
	}
	if token := ResolveEnvWithAliases("MEDTRACK_CHANNELS_DISCORD_TOKEN"); token != "" {
		cfg.Channels.Discord.Token = token
	}
	if secret := ResolveEnvWithAliases("MEDTRACK_SECURITY_JWT_SECRET"); secret != "" {
		cfg.Security.JWTSecret = secret
	}
	if password := ResolveEnvWithAliases("MEDTRACK_SECURITY_ADMIN_PASSWORD"); password != "" {
		cfg.Security.AdminPassword = password
	}

	cfg.Server.Address = GetEnvDefault("MEDTRACK_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("MEDTRACK_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	if cfg.Channels.Webhook.Enabled && cfg.Channels.Webhook.URL == "" {
		return fmt.Errorf("channels.webhook.url is required when the webhook channel is enabled")
	}

	// Generate JWT secret if not provided
	if cfg.Security.JWTSecret == "" {
		secret, err := generateSecret(32)
		if err != nil {
			return fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		cfg.Security.JWTSecret = secret
	}

	return nil
}

func generateSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WriteDefault writes a starter config file. Existing files are left alone.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	starter := map[string]any{
		"server": map[string]any{
			"address":       "0.0.0.0",
			"port":          8080,
			"read_timeout":  30,
			"write_timeout": 30,
			"rate_rpm":      120,
			"rate_burst":    30,
		},
		"notifications": map[string]any{
			"enabled":         true,
			"reschedule_cron": "5 0 * * *",
		},
		"channels": map[string]any{
			"telegram": map[string]any{
				"enabled":   false,
				"bot_token": "",
				"chat_ids":  []int64{},
			},
			"discord": map[string]any{
				"enabled":    false,
				"token":      "",
				"channel_id": "",
			},
			"webhook": map[string]any{
				"enabled": false,
				"url":     "",
				"timeout": 10,
			},
		},
		"security": map[string]any{
			"admin_password": "",
			"allow_origins":  []string{"*"},
		},
	}

	raw, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("failed to encode starter config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
