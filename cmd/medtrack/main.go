package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"github.com/medtrack-app/medtrack/internal/api"
	"github.com/medtrack-app/medtrack/internal/channels/discord"
	"github.com/medtrack-app/medtrack/internal/channels/telegram"
	"github.com/medtrack-app/medtrack/internal/channels/webhook"
	"github.com/medtrack-app/medtrack/internal/config"
	"github.com/medtrack-app/medtrack/internal/cron"
	"github.com/medtrack-app/medtrack/internal/history"
	"github.com/medtrack-app/medtrack/internal/medication"
	"github.com/medtrack-app/medtrack/internal/notify"
	"github.com/medtrack-app/medtrack/internal/storage"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			runInit(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("medtrack version %s\n", version)
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	flag.Parse()

	if err := config.LoadEnvFiles(); err != nil {
		log.Printf("Warning: failed to load .env files: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting medtrack", zap.String("version", version))

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Medication collection, mirrored to Badger
	badgerStore, err := storage.Open(cfg.Storage.BadgerPath, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer badgerStore.Close()

	store := medication.NewStore(badgerStore, logger)
	if err := store.Load(); err != nil {
		logger.Fatal("Failed to load medications", zap.Error(err))
	}

	// Intake history in SQLite. The tracker works without it.
	historyStore, err := openHistory(cfg, logger)
	if err != nil {
		logger.Warn("Intake history disabled", zap.Error(err))
		historyStore = nil
	}

	// Notification pipeline
	notifier := notify.NewLocalNotifier(logger)
	defer notifier.Stop()

	attachSinks(cfg, notifier, logger)

	manager := notify.NewManager(notifier, logger, cfg.Notifications.Enabled)
	store.SetReconciler(manager)
	manager.ReconcileAll(store.List())

	// Daily reschedule so reminders roll over to the new day
	cronRunner := cron.NewRunner(logger)
	spec := cfg.Notifications.RescheduleCron
	if spec == "" {
		spec = cron.DefaultRescheduleSpec
	}
	if err := cronRunner.AddJob("reschedule", spec, func() {
		manager.ReconcileAll(store.List())
	}); err != nil {
		logger.Error("Failed to register reschedule job", zap.Error(err))
	} else if err := cronRunner.Start(); err != nil {
		logger.Error("Failed to start cron runner", zap.Error(err))
	}

	// HTTP API and WebSocket feed
	server := api.New(cfg, store, historyStore, manager, logger)
	notifier.AddSink(server.NotificationFeed())

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("address", cfg.Server.Address),
		zap.Int("port", cfg.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)),
	)

	// Hot-reload notification permission on config edits
	if err := config.Watch(*configPath, *dataDir, logger, func(fresh *config.Config) {
		manager.SetPermission(fresh.Notifications.Enabled)
		manager.ReconcileAll(store.List())
	}); err != nil {
		logger.Warn("Config watch unavailable", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	cronRunner.Stop()

	if err := server.Shutdown(); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
}

func openHistory(cfg *config.Config, logger *zap.Logger) (*history.Store, error) {
	path := cfg.Storage.SQLitePath
	if path == "" {
		path = filepath.Join(cfg.Storage.DataDir, "medtrack.db")
	}

	sqliteDB, err := sql.Open("sqlite", path+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-64000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return history.NewStore(db, logger)
}

func attachSinks(cfg *config.Config, notifier *notify.LocalNotifier, logger *zap.Logger) {
	if cfg.Channels.Telegram.Enabled {
		bot, err := telegram.NewBot(telegram.Config{
			Enabled: true,
			Token:   cfg.Channels.Telegram.BotToken,
			ChatIDs: cfg.Channels.Telegram.ChatIDs,
		}, logger)
		if err != nil {
			logger.Error("Failed to create Telegram sink", zap.Error(err))
		} else {
			notifier.AddSink(bot)
		}
	}

	if cfg.Channels.Discord.Enabled {
		bot, err := discord.NewBot(discord.Config{
			Enabled:   true,
			Token:     cfg.Channels.Discord.Token,
			ChannelID: cfg.Channels.Discord.ChannelID,
		}, logger)
		if err != nil {
			logger.Error("Failed to create Discord sink", zap.Error(err))
		} else {
			notifier.AddSink(bot)
		}
	}

	if cfg.Channels.Webhook.Enabled {
		notifier.AddSink(webhook.NewSink(webhook.Config{
			Enabled: true,
			URL:     cfg.Channels.Webhook.URL,
			Timeout: time.Duration(cfg.Channels.Webhook.Timeout) * time.Second,
		}, logger))
	}
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to config file to create")
	data := fs.String("data", "", "Path to data directory")
	fs.Parse(args)

	dir := *data
	if dir == "" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "medtrack")
		} else if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share", "medtrack")
		} else {
			dir = "./data"
		}
	}

	path := *cfgPath
	if path == "" {
		path = filepath.Join(dir, "medtrack.yaml")
	}

	if err := config.WriteDefault(path); err != nil {
		fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote starter config to %s\n", path)
}

func printHelp() {
	fmt.Print(`medtrack - self-hosted medication tracker

Usage:
  medtrack [flags]          Run the server
  medtrack init [flags]     Write a starter config file
  medtrack version          Print version

Flags:
  -config string   Path to config file
  -data string     Path to data directory
`)
}
