package config

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Watch reloads the config file whenever it changes on disk and hands the
// fresh Config to onChange. Used to toggle notification permission and
// delivery channels without a restart. Returns without watching when no
// config file exists.
func Watch(configPath, dataDir string, logger *zap.Logger, onChange func(*Config)) error {
	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}
	if configPath == "" {
		configPath = filepath.Join(expandPath(dataDir), "medtrack.yaml")
	}

	if _, err := os.Stat(configPath); err != nil {
		logger.Info("No config file to watch", zap.String("path", configPath))
		return nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed, reloading", zap.String("file", e.Name))

		cfg, err := Load(configPath, dataDir)
		if err != nil {
			logger.Error("Failed to reload config, keeping previous", zap.Error(err))
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()

	logger.Info("Watching config file", zap.String("path", configPath))
	return nil
}
