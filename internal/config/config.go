package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Archive ArchiveConfig
	App     AppConfig
}

type ServerConfig struct {
	Port string
}

type ArchiveConfig struct {
	DBPath           string
	SnapshotInterval time.Duration
	SnapshotKeep     int
}

type AppConfig struct {
	LogLevel string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Archive: ArchiveConfig{
			DBPath:           getEnv("SKETCHROOM_DB_PATH", "./data/sketchroom.db"),
			SnapshotInterval: getEnvAsDuration("SNAPSHOT_INTERVAL", 5*time.Minute),
			SnapshotKeep:     getEnvAsInt("SNAPSHOT_KEEP", 20),
		},
		App: AppConfig{
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Archive.DBPath == "" {
		return fmt.Errorf("SKETCHROOM_DB_PATH is required")
	}
	if c.Archive.SnapshotInterval <= 0 {
		return fmt.Errorf("SNAPSHOT_INTERVAL must be positive")
	}
	if c.Archive.SnapshotKeep <= 0 {
		return fmt.Errorf("SNAPSHOT_KEEP must be positive")
	}
	return nil
}

// SlogLevel maps the configured level name onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.App.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
