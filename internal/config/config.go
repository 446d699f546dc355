package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config keeps runtime settings for the server.
type Config struct {
	ListenAddr     string        `toml:"listen_addr"`
	DatabaseURL    string        `toml:"database_url"`
	AuthSecret     string        `toml:"auth_secret"`
	Timezone       string        `toml:"timezone"`
	SweepInterval  time.Duration `toml:"-"`
	SweepMinutes   int           `toml:"sweep_minutes"`
	DigestTime     string        `toml:"digest_time"`
	TelegramToken  string        `toml:"telegram_token"`
	TelegramChatID int64         `toml:"telegram_chat_id"`
}

// Load reads configuration from an optional TOML file, then overrides
// from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:   ":3000",
		DatabaseURL:  "todo_tracker.db",
		Timezone:     "UTC",
		SweepMinutes: 15,
		DigestTime:   "08:00",
	}

	path := strings.TrimSpace(os.Getenv("TODO_TRACKER_CONFIG"))
	if path == "" {
		path = "todo-tracker.toml"
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.AuthSecret == "" {
		return cfg, fmt.Errorf("AUTH_SECRET is required")
	}
	if cfg.SweepMinutes > 0 {
		cfg.SweepInterval = time.Duration(cfg.SweepMinutes) * time.Minute
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("AUTH_SECRET")); v != "" {
		cfg.AuthSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("TIMEZONE")); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(os.Getenv("SWEEP_INTERVAL_MINUTES")); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes >= 0 {
			cfg.SweepMinutes = minutes
		}
	}
	if v := strings.TrimSpace(os.Getenv("DIGEST_TIME")); v != "" {
		cfg.DigestTime = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); v != "" {
		cfg.TelegramToken = v
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}
}

// Location resolves the configured calendar timezone. Every reset
// boundary in the engine is a midnight in this location.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
