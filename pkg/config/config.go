// Copyright 2024-2026 Aiku AI

// Package config loads the bridge configuration from YAML with environment
// variable overrides for the secrets.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// Config is the root bridge configuration.
type Config struct {
	Telegram  TelegramConfig   `yaml:"telegram"`
	Discord   DiscordConfig    `yaml:"discord"`
	Redis     RedisConfig      `yaml:"redis"`
	Announcer AnnouncerConfig  `yaml:"announcer"`
	Media     MediaConfig      `yaml:"media"`
	Logging   LoggingConfig    `yaml:"logging"`
	Channels  []ChannelMapping `yaml:"channels"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
}

type DiscordConfig struct {
	Token string `yaml:"token"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AnnouncerConfig controls rewriting of posts made by the announcer relay
// account into per-user formatted messages.
type AnnouncerConfig struct {
	Enabled      bool `yaml:"enabled"`
	RenderHeader bool `yaml:"render_header"`
}

type MediaConfig struct {
	// FFmpegPath overrides the ffmpeg binary used for video transcoding.
	// Empty means look it up on PATH.
	FFmpegPath string `yaml:"ffmpeg_path"`
	// ScratchDir is where downloaded attachments are staged. Empty means the
	// system temp directory.
	ScratchDir string `yaml:"scratch_dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ChannelMapping links one Discord channel to one Telegram group. Partition
// names the correlation namespace shared by the pair.
type ChannelMapping struct {
	DiscordChannelID string `yaml:"discord_channel_id"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
	Partition        string `yaml:"partition"`
}

// Load reads the config file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is not set")
	}
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token is not set")
	}
	if len(c.Channels) == 0 {
		return fmt.Errorf("no channel mappings configured")
	}
	seen := make(map[string]struct{}, len(c.Channels))
	for i, m := range c.Channels {
		if m.DiscordChannelID == "" {
			return fmt.Errorf("channel mapping %d: discord_channel_id is not set", i)
		}
		if m.TelegramChatID == 0 {
			return fmt.Errorf("channel mapping %d: telegram_chat_id is not set", i)
		}
		if m.Partition == "" {
			return fmt.Errorf("channel mapping %d: partition is not set", i)
		}
		if _, dup := seen[m.Partition]; dup {
			return fmt.Errorf("channel mapping %d: duplicate partition %q", i, m.Partition)
		}
		seen[m.Partition] = struct{}{}
	}
	return nil
}
