// Copyright 2024-2026 Aiku AI

// Command telegram-discord-bridge relays messages between paired Telegram
// groups and Discord channels. It mirrors text, replies, mentions and
// attachments in both directions, keeping per-pair correlation records in
// Redis so replies land on the matching message on the other side.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exzerolog"

	"github.com/denikryt/telegram-discord-bridge/pkg/bridge"
	"github.com/denikryt/telegram-discord-bridge/pkg/config"
	connectordiscord "github.com/denikryt/telegram-discord-bridge/pkg/connector/discord"
	connectortelegram "github.com/denikryt/telegram-discord-bridge/pkg/connector/telegram"
	"github.com/denikryt/telegram-discord-bridge/pkg/correlation"
	"github.com/denikryt/telegram-discord-bridge/pkg/media"
)

var (
	configPath   = flag.String("config", "config.yaml", "path to the config file")
	writeExample = flag.Bool("example-config", false, "print the example config and exit")
)

func main() {
	flag.Parse()
	if *writeExample {
		fmt.Print(config.ExampleConfig)
		return
	}
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Optional; secrets usually come from the environment in development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := setupLogging(cfg.Logging.Level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	store := correlation.NewRedisStore(rdb)

	pipeline, err := media.NewPipeline(cfg.Media.ScratchDir, ffmpegPath(cfg, log), log)
	if err != nil {
		return fmt.Errorf("failed to set up media pipeline: %w", err)
	}
	defer pipeline.Close()

	pairs := make([]bridge.ChannelPair, len(cfg.Channels))
	for i, m := range cfg.Channels {
		pairs[i] = bridge.ChannelPair{
			Discord:   bridge.MakeDiscordChannelID(m.DiscordChannelID),
			Telegram:  bridge.MakeTelegramChannelID(m.TelegramChatID),
			Partition: m.Partition,
		}
	}

	br := bridge.New(bridge.NewRouter(pairs), bridge.NewTracker(), store, pipeline, bridge.Options{
		AnnouncerRewrite:      cfg.Announcer.Enabled,
		RenderAnnouncerHeader: cfg.Announcer.RenderHeader,
		SendDelay:             time.Second,
	}, log)

	dc, err := connectordiscord.NewClient(cfg.Discord.Token, br, log)
	if err != nil {
		return err
	}
	tg, err := connectortelegram.NewClient(cfg.Telegram.Token, br, log)
	if err != nil {
		return err
	}
	br.RegisterPort(dc)
	br.RegisterPort(tg)

	if err := dc.Connect(ctx); err != nil {
		return err
	}
	defer dc.Disconnect()
	tg.StartPolling(ctx)

	log.Info().Int("channel_pairs", len(pairs)).Msg("Bridge running")
	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return nil
}

func setupLogging(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().Level(lvl)
	exzerolog.SetupDefaults(&log)
	return log, nil
}

func ffmpegPath(cfg *config.Config, log zerolog.Logger) string {
	if cfg.Media.FFmpegPath != "" {
		return cfg.Media.FFmpegPath
	}
	p, err := exec.LookPath("ffmpeg")
	if err != nil {
		log.Warn().Msg("ffmpeg not found on PATH, video transcoding disabled")
		return ""
	}
	return p
}
