// Copyright 2024-2026 Aiku AI

// Package correlation stores bidirectional message-id mappings between the
// two platforms. Records are append-only and partition-scoped: one logical
// partition per bridged channel pair, looked up by either side's id.
package correlation

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is reported when no correlation record exists for an id.
// The relay degrades the reply to a plain send.
var ErrNotFound = errors.New("correlation not found")

// Store is the bridge's view of the correlation service. Implementations
// must scope every operation to the given partition.
type Store interface {
	// Put records a message pair. Inserts are idempotent; repeated puts for
	// the same id are most-recent-wins on lookup.
	Put(ctx context.Context, partition, discordID, telegramID string) error
	// ToTelegram resolves a Discord message id to its Telegram counterpart.
	ToTelegram(ctx context.Context, partition, discordID string) (string, error)
	// ToDiscord resolves a Telegram message id to its Discord counterpart.
	ToDiscord(ctx context.Context, partition, telegramID string) (string, error)
}

// RedisStore keeps correlation records in two Redis hashes per partition,
// one per lookup direction. Hashes are created implicitly on first write,
// which gives the lazy partition creation the bridge expects.
type RedisStore struct {
	rdb *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func discordToTelegramKey(partition string) string {
	return "corr:" + partition + ":dc2tg"
}

func telegramToDiscordKey(partition string) string {
	return "corr:" + partition + ":tg2dc"
}

func (s *RedisStore) Put(ctx context.Context, partition, discordID, telegramID string) error {
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, discordToTelegramKey(partition), discordID, telegramID)
		pipe.HSet(ctx, telegramToDiscordKey(partition), telegramID, discordID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store correlation in partition %s: %w", partition, err)
	}
	return nil
}

func (s *RedisStore) ToTelegram(ctx context.Context, partition, discordID string) (string, error) {
	return s.lookup(ctx, discordToTelegramKey(partition), discordID)
}

func (s *RedisStore) ToDiscord(ctx context.Context, partition, telegramID string) (string, error) {
	return s.lookup(ctx, telegramToDiscordKey(partition), telegramID)
}

func (s *RedisStore) lookup(ctx context.Context, key, id string) (string, error) {
	val, err := s.rdb.HGet(ctx, key, id).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s in %s", ErrNotFound, id, key)
	}
	if err != nil {
		return "", fmt.Errorf("correlation lookup failed for %s in %s: %w", id, key, err)
	}
	return val, nil
}
