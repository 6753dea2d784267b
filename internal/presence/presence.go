// Package presence mirrors the relay's identified connections into
// Redis as per-user sets. The mirror is operational bookkeeping only:
// the relay never reads it back and no presence protocol is exposed to
// clients. Failures are logged and otherwise ignored.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skillspace/skillspace/config"
)

const keyTTL = 24 * time.Hour

func userKey(userID int) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

// RedisTracker records identify/close events in Redis sets keyed by user ID.
type RedisTracker struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisTracker connects to Redis and verifies the connection.
func NewRedisTracker(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*RedisTracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisTracker{client: client, log: log}, nil
}

func (t *RedisTracker) Identified(ctx context.Context, userID int, clientID string) {
	key := userKey(userID)
	if err := t.client.SAdd(ctx, key, clientID).Err(); err != nil {
		t.log.Warn("presence add failed", zap.String("key", key), zap.Error(err))
		return
	}
	t.client.Expire(ctx, key, keyTTL)
}

func (t *RedisTracker) Departed(ctx context.Context, userID int, clientID string) {
	key := userKey(userID)
	if err := t.client.SRem(ctx, key, clientID).Err(); err != nil {
		t.log.Warn("presence remove failed", zap.String("key", key), zap.Error(err))
	}
}

func (t *RedisTracker) Close() error {
	return t.client.Close()
}
