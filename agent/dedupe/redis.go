package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore is the go-redis flavour of the seen-id store, for deployments
// running their own Redis.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(ctx context.Context, cfg Config) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Msg("connected to redis")
	return NewRedisStoreWithClient(client, cfg), nil
}

func NewRedisStoreWithClient(client redis.UniversalClient, cfg Config) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       defaultTTL,
	}
	if cfg.KeyPrefix != "" {
		s.keyPrefix = cfg.KeyPrefix
	}
	if cfg.TTL > 0 {
		s.ttl = cfg.TTL
	}
	return s
}

func (s *RedisStore) MarkSeen(ctx context.Context, activityID string) (bool, error) {
	key, err := buildKey(s.keyPrefix, activityID)
	if err != nil {
		return false, err
	}

	first, err := s.client.SetNX(ctx, key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return first, nil
}

func (s *RedisStore) Forget(ctx context.Context, activityID string) error {
	key, err := buildKey(s.keyPrefix, activityID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
