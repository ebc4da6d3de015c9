package cache

import (
	"context"
	"time"

	"github.com/ak/pos/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

// RedisAttemptStore counts failed PIN attempts in Redis with a sliding lock
// window; the key expires when the window elapses.
type RedisAttemptStore struct {
	client *redis.Client
}

func NewRedisAttemptStore(cfg config.RedisConfig) *RedisAttemptStore {
	return &RedisAttemptStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (s *RedisAttemptStore) Fails(ctx context.Context, key string) (int, time.Duration, error) {
	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, 0, err
	}

	count, err := getCmd.Int()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}
	return count, ttl, nil
}

func (s *RedisAttemptStore) RecordFail(ctx context.Context, key string, window time.Duration) (int, error) {
	pipe := s.client.TxPipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(incrCmd.Val()), nil
}

func (s *RedisAttemptStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisAttemptStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisAttemptStore) Close() error {
	return s.client.Close()
}
