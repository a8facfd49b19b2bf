package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"adaptive-rag/pkg/config"
)

// DefaultKeyPrefix Redis 缓存键前缀
const DefaultKeyPrefix = "adaptive-rag:cache:"

// RedisStore 基于 Redis 的缓存；所有键带前缀，Clear 只删除本前缀下的键
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 创建 Redis 缓存，prefix 为空时使用 DefaultKeyPrefix
func NewRedisStore(cfg config.CacheConfig, prefix string) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis 缓存需要配置 addr")
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: client, prefix: prefix}, nil
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

// Set 实现 Store
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if expiration < 0 {
		expiration = 0
	}
	return s.client.Set(ctx, s.key(key), data, expiration).Err()
}

// Get 实现 Store
func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Delete 实现 Store
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Exists 实现 Store
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear 以 SCAN 遍历前缀键并删除
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Close 实现 Store
func (s *RedisStore) Close() error {
	return s.client.Close()
}
