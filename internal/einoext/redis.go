// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package einoext

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"adaptive-rag/pkg/config"
)

// RedisKeyPrefix redis 后端切片键前缀
func RedisKeyPrefix(cfg config.VectorConfig) string {
	return Collection(cfg) + ":"
}

func withRedis(ctx context.Context, cfg config.VectorConfig, fn func(*redis.Client) error) error {
	opts, err := RedisOptionsFromVectorConfig(cfg)
	if err != nil {
		return fmt.Errorf("redis options: %w", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()
	return fn(client)
}

// CountRedisKeys 统计 redis 后端已写入的切片数
func CountRedisKeys(ctx context.Context, cfg config.VectorConfig) (int, error) {
	n := 0
	err := withRedis(ctx, cfg, func(c *redis.Client) error {
		iter := c.Scan(ctx, 0, RedisKeyPrefix(cfg)+"*", 500).Iterator()
		for iter.Next(ctx) {
			n++
		}
		return iter.Err()
	})
	return n, err
}

// ClearRedis 删除 redis 后端全部切片（保留 FT 索引定义）
func ClearRedis(ctx context.Context, cfg config.VectorConfig) error {
	return withRedis(ctx, cfg, func(c *redis.Client) error {
		iter := c.Scan(ctx, 0, RedisKeyPrefix(cfg)+"*", 500).Iterator()
		var batch []string
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) >= 500 {
				if err := c.Del(ctx, batch...).Err(); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			return c.Del(ctx, batch...).Err()
		}
		return nil
	})
}
