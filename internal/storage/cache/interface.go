package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss 键不存在或已过期
var ErrCacheMiss = errors.New("cache miss")

// Store 键值缓存，值以 JSON 序列化存储
type Store interface {
	// Set 设置缓存，expiration<=0 表示永不过期
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get 获取缓存并反序列化到 dest；未命中返回 ErrCacheMiss
	Get(ctx context.Context, key string, dest interface{}) error
	// Delete 删除缓存，键不存在时不报错
	Delete(ctx context.Context, key string) error
	// Exists 检查缓存是否存在
	Exists(ctx context.Context, key string) (bool, error)
	// Clear 清除所有缓存
	Clear(ctx context.Context) error
	// Close 关闭缓存连接
	Close() error
}
