package cache

import (
	"fmt"

	"adaptive-rag/pkg/config"
)

// NewCache 根据配置创建缓存
func NewCache(cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg, "")
	default:
		return nil, fmt.Errorf("不支持的缓存类型: %s", cfg.Type)
	}
}
