package vector

import (
	"fmt"

	"adaptive-rag/pkg/config"
)

// NewStore 根据配置创建向量存储：memory（默认）或 qdrant。
// redis 类型由 einoext 直接构造 eino-ext 组件，不经过 Store。
func NewStore(cfg config.VectorConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory", "redis":
		return NewMemoryStore(), nil
	case "qdrant":
		return NewQdrantStore(QdrantConfig{Addr: cfg.Addr, APIKey: cfg.APIKey})
	default:
		return nil, fmt.Errorf("不支持的向量存储类型: %s", cfg.Type)
	}
}
