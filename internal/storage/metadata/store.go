package metadata

import (
	"context"
	"fmt"
	"strings"

	"adaptive-rag/pkg/config"
)

// NewStore 根据配置创建元数据存储
func NewStore(ctx context.Context, cfg config.MetadataConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN, cfg.PoolSize)
	default:
		return nil, fmt.Errorf("不支持的元数据存储类型: %s", cfg.Type)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
