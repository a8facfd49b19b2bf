// Copyright 2026 fanjia1024
// Secret management abstraction

package secrets

import (
	"context"
	"errors"
	"fmt"
)

// ErrSecretNotFound secret 不存在
var ErrSecretNotFound = errors.New("secret not found")

// Store Secret 存储接口
type Store interface {
	// Get 获取 secret 值
	Get(ctx context.Context, key string) (string, error)

	// Set 设置 secret 值
	Set(ctx context.Context, key string, value string) error

	// Delete 删除 secret
	Delete(ctx context.Context, key string) error

	// List 列出所有 secret keys
	List(ctx context.Context, prefix string) ([]string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string            `mapstructure:"provider"` // vault | env | memory
	Config   map[string]string `mapstructure:"config"`   // vault: address, token, path_prefix
}

// NewStore 创建 Secret Store
func NewStore(config Config) (Store, error) {
	switch config.Provider {
	case "memory":
		return NewMemoryStore(), nil
	case "", "env":
		return NewEnvStore(), nil
	case "vault":
		return NewVaultStore(VaultConfig{
			Address:    config.Config["address"],
			Token:      config.Config["token"],
			PathPrefix: config.Config["path_prefix"],
		})
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", config.Provider)
	}
}

// Resolve 依次返回 explicit（非空时）或 store 中 key 对应的值；都没有时返回空串
//
// 用于 API Key 这类"配置里没写就去 secret store 找"的场景，key 缺失不是错误，
// 其它读取错误会返回给调用方。
func Resolve(ctx context.Context, store Store, key, explicit string) (string, error) {
	if explicit != "" || store == nil {
		return explicit, nil
	}
	v, err := store.Get(ctx, key)
	if errors.Is(err, ErrSecretNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve secret %s: %w", key, err)
	}
	return v, nil
}
