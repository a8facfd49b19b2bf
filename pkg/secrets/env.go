// Copyright 2026 fanjia1024
// Environment variable based secret store

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type envStore struct{}

// NewEnvStore 创建环境变量 secret store
func NewEnvStore() Store {
	return &envStore{}
}

func (e *envStore) Get(ctx context.Context, key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s", ErrSecretNotFound, key)
	}
	return value, nil
}

func (e *envStore) Set(ctx context.Context, key string, value string) error {
	return os.Setenv(key, value)
}

func (e *envStore) Delete(ctx context.Context, key string) error {
	return os.Unsetenv(key)
}

func (e *envStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, prefix) {
			keys = append(keys, name)
		}
	}
	return keys, nil
}
