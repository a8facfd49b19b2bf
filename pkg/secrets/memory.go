// Copyright 2026 fanjia1024
// In-memory secret store (for development and tests)

package secrets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore 创建内存 secret store
func NewMemoryStore() Store {
	return &memoryStore{
		secrets: make(map[string]string),
	}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.secrets[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return value, nil
}

func (m *memoryStore) Set(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	m.secrets[key] = value
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.secrets, key)
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.secrets {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
