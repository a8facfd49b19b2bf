package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryStore 内存缓存
type MemoryStore struct {
	items map[string]*cacheItem
	mu    sync.RWMutex
	now   func() time.Time
}

type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (i *cacheItem) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemoryStore 创建新的内存缓存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*cacheItem),
		now:   time.Now,
	}
}

// Set 设置缓存
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	item := &cacheItem{value: data}
	if expiration > 0 {
		item.expiration = s.now().Add(expiration)
	}

	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return nil
}

// Get 获取缓存
func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.RLock()
	item, exists := s.items[key]
	s.mu.RUnlock()

	if !exists {
		return ErrCacheMiss
	}
	if item.expired(s.now()) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur == item {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return ErrCacheMiss
	}

	if err := json.Unmarshal(item.value, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Delete 删除缓存
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Exists 检查缓存是否存在
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[key]
	if !exists {
		return false, nil
	}
	return !item.expired(s.now()), nil
}

// Clear 清除所有缓存
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*cacheItem)
	return nil
}

// Close 关闭缓存
func (s *MemoryStore) Close() error {
	return nil
}
