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

package metadata

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore 内存元数据存储
type MemoryStore struct {
	docs map[string]*Document
	mu   sync.RWMutex
}

// NewMemoryStore 创建新的内存元数据存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*Document),
	}
}

// Upsert 写入文档记录
func (s *MemoryStore) Upsert(ctx context.Context, doc *Document) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("document id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	stored := *doc
	stored.CreatedAt = now
	if old, exists := s.docs[doc.ID]; exists {
		stored.CreatedAt = old.CreatedAt
	}
	stored.UpdatedAt = now
	s.docs[doc.ID] = &stored

	doc.CreatedAt = stored.CreatedAt
	doc.UpdatedAt = stored.UpdatedAt
	return nil
}

// Get 根据 ID 获取文档记录
func (s *MemoryStore) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.docs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *doc
	return &cp, nil
}

// Delete 根据 ID 删除文档记录
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.docs, id)
	return nil
}

// List 列出文档记录
func (s *MemoryStore) List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*Document, error) {
	s.mu.RLock()
	results := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if filter.match(doc) {
			cp := *doc
			results = append(results, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt != results[j].CreatedAt {
			return results[i].CreatedAt < results[j].CreatedAt
		}
		return results[i].ID < results[j].ID
	})

	// 应用分页
	if pagination != nil {
		start := pagination.Offset
		if start >= len(results) {
			return []*Document{}, nil
		}
		if start < 0 {
			start = 0
		}
		end := len(results)
		if pagination.Limit > 0 && start+pagination.Limit < end {
			end = start + pagination.Limit
		}
		results = results[start:end]
	}
	return results, nil
}

// Count 统计文档数量
func (s *MemoryStore) Count(ctx context.Context, filter *Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, doc := range s.docs {
		if filter.match(doc) {
			count++
		}
	}
	return count, nil
}

// Clear 删除全部记录
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]*Document)
	return nil
}

// Close 关闭存储
func (s *MemoryStore) Close() error {
	return nil
}
