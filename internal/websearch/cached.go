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

package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"adaptive-rag/internal/storage/cache"
	"adaptive-rag/pkg/log"
	"adaptive-rag/pkg/metrics"
)

const cacheKeyPrefix = "websearch:"

// Cached 以 cache.Store 缓存搜索结果；缓存读写失败只记日志，不影响搜索
type Cached struct {
	next   Searcher
	store  cache.Store
	ttl    time.Duration
	logger *log.Logger
}

// NewCached 包装 next；ttl<=0 时直接返回 next
func NewCached(next Searcher, store cache.Store, ttl time.Duration, logger *log.Logger) Searcher {
	if store == nil || ttl <= 0 {
		return next
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Cached{next: next, store: store, ttl: ttl, logger: logger}
}

// CacheKey 由 query、depth、maxResults 计算缓存键
func CacheKey(query, depth string, maxResults int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", query, depth, maxResults)))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Search 先查缓存，未命中再调用 next 并回填
func (c *Cached) Search(ctx context.Context, query, depth string, maxResults int) ([]Result, error) {
	key := CacheKey(query, depth, maxResults)

	var cached []Result
	err := c.store.Get(ctx, key, &cached)
	if err == nil {
		metrics.WebSearchCacheTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.WebSearchCacheTotal.WithLabelValues("miss").Inc()
	if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("读取搜索缓存失败", "error", err)
	}

	results, err := c.next.Search(ctx, query, depth, maxResults)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, results, c.ttl); err != nil {
		c.logger.Warn("写入搜索缓存失败", "error", err)
	}
	return results, nil
}
