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

package einoext

import (
	"context"
	"fmt"

	redisindexer "github.com/cloudwego/eino-ext/components/indexer/redis"
	redisretriever "github.com/cloudwego/eino-ext/components/retriever/redis"
	einoembed "github.com/cloudwego/eino/components/embedding"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/redis/go-redis/v9"

	"adaptive-rag/internal/pipeline/ingest"
	"adaptive-rag/internal/pipeline/query"
	"adaptive-rag/internal/sparse"
	"adaptive-rag/internal/storage/vector"
	"adaptive-rag/pkg/config"
)

const (
	defaultBatchSize  = 100
	defaultTopK       = 5
	defaultCollection = "hybrid-rag"
)

// NewIndexer 根据 VectorConfig 创建 Eino Indexer：
// memory/qdrant 走混合索引（vector.Store + BM25），redis 用 eino-ext（仅稠密向量）
func NewIndexer(ctx context.Context, cfg config.VectorConfig, vectorStore vector.Store, encoder *sparse.BM25, embedder einoembed.Embedder) (einoindexer.Indexer, error) {
	t := cfg.Type
	if t == "" {
		t = "memory"
	}
	switch t {
	case "memory", "qdrant":
		if vectorStore == nil {
			return nil, fmt.Errorf("vector type is %s but VectorStore is nil", t)
		}
		return ingest.NewHybridIndexer(&ingest.HybridIndexerConfig{
			VectorStore:       vectorStore,
			Encoder:           encoder,
			DefaultCollection: Collection(cfg),
			BatchSize:         defaultBatchSize,
		})
	case "redis":
		opts, err := RedisOptionsFromVectorConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("redis options: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		idx, err := redisindexer.NewIndexer(ctx, &redisindexer.IndexerConfig{
			Client:    client,
			KeyPrefix: RedisKeyPrefix(cfg),
			BatchSize: defaultBatchSize,
			Embedding: embedder,
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis indexer: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported vector type: %s", t)
	}
}

// NewRetriever 根据 VectorConfig 创建 Eino Retriever，后端选择同 NewIndexer
func NewRetriever(ctx context.Context, cfg config.VectorConfig, vectorStore vector.Store, encoder *sparse.BM25, embedder einoembed.Embedder) (einoretriever.Retriever, error) {
	t := cfg.Type
	if t == "" {
		t = "memory"
	}
	switch t {
	case "memory", "qdrant":
		if vectorStore == nil {
			return nil, fmt.Errorf("vector type is %s but VectorStore is nil", t)
		}
		return query.NewHybridRetriever(&query.HybridRetrieverConfig{
			VectorStore:  vectorStore,
			Encoder:      encoder,
			DefaultIndex: Collection(cfg),
			DefaultTopK:  defaultTopK,
			Alpha:        cfg.Alpha,
		})
	case "redis":
		opts, err := RedisOptionsFromVectorConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("redis options: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		ret, err := redisretriever.NewRetriever(ctx, &redisretriever.RetrieverConfig{
			Client:    client,
			Index:     Collection(cfg),
			TopK:      defaultTopK,
			Embedding: embedder,
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis retriever: %w", err)
		}
		return ret, nil
	default:
		return nil, fmt.Errorf("unsupported vector type: %s", t)
	}
}

// Collection 配置的集合名，为空时为 hybrid-rag
func Collection(cfg config.VectorConfig) string {
	if cfg.Collection == "" {
		return defaultCollection
	}
	return cfg.Collection
}
