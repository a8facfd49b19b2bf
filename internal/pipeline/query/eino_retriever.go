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

package query

import (
	"context"
	"fmt"

	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"adaptive-rag/internal/pipeline/common"
	"adaptive-rag/internal/sparse"
	"adaptive-rag/internal/storage/vector"
)

// HybridRetriever 基于 vector.Store 实现的 Eino retriever.Retriever：
// 查询同时编码为稠密向量与 BM25 稀疏向量后做混合检索
type HybridRetriever struct {
	vectorStore      vector.Store
	encoder          *sparse.BM25
	defaultIndex     string
	defaultTopK      int
	defaultThreshold float64
	alpha            float64
}

// HybridRetrieverConfig HybridRetriever 构造参数
type HybridRetrieverConfig struct {
	VectorStore vector.Store
	// Encoder 为 nil 时只做稠密检索
	Encoder          *sparse.BM25
	DefaultIndex     string
	DefaultTopK      int
	DefaultThreshold float64
	Alpha            float64
}

// NewHybridRetriever 创建混合检索器
func NewHybridRetriever(cfg *HybridRetrieverConfig) (*HybridRetriever, error) {
	if cfg == nil || cfg.VectorStore == nil {
		return nil, fmt.Errorf("HybridRetriever requires VectorStore")
	}
	idx := cfg.DefaultIndex
	if idx == "" {
		idx = "default"
	}
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = 5
	}
	return &HybridRetriever{
		vectorStore:      cfg.VectorStore,
		encoder:          cfg.Encoder,
		defaultIndex:     idx,
		defaultTopK:      topK,
		defaultThreshold: cfg.DefaultThreshold,
		alpha:            cfg.Alpha,
	}, nil
}

// Retrieve 实现 github.com/cloudwego/eino/components/retriever.Retriever。
// 编码器未拟合或查询词均不在语料中时返回包装了 sparse.ErrEmptySparseVector 的错误。
func (h *HybridRetriever) Retrieve(ctx context.Context, query string, opts ...einoretriever.Option) ([]*schema.Document, error) {
	options := einoretriever.GetCommonOptions(nil, opts...)
	if options == nil {
		options = &einoretriever.Options{}
	}
	indexName := h.defaultIndex
	if options.Index != nil && *options.Index != "" {
		indexName = *options.Index
	}
	topK := h.defaultTopK
	if options.TopK != nil && *options.TopK > 0 {
		topK = *options.TopK
	}
	threshold := h.defaultThreshold
	if options.ScoreThreshold != nil {
		threshold = *options.ScoreThreshold
	}

	var sparseQuery sparse.Vector
	if h.encoder != nil {
		sv, err := h.encoder.EncodeQuery(query)
		if err != nil {
			return nil, fmt.Errorf("encode sparse query: %w", err)
		}
		sparseQuery = sv
	}

	if options.Embedding == nil {
		return nil, fmt.Errorf("Retriever requires WithEmbedding 选项以对 query 做向量化")
	}
	vecs, err := options.Embedding.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("retriever embedding: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding returned empty")
	}

	results, err := h.vectorStore.Search(ctx, indexName, vecs[0], &vector.SearchOptions{
		TopK:      topK,
		Threshold: threshold,
		Sparse:    sparseQuery,
		Alpha:     h.alpha,
	})
	if err != nil {
		return nil, common.NewPipelineError("retriever", "vector store search", err)
	}

	docs := make([]*schema.Document, 0, len(results))
	for _, sr := range results {
		meta := make(map[string]any, len(sr.Metadata))
		for k, v := range sr.Metadata {
			if k == common.MetaContent {
				continue
			}
			meta[k] = v
		}
		d := &schema.Document{
			ID:       sr.ID,
			Content:  sr.Metadata[common.MetaContent],
			MetaData: meta,
		}
		d.WithScore(sr.Score)
		docs = append(docs, d)
	}
	return docs, nil
}

var _ einoretriever.Retriever = (*HybridRetriever)(nil)
