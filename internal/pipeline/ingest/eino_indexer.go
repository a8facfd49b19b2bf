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

package ingest

import (
	"context"
	"fmt"

	einoindexer "github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"

	"adaptive-rag/internal/pipeline/common"
	"adaptive-rag/internal/sparse"
	"adaptive-rag/internal/storage/vector"
)

// HybridIndexer 基于 vector.Store 实现的 Eino indexer.Indexer：
// 稠密向量来自 WithEmbedding 选项，稀疏向量由 BM25 编码器生成
type HybridIndexer struct {
	vectorStore       vector.Store
	encoder           *sparse.BM25
	defaultCollection string
	batchSize         int
}

// HybridIndexerConfig HybridIndexer 构造参数
type HybridIndexerConfig struct {
	VectorStore       vector.Store
	Encoder           *sparse.BM25 // 为 nil 时只写稠密向量
	DefaultCollection string
	BatchSize         int
}

// NewHybridIndexer 创建混合索引写入器
func NewHybridIndexer(cfg *HybridIndexerConfig) (*HybridIndexer, error) {
	if cfg == nil || cfg.VectorStore == nil {
		return nil, fmt.Errorf("HybridIndexer 需要 VectorStore")
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	collection := cfg.DefaultCollection
	if collection == "" {
		collection = "default"
	}
	return &HybridIndexer{
		vectorStore:       cfg.VectorStore,
		encoder:           cfg.Encoder,
		defaultCollection: collection,
		batchSize:         batchSize,
	}, nil
}

// Store 实现 github.com/cloudwego/eino/components/indexer.Indexer。
// 调用方应先用同一批文本 Fit 编码器，使文档侧长度归一化包含新文档。
func (h *HybridIndexer) Store(ctx context.Context, docs []*schema.Document, opts ...einoindexer.Option) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	options := einoindexer.GetCommonOptions(nil, opts...)
	indexName := h.defaultCollection
	if options != nil && len(options.SubIndexes) > 0 && options.SubIndexes[0] != "" {
		indexName = options.SubIndexes[0]
	}

	ids := make([]string, 0, len(docs))
	for start := 0; start < len(docs); start += h.batchSize {
		end := start + h.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := compact(docs[start:end])
		if len(batch) == 0 {
			continue
		}
		if err := h.embedMissing(ctx, batch, options); err != nil {
			return nil, err
		}

		vecs := make([]*vector.Vector, 0, len(batch))
		for _, doc := range batch {
			meta := stringMeta(doc.MetaData)
			meta[common.MetaContent] = doc.Content
			v := &vector.Vector{
				ID:       doc.ID,
				Values:   doc.DenseVector(),
				Metadata: meta,
			}
			if h.encoder != nil {
				v.Sparse = h.encoder.EncodeDocument(doc.Content)
			}
			vecs = append(vecs, v)
			ids = append(ids, doc.ID)
		}
		if err := h.vectorStore.Add(ctx, indexName, vecs); err != nil {
			return nil, common.NewPipelineError("indexer", "vector store add", err)
		}
	}
	return ids, nil
}

// embedMissing 对没有稠密向量的文档批量向量化
func (h *HybridIndexer) embedMissing(ctx context.Context, batch []*schema.Document, options *einoindexer.Options) error {
	var pending []*schema.Document
	var texts []string
	for _, doc := range batch {
		if len(doc.DenseVector()) == 0 {
			pending = append(pending, doc)
			texts = append(texts, doc.Content)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if options == nil || options.Embedding == nil {
		return common.NewPipelineError("indexer", fmt.Sprintf("doc %s has no vector and no Embedding option", pending[0].ID), common.ErrIndexingFailed)
	}
	vecs, err := options.Embedding.EmbedStrings(ctx, texts)
	if err != nil {
		return common.NewPipelineError("indexer", "embedding", err)
	}
	if len(vecs) != len(pending) {
		return common.NewPipelineError("indexer", fmt.Sprintf("embedding returned %d vectors for %d docs", len(vecs), len(pending)), common.ErrIndexingFailed)
	}
	for i, doc := range pending {
		doc.WithDenseVector(vecs[i])
	}
	return nil
}

func compact(docs []*schema.Document) []*schema.Document {
	out := make([]*schema.Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// stringMeta 将 map[string]any 转为 map[string]string
func stringMeta(meta map[string]any) map[string]string {
	out := make(map[string]string, len(meta)+1)
	for k := range meta {
		out[k] = common.StringMeta(meta, k, "")
	}
	return out
}

var _ einoindexer.Indexer = (*HybridIndexer)(nil)
