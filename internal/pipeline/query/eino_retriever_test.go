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
	"errors"
	"testing"

	einoembed "github.com/cloudwego/eino/components/embedding"
	einoretriever "github.com/cloudwego/eino/components/retriever"

	"adaptive-rag/internal/sparse"
	"adaptive-rag/internal/storage/vector"
)

// mockEinoEmbedder 测试用：固定返回 4 维向量
type mockEinoEmbedder struct{}

func (m *mockEinoEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...einoembed.Option) ([][]float64, error) {
	vec := []float64{1, 0, 0, 0}
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = vec
	}
	return out, nil
}

func newStore(t *testing.T, encoder *sparse.BM25) vector.Store {
	t.Helper()
	ctx := context.Background()
	store := vector.NewMemoryStore()
	if err := vector.EnsureIndex(ctx, store, "default", 4, "cosine"); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	texts := map[string]string{
		"chunk1": "self attention in the transformer encoder",
		"chunk2": "convolution kernels for image recognition",
	}
	var vecs []*vector.Vector
	for id, text := range texts {
		vecs = append(vecs, &vector.Vector{
			ID:       id,
			Values:   []float64{1, 0, 0, 0},
			Sparse:   encoder.EncodeDocument(text),
			Metadata: map[string]string{"content": text, "file_name": id + ".txt"},
		})
	}
	if err := store.Add(ctx, "default", vecs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return store
}

func TestHybridRetriever_Retrieve(t *testing.T) {
	encoder := sparse.NewBM25(0, 0)
	encoder.Fit([]string{"self attention in the transformer encoder", "convolution kernels for image recognition"})
	ret, err := NewHybridRetriever(&HybridRetrieverConfig{
		VectorStore: newStore(t, encoder), Encoder: encoder, DefaultIndex: "default", DefaultTopK: 5,
	})
	if err != nil {
		t.Fatalf("NewHybridRetriever: %v", err)
	}

	docs, err := ret.Retrieve(context.Background(), "transformer attention", einoretriever.WithEmbedding(&mockEinoEmbedder{}))
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	// 稠密得分相同，由稀疏部分决定排序
	if docs[0].ID != "chunk1" || docs[0].Content != "self attention in the transformer encoder" {
		t.Errorf("unexpected top doc: id=%s content=%s", docs[0].ID, docs[0].Content)
	}
	if _, ok := docs[0].MetaData["content"]; ok {
		t.Error("content should not be duplicated into metadata")
	}
	if docs[0].MetaData["file_name"] != "chunk1.txt" {
		t.Errorf("metadata not propagated: %v", docs[0].MetaData)
	}
}

func TestHybridRetriever_EmptySparseVector(t *testing.T) {
	encoder := sparse.NewBM25(0, 0)
	ret, _ := NewHybridRetriever(&HybridRetrieverConfig{VectorStore: vector.NewMemoryStore(), Encoder: encoder})

	_, err := ret.Retrieve(context.Background(), "anything", einoretriever.WithEmbedding(&mockEinoEmbedder{}))
	if !errors.Is(err, sparse.ErrEmptySparseVector) {
		t.Fatalf("expected ErrEmptySparseVector, got %v", err)
	}
}

func TestHybridRetriever_RequiresEmbedding(t *testing.T) {
	encoder := sparse.NewBM25(0, 0)
	encoder.Fit([]string{"transformer"})
	ret, _ := NewHybridRetriever(&HybridRetrieverConfig{VectorStore: vector.NewMemoryStore(), Encoder: encoder})
	if _, err := ret.Retrieve(context.Background(), "transformer"); err == nil {
		t.Error("expected error without embedding option")
	}
}
