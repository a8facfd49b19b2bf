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

package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"adaptive-rag/internal/sparse"
)

// HashEmbedder 本地特征哈希向量：词与相邻词对哈希到固定维度后做 L2 归一化。
// 不依赖外部服务，用于离线运行与测试。
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder dimension<=0 时为 384
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashEmbedder{dimension: dimension}
}

// Model 实现 Embedder
func (h *HashEmbedder) Model() string {
	return "hash"
}

// Dimension 实现 Embedder
func (h *HashEmbedder) Dimension() int {
	return h.dimension
}

// Embed 实现 Embedder
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, h.dimension)
	tokens := sparse.Tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// add 用 hash 的最高位决定符号，降低碰撞带来的偏差
func (h *HashEmbedder) add(vec []float64, feature string, weight float64) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dimension))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
