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

package vector

import (
	"context"

	"adaptive-rag/internal/sparse"
	apperrors "adaptive-rag/pkg/errors"
)

// ErrIndexNotFound 索引不存在
var ErrIndexNotFound = apperrors.Wrap(apperrors.ErrNotFound, "index")

// Store 混合向量存储接口：每条记录同时携带稠密向量与 BM25 稀疏向量
type Store interface {
	// Create 创建向量索引
	Create(ctx context.Context, index *Index) error
	// Add 添加向量（同 ID 覆盖）
	Add(ctx context.Context, indexName string, vectors []*Vector) error
	// Search 搜索向量；options.Sparse 非空时做稠密+稀疏混合检索
	Search(ctx context.Context, indexName string, query []float64, options *SearchOptions) ([]*SearchResult, error)
	// Get 根据 ID 获取向量
	Get(ctx context.Context, indexName string, id string) (*Vector, error)
	// Delete 删除向量
	Delete(ctx context.Context, indexName string, id string) error
	// Count 索引内向量条数
	Count(ctx context.Context, indexName string) (int, error)
	// DeleteIndex 删除索引
	DeleteIndex(ctx context.Context, indexName string) error
	// ListIndexes 列出所有索引
	ListIndexes(ctx context.Context) ([]string, error)
	// Close 关闭存储连接
	Close() error
}

// Index 向量索引
type Index struct {
	Name      string            `json:"name"`      // 索引名称
	Dimension int               `json:"dimension"` // 稠密向量维度
	Distance  string            `json:"distance"`  // 距离度量方式
	Metadata  map[string]string `json:"metadata"`  // 索引元数据
}

// Vector 向量数据
type Vector struct {
	ID       string            `json:"id"`               // 向量唯一标识
	Values   []float64         `json:"values"`           // 稠密向量
	Sparse   sparse.Vector     `json:"sparse,omitempty"` // BM25 稀疏向量
	Metadata map[string]string `json:"metadata"`         // 向量元数据（含 content）
}

// SearchOptions 搜索选项
type SearchOptions struct {
	TopK           int               `json:"top_k"`           // 返回前 K 个结果
	Filter         map[string]string `json:"filter"`          // 元数据过滤
	Threshold      float64           `json:"threshold"`       // 相似度阈值
	IncludeVectors bool              `json:"include_vectors"` // 是否包含向量值
	Sparse         sparse.Vector     `json:"sparse"`          // 查询稀疏向量，空则只用稠密向量
	// Alpha 混合权重：score = Alpha*dense + (1-Alpha)*sparse；<=0 或 >1 时为 0.5
	Alpha float64 `json:"alpha"`
}

// SearchResult 搜索结果
type SearchResult struct {
	ID       string            `json:"id"`               // 向量唯一标识
	Score    float64           `json:"score"`            // 相似度得分
	Metadata map[string]string `json:"metadata"`         // 向量元数据
	Values   []float64         `json:"values,omitempty"` // 向量值（可选）
}

func (o *SearchOptions) alpha() float64 {
	if o.Alpha <= 0 || o.Alpha > 1 {
		return 0.5
	}
	return o.Alpha
}
