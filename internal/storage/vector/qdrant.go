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
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// Qdrant 命名向量
const (
	qdrantDenseVector  = "dense"
	qdrantSparseVector = "sparse"
	// payload 中保存原始 ID（Qdrant 点 ID 只接受 UUID 或整数）
	qdrantIDField = "_id"
)

// QdrantConfig Qdrant 连接配置（gRPC 端口，默认 6334）
type QdrantConfig struct {
	Addr   string
	APIKey string
}

// QdrantStore 基于 Qdrant gRPC 的混合向量存储：稠密与稀疏向量各自召回后以 RRF 融合
type QdrantStore struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
}

// NewQdrantStore 建立到 Qdrant 的 gRPC 连接（惰性连接，不做探活）
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6334"
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if cfg.APIKey != "" {
		key := cfg.APIKey
		opts = append(opts, grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
			ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
			return invoker(ctx, method, req, reply, cc, callOpts...)
		}))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s: %w", addr, err)
	}
	return &QdrantStore{
		conn:        conn,
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
	}, nil
}

// Create 创建 collection：dense 命名向量 + sparse 稀疏向量
func (s *QdrantStore) Create(ctx context.Context, idx *Index) error {
	_, err := s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: idx.Name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			qdrantDenseVector: {
				Size:     uint64(idx.Dimension),
				Distance: qdrantDistance(idx.Distance),
			},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			qdrantSparseVector: {},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", idx.Name, err)
	}
	return nil
}

// Add 写入点（wait=true）
func (s *QdrantStore) Add(ctx context.Context, indexName string, vectors []*Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(vectors))
	for _, v := range vectors {
		named := map[string]*qdrant.Vector{
			qdrantDenseVector: qdrant.NewVector(toFloat32(v.Values)...),
		}
		if !v.Sparse.Empty() {
			named[qdrantSparseVector] = qdrant.NewVectorSparse(v.Sparse.Indices, toFloat32(v.Sparse.Values))
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(pointUUID(v.ID)),
			Vectors: qdrant.NewVectorsMap(named),
			Payload: qdrant.NewValueMap(toPayload(v.ID, v.Metadata)),
		})
	}
	_, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: indexName,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search 稀疏向量为空时只做稠密检索，否则 dense/sparse 各召回 2*TopK 后 RRF 融合。
// Qdrant 的融合由服务端完成，Alpha 不生效；Threshold 作用于融合后的得分。
func (s *QdrantStore) Search(ctx context.Context, indexName string, query []float64, options *SearchOptions) ([]*SearchResult, error) {
	if options == nil {
		options = &SearchOptions{TopK: 10}
	}
	limit := uint64(options.TopK)
	if limit == 0 {
		limit = 10
	}
	req := &qdrant.QueryPoints{
		CollectionName: indexName,
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         toFilter(options.Filter),
	}
	if options.Sparse.Empty() {
		req.Query = qdrant.NewQueryDense(toFloat32(query))
		req.Using = qdrant.PtrOf(qdrantDenseVector)
	} else {
		prefetch := limit * 2
		req.Prefetch = []*qdrant.PrefetchQuery{
			{
				Query: qdrant.NewQueryDense(toFloat32(query)),
				Using: qdrant.PtrOf(qdrantDenseVector),
				Limit: qdrant.PtrOf(prefetch),
			},
			{
				Query: qdrant.NewQuerySparse(options.Sparse.Indices, toFloat32(options.Sparse.Values)),
				Using: qdrant.PtrOf(qdrantSparseVector),
				Limit: qdrant.PtrOf(prefetch),
			},
		}
		req.Query = qdrant.NewQueryFusion(qdrant.Fusion_RRF)
	}

	resp, err := s.points.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}
	results := make([]*SearchResult, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		score := float64(p.GetScore())
		if score < options.Threshold {
			continue
		}
		id, meta := fromPayload(p.GetPayload())
		if id == "" {
			id = p.GetId().GetUuid()
		}
		results = append(results, &SearchResult{ID: id, Score: score, Metadata: meta})
	}
	return results, nil
}

// Get 根据 ID 获取点（仅返回元数据）
func (s *QdrantStore) Get(ctx context.Context, indexName string, id string) (*Vector, error) {
	resp, err := s.points.Get(ctx, &qdrant.GetPoints{
		CollectionName: indexName,
		Ids:            []*qdrant.PointId{qdrant.NewID(pointUUID(id))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant get failed: %w", err)
	}
	if len(resp.GetResult()) == 0 {
		return nil, fmt.Errorf("vector with ID %s not found", id)
	}
	_, meta := fromPayload(resp.GetResult()[0].GetPayload())
	return &Vector{ID: id, Metadata: meta}, nil
}

// Delete 删除点
func (s *QdrantStore) Delete(ctx context.Context, indexName string, id string) error {
	_, err := s.points.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: indexName,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewID(pointUUID(id))),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

// Count 精确计数
func (s *QdrantStore) Count(ctx context.Context, indexName string) (int, error) {
	resp, err := s.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: indexName,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// DeleteIndex 删除 collection
func (s *QdrantStore) DeleteIndex(ctx context.Context, indexName string) error {
	_, err := s.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: indexName})
	if err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", indexName, err)
	}
	return nil
}

// ListIndexes 列出 collection
func (s *QdrantStore) ListIndexes(ctx context.Context) ([]string, error) {
	resp, err := s.collections.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	names := make([]string, 0, len(resp.GetCollections()))
	for _, c := range resp.GetCollections() {
		names = append(names, c.GetName())
	}
	sort.Strings(names)
	return names, nil
}

// Close 关闭 gRPC 连接
func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

func qdrantDistance(d string) qdrant.Distance {
	switch d {
	case "euclidean":
		return qdrant.Distance_Euclid
	case "manhattan":
		return qdrant.Distance_Manhattan
	case "dot":
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// pointUUID 非 UUID 的 ID 用 SHA1 命名空间 UUID 稳定映射
func pointUUID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func toPayload(id string, meta map[string]string) map[string]any {
	payload := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		payload[k] = v
	}
	payload[qdrantIDField] = id
	return payload
}

func fromPayload(payload map[string]*qdrant.Value) (string, map[string]string) {
	meta := make(map[string]string, len(payload))
	var id string
	for k, v := range payload {
		if k == qdrantIDField {
			id = v.GetStringValue()
			continue
		}
		meta[k] = v.GetStringValue()
	}
	return id, meta
}

func toFilter(filter map[string]string) *qdrant.Filter {
	if len(filter) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	must := make([]*qdrant.Condition, 0, len(keys))
	for _, k := range keys {
		must = append(must, qdrant.NewMatch(k, filter[k]))
	}
	return &qdrant.Filter{Must: must}
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

var _ Store = (*QdrantStore)(nil)
