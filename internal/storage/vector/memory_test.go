package vector

import (
	"context"
	"testing"

	"adaptive-rag/internal/sparse"
)

func TestMemoryStore_Create_Add_Search(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	idx := &Index{Name: "idx1", Dimension: 2, Distance: "cosine"}
	if err := s.Create(ctx, idx); err != nil {
		t.Fatalf("Create: %v", err)
	}
	vecs := []*Vector{
		{ID: "v1", Values: []float64{1, 0}},
		{ID: "v2", Values: []float64{0, 1}},
	}
	if err := s.Add(ctx, "idx1", vecs); err != nil {
		t.Fatalf("Add: %v", err)
	}
	results, err := s.Search(ctx, "idx1", []float64{1, 0}, &SearchOptions{TopK: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) < 1 {
		t.Fatalf("Search: expected at least 1 result, got %d", len(results))
	}
	if results[0].ID != "v1" {
		t.Errorf("Search: expected v1 first (cosine sim), got %s", results[0].ID)
	}
}

func TestMemoryStore_Create_DuplicateIndex(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	idx := &Index{Name: "x", Dimension: 2}
	_ = s.Create(ctx, idx)
	err := s.Create(ctx, idx)
	if err == nil {
		t.Error("Create duplicate index should error")
	}
}

func TestMemoryStore_Add_IndexNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	err := s.Add(ctx, "missing", []*Vector{{ID: "v1", Values: []float64{1}}})
	if err == nil {
		t.Error("Add to missing index should error")
	}
}

func TestMemoryStore_Add_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Create(ctx, &Index{Name: "i", Dimension: 2})
	err := s.Add(ctx, "i", []*Vector{{ID: "v1", Values: []float64{1, 0, 0}}})
	if err == nil {
		t.Error("Add with wrong dimension should error")
	}
}

func TestMemoryStore_Search_IndexNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Search(ctx, "missing", []float64{1}, nil)
	if err == nil {
		t.Error("Search missing index should error")
	}
}

func TestMemoryStore_HybridSearch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := EnsureIndex(ctx, s, "hybrid", 2, "cosine"); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	// 稠密相同，稀疏不同：只有稀疏部分能区分两条记录
	err := s.Add(ctx, "hybrid", []*Vector{
		{ID: "a", Values: []float64{1, 0}, Sparse: sparse.Vector{Indices: []uint32{1}, Values: []float64{1}}},
		{ID: "b", Values: []float64{1, 0}, Sparse: sparse.Vector{Indices: []uint32{2}, Values: []float64{1}}},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	q := sparse.Vector{Indices: []uint32{2}, Values: []float64{1}}
	results, err := s.Search(ctx, "hybrid", []float64{1, 0}, &SearchOptions{TopK: 2, Sparse: q, Alpha: 0.5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].ID != "b" {
		t.Fatalf("expected b first, got %+v", results)
	}
	if results[0].Score != 1.0 || results[1].Score != 0.5 {
		t.Errorf("unexpected scores %v, %v", results[0].Score, results[1].Score)
	}

	// alpha=1 时只看稠密得分
	results, _ = s.Search(ctx, "hybrid", []float64{1, 0}, &SearchOptions{TopK: 2, Sparse: q, Alpha: 1})
	if results[0].Score != results[1].Score {
		t.Errorf("alpha=1 should ignore sparse scores")
	}
}

func TestMemoryStore_FilterAndCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Create(ctx, &Index{Name: "i", Dimension: 2})
	_ = s.Add(ctx, "i", []*Vector{
		{ID: "v1", Values: []float64{1, 0}, Metadata: map[string]string{"file_name": "a.pdf"}},
		{ID: "v2", Values: []float64{1, 0}, Metadata: map[string]string{"file_name": "b.txt"}},
	})
	n, err := s.Count(ctx, "i")
	if err != nil || n != 2 {
		t.Fatalf("Count: %d, %v", n, err)
	}
	results, _ := s.Search(ctx, "i", []float64{1, 0}, &SearchOptions{TopK: 5, Filter: map[string]string{"file_name": "b.txt"}})
	if len(results) != 1 || results[0].ID != "v2" {
		t.Errorf("filter: got %+v", results)
	}
	if err := s.DeleteIndex(ctx, "i"); err != nil {
		t.Fatalf("DeleteIndex: %v", err)
	}
	if _, err := s.Count(ctx, "i"); err == nil {
		t.Error("Count on deleted index should error")
	}
}
