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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-rag/pkg/config"
)

func TestMemoryStore_Upsert_Get(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	doc := &Document{ID: "doc1", Name: "a.pdf", Type: ".pdf", Status: StatusIndexed, Chunks: 3}
	if err := s.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := s.Get(ctx, "doc1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "a.pdf" || got.Chunks != 3 || got.CreatedAt == 0 {
		t.Errorf("Get: %+v", got)
	}
}

func TestMemoryStore_Upsert_KeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Upsert(ctx, &Document{ID: "d1", Chunks: 1}))
	first, _ := s.Get(ctx, "d1")

	require.NoError(t, s.Upsert(ctx, &Document{ID: "d1", Chunks: 7}))
	got, err := s.Get(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Chunks)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)

	n, _ := s.Count(ctx, nil)
	assert.Equal(t, int64(1), n)
}

func TestMemoryStore_Upsert_RequiresID(t *testing.T) {
	s := NewMemoryStore()
	assert.Error(t, s.Upsert(context.Background(), &Document{Name: "x"}))
	assert.Error(t, s.Upsert(context.Background(), nil))
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Upsert(ctx, &Document{ID: "d1"})
	require.NoError(t, s.Delete(ctx, "d1"))
	_, err := s.Get(ctx, "d1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "d1"), ErrNotFound)
}

func TestMemoryStore_List_FilterAndPagination(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Upsert(ctx, &Document{ID: "a", Name: "Guide.pdf", Type: ".pdf", Status: StatusIndexed})
	_ = s.Upsert(ctx, &Document{ID: "b", Name: "notes.txt", Type: ".txt", Status: StatusIndexed})
	_ = s.Upsert(ctx, &Document{ID: "c", Name: "broken.pdf", Type: ".pdf", Status: StatusFailed})

	all, err := s.List(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)

	pdfs, _ := s.List(ctx, &Filter{Types: []string{".pdf"}}, nil)
	assert.Len(t, pdfs, 2)

	indexedPDF, _ := s.List(ctx, &Filter{Types: []string{".pdf"}, Status: []string{StatusIndexed}}, nil)
	require.Len(t, indexedPDF, 1)
	assert.Equal(t, "a", indexedPDF[0].ID)

	search, _ := s.List(ctx, &Filter{Search: "guide"}, nil)
	require.Len(t, search, 1)
	assert.Equal(t, "Guide.pdf", search[0].Name)

	page, _ := s.List(ctx, nil, &Pagination{Offset: 1, Limit: 1})
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	empty, _ := s.List(ctx, nil, &Pagination{Offset: 10, Limit: 5})
	assert.Empty(t, empty)

	n, _ := s.Count(ctx, &Filter{Status: []string{StatusFailed}})
	assert.Equal(t, int64(1), n)
}

func TestMemoryStore_List_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Upsert(ctx, &Document{ID: "a", Chunks: 1})
	list, _ := s.List(ctx, nil, nil)
	list[0].Chunks = 99
	got, _ := s.Get(ctx, "a")
	assert.Equal(t, 1, got.Chunks)
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Upsert(ctx, &Document{ID: "a"})
	_ = s.Upsert(ctx, &Document{ID: "b"})
	require.NoError(t, s.Clear(ctx))
	n, _ := s.Count(ctx, nil)
	assert.Zero(t, n)
}

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(nil)
	assert.Empty(t, where)
	assert.Nil(t, args)

	where, args = buildWhere(&Filter{Types: []string{".pdf"}, Search: "doc"})
	assert.Equal(t, " WHERE type = ANY($1) AND (name ILIKE $2 OR path ILIKE $2)", where)
	require.Len(t, args, 2)
	assert.Equal(t, "%doc%", args[1])
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, config.MetadataConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore(ctx, config.MetadataConfig{Type: "postgres"})
	assert.Error(t, err)

	_, err = NewStore(ctx, config.MetadataConfig{Type: "mongo"})
	assert.Error(t, err)
}
