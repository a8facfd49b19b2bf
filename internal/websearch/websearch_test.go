package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-rag/internal/storage/cache"
)

func TestTavily_Search(t *testing.T) {
	var got tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"q","results":[
			{"title":"A","url":"https://a","content":"alpha","score":0.9},
			{"title":"B","url":"https://b","content":"beta","score":0.8},
			{"title":"C","url":"https://c","content":"gamma","score":0.7}]}`))
	}))
	defer srv.Close()

	c, err := NewTavily("tvly-key", srv.URL+"/")
	require.NoError(t, err)
	results, err := c.Search(context.Background(), "latest news", "advanced", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].Title)
	assert.Equal(t, "https://b", results[1].URL)

	assert.Equal(t, "latest news", got.Query)
	assert.Equal(t, "advanced", got.SearchDepth)
	assert.Equal(t, 2, got.MaxResults)
	assert.Equal(t, "tvly-key", got.APIKey)
}

func TestTavily_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer srv.Close()

	c, _ := NewTavily("bad", srv.URL)
	_, err := c.Search(context.Background(), "q", "basic", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTavily_Validation(t *testing.T) {
	_, err := NewTavily("", "")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	c, err := NewTavily("k", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTavilyURL, c.baseURL)
	_, err = c.Search(context.Background(), "  ", "basic", 5)
	assert.Error(t, err)
}

type countingSearcher struct {
	calls   int
	results []Result
	err     error
}

func (s *countingSearcher) Search(ctx context.Context, query, depth string, maxResults int) ([]Result, error) {
	s.calls++
	return s.results, s.err
}

func TestCached_HitAfterMiss(t *testing.T) {
	next := &countingSearcher{results: []Result{{Title: "T", URL: "https://t", Content: "c"}}}
	s := NewCached(next, cache.NewMemoryStore(), time.Minute, nil)
	ctx := context.Background()

	first, err := s.Search(ctx, "q", "advanced", 5)
	require.NoError(t, err)
	second, err := s.Search(ctx, "q", "advanced", 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)

	// 参数不同则键不同
	_, _ = s.Search(ctx, "q", "basic", 5)
	assert.Equal(t, 2, next.calls)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	next := &countingSearcher{err: errors.New("boom")}
	s := NewCached(next, cache.NewMemoryStore(), time.Minute, nil)
	ctx := context.Background()

	_, err := s.Search(ctx, "q", "advanced", 5)
	require.Error(t, err)
	_, err = s.Search(ctx, "q", "advanced", 5)
	require.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestNewCached_DisabledWithoutTTL(t *testing.T) {
	next := &countingSearcher{}
	assert.Same(t, next, NewCached(next, cache.NewMemoryStore(), 0, nil))
	assert.Same(t, next, NewCached(next, nil, time.Minute, nil))
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("q", "advanced", 5)
	assert.Equal(t, a, CacheKey("q", "advanced", 5))
	assert.NotEqual(t, a, CacheKey("q", "advanced", 3))
	assert.Len(t, a, len(cacheKeyPrefix)+64)
}
