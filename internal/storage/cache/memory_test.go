package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-rag/pkg/config"
)

func TestMemoryStore_Set_Get_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Set(ctx, "k1", "v1", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	var v string
	if err := s.Get(ctx, "k1", &v); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "v1" {
		t.Errorf("Get: got %q", v)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assert.ErrorIs(t, s.Get(ctx, "k1", &v), ErrCacheMiss)
	// 重复删除不报错
	assert.NoError(t, s.Delete(ctx, "k1"))
}

func TestMemoryStore_StructValue(t *testing.T) {
	type result struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "r", []result{{Title: "a", URL: "http://a"}}, time.Minute))
	var got []result
	require.NoError(t, s.Get(ctx, "r", &got))
	require.Len(t, got, 1)
	assert.Equal(t, "http://a", got[0].URL)
}

func TestMemoryStore_Expiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	ok, _ := s.Exists(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = s.Exists(ctx, "k")
	assert.False(t, ok)
	var v string
	assert.ErrorIs(t, s.Get(ctx, "k", &v), ErrCacheMiss)
}

func TestMemoryStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ok, err := s.Exists(ctx, "k")
	if err != nil || ok {
		t.Errorf("Exists missing: ok=%v err=%v", ok, err)
	}
	_ = s.Set(ctx, "k", "v", 0)
	ok, err = s.Exists(ctx, "k")
	if err != nil || !ok {
		t.Errorf("Exists present: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, "k1", "v1", 0)
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	var v string
	if err := s.Get(ctx, "k1", &v); err == nil {
		t.Error("Get after Clear should error")
	}
}

func TestNewCache(t *testing.T) {
	c, err := NewCache(config.CacheConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, c)

	_, err = NewCache(config.CacheConfig{Type: "redis"})
	assert.Error(t, err)

	_, err = NewCache(config.CacheConfig{Type: "memcached"})
	assert.Error(t, err)
}

// 需要本地 Redis：REDIS_ADDR=localhost:6379
func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(config.CacheConfig{Addr: addr}, "adaptive-rag:test:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Clear(ctx))

	require.NoError(t, s.Set(ctx, "k", map[string]int{"n": 1}, time.Minute))
	var got map[string]int
	require.NoError(t, s.Get(ctx, "k", &got))
	assert.Equal(t, 1, got["n"])

	require.NoError(t, s.Clear(ctx))
	assert.ErrorIs(t, s.Get(ctx, "k", &got), ErrCacheMiss)
}
