package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-rag/internal/model/embedding"
	"adaptive-rag/internal/model/llm"
	"adaptive-rag/internal/rag"
	"adaptive-rag/internal/router"
	"adaptive-rag/internal/storage/cache"
	"adaptive-rag/internal/websearch"
	"adaptive-rag/pkg/config"
	"adaptive-rag/pkg/secrets"
)

func testConfig() *config.Config {
	return &config.Config{
		Model: config.ModelConfig{
			Backend: "resty",
			LLM: config.LLMConfig{Providers: map[string]config.ProviderConfig{
				"openai": {Models: map[string]config.ModelInfo{"mini": {Name: "gpt-4o-mini"}}},
			}},
			Defaults: config.DefaultsConfig{LLM: "openai.mini"},
		},
		Search: config.SearchConfig{Provider: "tavily", BaseURL: "http://localhost:1"},
		Storage: config.StorageConfig{
			Vector: config.VectorConfig{Dimension: 64},
		},
	}
}

func TestNewLLMClientFromConfig_NoKey(t *testing.T) {
	c, err := NewLLMClientFromConfig(context.Background(), testConfig(), secrets.NewMemoryStore())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewLLMClientFromConfig_KeyFromSecretStore(t *testing.T) {
	store := secrets.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "OPENAI_API_KEY", "sk-test"))

	c, err := NewLLMClientFromConfig(context.Background(), testConfig(), store)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "gpt-4o-mini", c.Model())
}

func TestNewLLMClientFromConfig_RateLimited(t *testing.T) {
	cfg := testConfig()
	p := cfg.Model.LLM.Providers["openai"]
	p.APIKey = "sk-test"
	cfg.Model.LLM.Providers["openai"] = p
	cfg.RateLimits.LLM = map[string]config.LLMRateLimitConfig{"openai": {RequestsPerMinute: 60, TokensPerMinute: 10000, MaxConcurrent: 2}}

	c, err := NewLLMClientFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	_, ok := c.(*llm.RateLimitedClient)
	assert.True(t, ok)
}

func TestNewLLMClientFromConfig_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Model.Defaults.LLM = "openai"
	_, err := NewLLMClientFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg.Model.Defaults.LLM = "anthropic.claude"
	_, err = NewLLMClientFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)

	cfg.Model.Defaults.LLM = "openai.missing"
	_, err = NewLLMClientFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewEmbedderFromConfig_DefaultsToHash(t *testing.T) {
	e, err := NewEmbedderFromConfig(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	_, ok := e.(*embedding.HashEmbedder)
	assert.True(t, ok)
	assert.Equal(t, 64, e.Dimension())
}

func TestNewWebSearcherFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()

	s, err := NewWebSearcherFromConfig(ctx, cfg, secrets.NewMemoryStore(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	cfg.Search.APIKey = "tvly-test"
	s, err = NewWebSearcherFromConfig(ctx, cfg, nil, cache.NewMemoryStore(), nil)
	require.NoError(t, err)
	_, ok := s.(*websearch.Tavily)
	assert.True(t, ok, "no cache ttl keeps the plain client")

	cfg.Search.CacheTTL = "5m"
	s, err = NewWebSearcherFromConfig(ctx, cfg, nil, cache.NewMemoryStore(), nil)
	require.NoError(t, err)
	_, ok = s.(*websearch.Cached)
	assert.True(t, ok)

	cfg.Search.Provider = "bing"
	_, err = NewWebSearcherFromConfig(ctx, cfg, nil, nil, nil)
	assert.Error(t, err)
}

func TestToDocumentAnswer(t *testing.T) {
	got := ToDocumentAnswer(&rag.Answer{
		Answer:  "42",
		Sources: []rag.Source{{FileName: "a.md", FileType: ".md", ChunkID: "a_0", ContentPreview: "p"}},
	})
	assert.Equal(t, "42", got.Answer)
	assert.Equal(t, []router.SourceRef{{FileName: "a.md", FileType: ".md", ChunkID: "a_0", ContentPreview: "p"}}, got.Sources)

	empty := ToDocumentAnswer(&rag.Answer{Answer: "none"})
	assert.NotNil(t, empty.Sources)
	assert.Empty(t, empty.Sources)
}

func TestAdapters_NilDisablesCapability(t *testing.T) {
	assert.Nil(t, NewDocumentIndexAdapter(nil))
	assert.Nil(t, NewWebSearcherAdapter(nil))
}

func TestBootstrap_Defaults(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "error"
	b, err := NewBootstrap(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, b.MetadataStore)
	assert.NotNil(t, b.VectorStore)
	assert.NotNil(t, b.Cache)
	assert.NotNil(t, b.Secrets)
	assert.NoError(t, b.Close())
}
