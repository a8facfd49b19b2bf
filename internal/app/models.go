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

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"adaptive-rag/internal/model/embedding"
	"adaptive-rag/internal/model/llm"
	"adaptive-rag/internal/storage/cache"
	"adaptive-rag/internal/websearch"
	"adaptive-rag/pkg/config"
	"adaptive-rag/pkg/log"
	"adaptive-rag/pkg/secrets"
)

// NewLLMClientFromConfig 根据 model.defaults.llm 创建 LLM 客户端（如 "openai.gpt_4o_mini"）。
// 未配置 defaults 或 API Key 时返回 nil, nil，路由按无 LLM 降级运行。
func NewLLMClientFromConfig(ctx context.Context, cfg *config.Config, store secrets.Store) (llm.Client, error) {
	if cfg == nil || cfg.Model.Defaults.LLM == "" {
		return nil, nil
	}
	provider, modelKey, err := parseDefaultKey(cfg.Model.Defaults.LLM)
	if err != nil {
		return nil, err
	}
	pc, ok := cfg.Model.LLM.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("LLM provider %q 未配置", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, fmt.Errorf("LLM model %q 未在 provider %q 中配置", modelKey, provider)
	}
	apiKey, err := secrets.Resolve(ctx, store, secretKey(provider), pc.APIKey)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, nil
	}
	client, err := llm.NewClient(ctx, cfg.Model.Backend, mi.Name, apiKey, pc.BaseURL)
	if err != nil {
		return nil, err
	}
	if limits, ok := cfg.RateLimits.LLM[provider]; ok {
		limiter := llm.NewLLMRateLimiter(map[string]llm.LLMLimitConfig{
			provider: {
				TokensPerMinute:   limits.TokensPerMinute,
				RequestsPerMinute: limits.RequestsPerMinute,
				MaxConcurrent:     limits.MaxConcurrent,
			},
		}, nil)
		return llm.NewRateLimitedClient(client, limiter), nil
	}
	return client, nil
}

// NewEmbedderFromConfig 根据 model.defaults.embedding 创建向量化器；未配置时使用本地哈希向量
func NewEmbedderFromConfig(ctx context.Context, cfg *config.Config, store secrets.Store) (embedding.Embedder, error) {
	dimension := embedding.DefaultDimension
	if cfg != nil && cfg.Storage.Vector.Dimension > 0 {
		dimension = cfg.Storage.Vector.Dimension
	}
	if cfg == nil || cfg.Model.Defaults.Embedding == "" {
		return embedding.NewHashEmbedder(dimension), nil
	}
	provider, modelKey, err := parseDefaultKey(cfg.Model.Defaults.Embedding)
	if err != nil {
		return nil, err
	}
	pc, ok := cfg.Model.Embedding.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("Embedding provider %q 未配置", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, fmt.Errorf("Embedding model %q 未在 provider %q 中配置", modelKey, provider)
	}
	if mi.Dimension > 0 {
		dimension = mi.Dimension
	}
	apiKey, err := secrets.Resolve(ctx, store, secretKey(provider), pc.APIKey)
	if err != nil {
		return nil, err
	}
	return embedding.NewEmbedder(embedding.Config{
		Provider:  provider,
		Model:     mi.Name,
		APIKey:    apiKey,
		BaseURL:   pc.BaseURL,
		Dimension: dimension,
	})
}

// NewWebSearcherFromConfig 创建 Tavily 搜索客户端；未配置 API Key 时返回 nil, nil（Web 搜索关闭）。
// search.cache_ttl 有效时在外层包一层结果缓存。
func NewWebSearcherFromConfig(ctx context.Context, cfg *config.Config, store secrets.Store, c cache.Store, logger *log.Logger) (websearch.Searcher, error) {
	if cfg == nil {
		return nil, nil
	}
	if p := cfg.Search.Provider; p != "" && p != "tavily" {
		return nil, fmt.Errorf("不支持的搜索 provider: %s", p)
	}
	apiKey, err := secrets.Resolve(ctx, store, "TAVILY_API_KEY", cfg.Search.APIKey)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, nil
	}
	tavily, err := websearch.NewTavily(apiKey, cfg.Search.BaseURL)
	if err != nil {
		return nil, err
	}
	return websearch.NewCached(tavily, c, parseDuration(cfg.Search.CacheTTL, 0), logger), nil
}

// secretKey provider 对应的 secret 名，如 openai -> OPENAI_API_KEY
func secretKey(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

func parseDefaultKey(key string) (provider, modelKey string, err error) {
	provider, modelKey, ok := config.ParseDefaultKey(key)
	if !ok {
		return "", "", fmt.Errorf("default key 格式应为 provider.model_key，如 openai.gpt_4o_mini，当前: %q", key)
	}
	return provider, modelKey, nil
}

// parseDuration 解析时长字符串，无效或空时返回 defaultVal
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
