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
	"fmt"

	einoembed "github.com/cloudwego/eino/components/embedding"
)

// DefaultDimension 本地哈希向量默认维度
const DefaultDimension = 384

// Embedder 向量化接口
type Embedder interface {
	// Embed 对文本做向量化，返回与 texts 一一对应的向量
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	// Model 模型名称
	Model() string
	// Dimension 向量维度
	Dimension() int
}

// Config 向量化配置
type Config struct {
	Provider  string // openai | hash
	Model     string
	APIKey    string
	BaseURL   string
	Dimension int
}

// NewEmbedder 按 Provider 创建向量化器；openai 未配置 API Key 时退回本地哈希向量
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	case "openai":
		if cfg.APIKey == "" {
			return NewHashEmbedder(cfg.Dimension), nil
		}
		return NewOpenAIAdapter(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// EinoAdapter 把 Embedder 适配为 eino embedding.Embedder，供 eino indexer/retriever 使用
type EinoAdapter struct {
	embedder Embedder
}

// NewEinoAdapter 创建适配器
func NewEinoAdapter(e Embedder) *EinoAdapter {
	return &EinoAdapter{embedder: e}
}

// EmbedStrings 实现 github.com/cloudwego/eino/components/embedding.Embedder
func (a *EinoAdapter) EmbedStrings(ctx context.Context, texts []string, opts ...einoembed.Option) ([][]float64, error) {
	return a.embedder.Embed(ctx, texts)
}

var _ einoembed.Embedder = (*EinoAdapter)(nil)
