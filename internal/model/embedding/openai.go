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
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpenAIAdapter OpenAI Embeddings API 适配器（兼容 OpenAI 协议的服务均可）
type OpenAIAdapter struct {
	client    *resty.Client
	model     string
	dimension int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIAdapter 创建 OpenAI Embedding 适配器；dimension 通过 dimensions 参数请求降维
func NewOpenAIAdapter(apiKey, model, baseURL string, dimension int) *OpenAIAdapter {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(60 * time.Second)
	return &OpenAIAdapter{client: client, model: model, dimension: dimension}
}

// Model 实现 Embedder
func (a *OpenAIAdapter) Model() string {
	return a.model
}

// Dimension 实现 Embedder
func (a *OpenAIAdapter) Dimension() int {
	return a.dimension
}

// Embed 实现 Embedder
func (a *OpenAIAdapter) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var result embeddingResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{Model: a.model, Input: texts, Dimensions: a.dimension}).
		SetResult(&result).
		SetError(&result).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode(), msg)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(result.Data), len(texts))
	}
	sort.Slice(result.Data, func(i, j int) bool { return result.Data[i].Index < result.Data[j].Index })
	out := make([][]float64, len(result.Data))
	for i, d := range result.Data {
		if len(d.Embedding) != a.dimension {
			return nil, fmt.Errorf("embedding dimension %d does not match configured %d", len(d.Embedding), a.dimension)
		}
		out[i] = d.Embedding
	}
	return out, nil
}
