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

package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	apperrors "adaptive-rag/pkg/errors"
)

// DefaultTavilyURL Tavily API 地址
const DefaultTavilyURL = "https://api.tavily.com"

// ErrMissingAPIKey 未配置搜索 API key
var ErrMissingAPIKey = apperrors.Wrap(apperrors.ErrUnavailable, "websearch: api key is required")

// Result 单条搜索结果
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Searcher Web 搜索接口
type Searcher interface {
	Search(ctx context.Context, query, depth string, maxResults int) ([]Result, error)
}

// Tavily Tavily 搜索客户端（POST /search）
type Tavily struct {
	apiKey  string
	baseURL string
	client  *resty.Client
}

// NewTavily 创建 Tavily 客户端；baseURL 为空时用 DefaultTavilyURL
func NewTavily(apiKey, baseURL string) (*Tavily, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultTavilyURL
	}
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	return &Tavily{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}, nil
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type tavilyResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// Search 执行一次搜索
func (t *Tavily) Search(ctx context.Context, query, depth string, maxResults int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidArgument, "websearch: query is empty")
	}
	response, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+t.apiKey).
		SetBody(&tavilyRequest{
			APIKey:      t.apiKey,
			Query:       query,
			SearchDepth: depth,
			MaxResults:  maxResults,
		}).
		Post(t.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("调用 Tavily API failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("Tavily API 返回错误 (%d): %s", response.StatusCode(), response.String())
	}

	var result tavilyResponse
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 Tavily 响应failed: %w", err)
	}
	if maxResults > 0 && len(result.Results) > maxResults {
		result.Results = result.Results[:maxResults]
	}
	return result.Results, nil
}
