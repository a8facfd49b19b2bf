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

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpenAIClient OpenAI 兼容客户端（chat/completions）
type OpenAIClient struct {
	provider string
	model    string
	apiKey   string
	baseURL  string
	client   *resty.Client
}

// NewOpenAIClient 创建新的 OpenAI 客户端（base 优先用 OPENAI_BASE_URL 环境变量）
func NewOpenAIClient(model, apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithBaseURL(model, apiKey, "")
}

// NewOpenAIClientWithBaseURL 创建 OpenAI 兼容客户端；baseURL 为空时用默认或 OPENAI_BASE_URL。
// 不做重试：单次失败由上层转为降级结果。
func NewOpenAIClientWithBaseURL(model, apiKey, baseURL string) (*OpenAIClient, error) {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
		if envURL := os.Getenv("OPENAI_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}

	client := resty.New()
	client.SetTimeout(60 * time.Second)

	return &OpenAIClient{
		provider: "openai",
		model:    model,
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
	}, nil
}

type chatRequest struct {
	Model       string      `json:"model"`
	Messages    []Message   `json:"messages"`
	Temperature *float64    `json:"temperature,omitempty"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	TopP        float64     `json:"top_p,omitempty"`
	Stop        []string    `json:"stop,omitempty"`
	Tools       []chatTool  `json:"tools,omitempty"`
	ToolChoice  interface{} `json:"tool_choice,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate 单轮生成
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	return c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, options)
}

// Chat 聊天
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	resp, err := c.complete(ctx, c.newRequest(messages, options))
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

// CallTool 以 tool_choice 强制指定函数调用
func (c *OpenAIClient) CallTool(ctx context.Context, messages []Message, tool ToolSpec, options GenerateOptions) (*ToolCall, error) {
	req := c.newRequest(messages, options)
	req.Tools = []chatTool{{
		Type: "function",
		Function: chatFunction{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.JSONSchema(),
		},
	}}
	req.ToolChoice = map[string]interface{}{
		"type":     "function",
		"function": map[string]string{"name": tool.Name},
	}
	resp, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return nil, ErrNoToolCall
	}
	return &ToolCall{Name: calls[0].Function.Name, Arguments: calls[0].Function.Arguments}, nil
}

func (c *OpenAIClient) newRequest(messages []Message, options GenerateOptions) *chatRequest {
	req := &chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: options.MaxTokens,
		TopP:      options.TopP,
		Stop:      options.Stop,
	}
	if options.Temperature > 0 {
		t := options.Temperature
		req.Temperature = &t
	}
	return req
}

func (c *OpenAIClient) complete(ctx context.Context, request *chatRequest) (*chatResponse, error) {
	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(request).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("调用 OpenAI API failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API 返回错误 (%d): %s", response.StatusCode(), response.String())
	}

	var result chatResponse
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 OpenAI 响应failed: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI API 没有返回结果")
	}
	return &result, nil
}

// Model 返回模型名称
func (c *OpenAIClient) Model() string {
	return c.model
}

// Provider 返回提供商名称
func (c *OpenAIClient) Provider() string {
	return c.provider
}
