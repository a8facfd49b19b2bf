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
	"errors"
	"fmt"
)

// ErrNoToolCall 模型返回了普通文本而非工具调用
var ErrNoToolCall = errors.New("llm response contains no tool call")

// Client LLM 客户端接口
type Client interface {
	// Generate 单轮 prompt 生成
	Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error)
	// Chat 多轮消息聊天
	Chat(ctx context.Context, messages []Message, options GenerateOptions) (string, error)
	// CallTool 强制模型调用 tool 并返回其参数；模型未调用时返回 ErrNoToolCall
	CallTool(ctx context.Context, messages []Message, tool ToolSpec, options GenerateOptions) (*ToolCall, error)
	// Model 返回模型名称
	Model() string
	// Provider 返回提供商名称
	Provider() string
}

// GenerateOptions 生成选项，零值字段不下发
type GenerateOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 聊天消息
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ToolSpec 函数调用（structured output）声明
type ToolSpec struct {
	Name        string
	Description string
	Params      []ToolParam
}

// ToolParam 工具参数，Type 取 string | number | integer | boolean
type ToolParam struct {
	Name        string
	Type        string
	Description string
	Enum        []string
	Required    bool
	Minimum     *float64
	Maximum     *float64
}

// ToolCall 模型返回的工具调用
type ToolCall struct {
	Name      string
	Arguments string // 原始 JSON 参数
}

// JSONSchema 将 ToolSpec 参数转为 JSON Schema object
func (t ToolSpec) JSONSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(t.Params))
	required := make([]string, 0, len(t.Params))
	for _, p := range t.Params {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// NewClient 按 backend 创建 LLM 客户端：resty（默认，OpenAI 兼容 REST）或 eino（eino-ext openai ChatModel）
func NewClient(ctx context.Context, backend, model, apiKey, baseURL string) (Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm api key is empty")
	}
	switch backend {
	case "", "resty":
		return NewOpenAIClientWithBaseURL(model, apiKey, baseURL)
	case "eino":
		return NewEinoClient(ctx, model, apiKey, baseURL)
	default:
		return nil, fmt.Errorf("unsupported llm backend: %s", backend)
	}
}
