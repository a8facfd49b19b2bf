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
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// EinoClient 基于 eino ToolCallingChatModel 的 Client 实现
type EinoClient struct {
	provider  string
	modelName string
	chat      model.ToolCallingChatModel
}

// NewEinoClient 使用 eino-ext openai ChatModel 创建客户端
func NewEinoClient(ctx context.Context, modelName, apiKey, baseURL string) (*EinoClient, error) {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		Model:   modelName,
		APIKey:  apiKey,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 OpenAI ChatModel failed: %w", err)
	}
	return NewEinoClientWithModel("openai", modelName, cm), nil
}

// NewEinoClientWithModel 包装已有 ChatModel（测试或其它 eino-ext provider）
func NewEinoClientWithModel(provider, modelName string, cm model.ToolCallingChatModel) *EinoClient {
	return &EinoClient{provider: provider, modelName: modelName, chat: cm}
}

// Generate 单轮生成
func (c *EinoClient) Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	return c.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, options)
}

// Chat 聊天
func (c *EinoClient) Chat(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	msg, err := c.chat.Generate(ctx, toSchemaMessages(messages), toModelOptions(options)...)
	if err != nil {
		return "", fmt.Errorf("eino chat model generate: %w", err)
	}
	if msg == nil {
		return "", fmt.Errorf("eino chat model 没有返回结果")
	}
	return msg.Content, nil
}

// CallTool 绑定单个 tool 后生成，读取第一个 ToolCall
func (c *EinoClient) CallTool(ctx context.Context, messages []Message, tool ToolSpec, options GenerateOptions) (*ToolCall, error) {
	bound, err := c.chat.WithTools([]*schema.ToolInfo{toToolInfo(tool)})
	if err != nil {
		return nil, fmt.Errorf("eino bind tools: %w", err)
	}
	msg, err := bound.Generate(ctx, toSchemaMessages(messages), toModelOptions(options)...)
	if err != nil {
		return nil, fmt.Errorf("eino chat model generate: %w", err)
	}
	if msg == nil || len(msg.ToolCalls) == 0 {
		return nil, ErrNoToolCall
	}
	call := msg.ToolCalls[0]
	return &ToolCall{Name: call.Function.Name, Arguments: call.Function.Arguments}, nil
}

// Model 返回模型名称
func (c *EinoClient) Model() string { return c.modelName }

// Provider 返回提供商名称
func (c *EinoClient) Provider() string { return c.provider }

func toSchemaMessages(messages []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			out = append(out, schema.UserMessage(m.Content))
		}
	}
	return out
}

func toModelOptions(options GenerateOptions) []model.Option {
	var opts []model.Option
	if options.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(options.Temperature)))
	}
	if options.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(options.MaxTokens))
	}
	if options.TopP > 0 {
		opts = append(opts, model.WithTopP(float32(options.TopP)))
	}
	if len(options.Stop) > 0 {
		opts = append(opts, model.WithStop(options.Stop))
	}
	return opts
}

// toToolInfo ToolSpec -> eino ToolInfo；eino ParameterInfo 无数值范围，范围校验由调用方完成
func toToolInfo(tool ToolSpec) *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(tool.Params))
	for _, p := range tool.Params {
		params[p.Name] = &schema.ParameterInfo{
			Type:     toDataType(p.Type),
			Desc:     p.Description,
			Enum:     p.Enum,
			Required: p.Required,
		}
	}
	return &schema.ToolInfo{
		Name:        tool.Name,
		Desc:        tool.Description,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

func toDataType(t string) schema.DataType {
	switch t {
	case "number":
		return schema.Number
	case "integer":
		return schema.Integer
	case "boolean":
		return schema.Boolean
	default:
		return schema.String
	}
}
