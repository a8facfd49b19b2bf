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
	"time"

	"adaptive-rag/pkg/metrics"
)

// RateLimitedClient 包装任意 LLM Client，在真实调用前后执行限流控制。
// 分类器、通用对话、检索答案生成共用同一个限流器。
type RateLimitedClient struct {
	inner       Client
	rateLimiter *LLMRateLimiter
}

// NewRateLimitedClient 创建带限流的 LLM 客户端。rateLimiter 为 nil 时退化为直接调用。
func NewRateLimitedClient(inner Client, rateLimiter *LLMRateLimiter) *RateLimitedClient {
	return &RateLimitedClient{inner: inner, rateLimiter: rateLimiter}
}

// Generate 实现 Client.Generate，调用前后执行限流。
func (c *RateLimitedClient) Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	release, err := c.acquire(ctx, prompt, options)
	if err != nil {
		return "", err
	}
	defer release()
	return c.inner.Generate(ctx, prompt, options)
}

// Chat 实现 Client.Chat，调用前后执行限流。
func (c *RateLimitedClient) Chat(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	release, err := c.acquire(ctx, messagesText(messages), options)
	if err != nil {
		return "", err
	}
	defer release()
	return c.inner.Chat(ctx, messages, options)
}

// CallTool 实现 Client.CallTool，调用前后执行限流。
func (c *RateLimitedClient) CallTool(ctx context.Context, messages []Message, tool ToolSpec, options GenerateOptions) (*ToolCall, error) {
	release, err := c.acquire(ctx, messagesText(messages), options)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.inner.CallTool(ctx, messages, tool, options)
}

// Model 返回底层 Client 的模型名称。
func (c *RateLimitedClient) Model() string { return c.inner.Model() }

// Provider 返回底层 Client 的提供商名称。
func (c *RateLimitedClient) Provider() string { return c.inner.Provider() }

func (c *RateLimitedClient) acquire(ctx context.Context, text string, options GenerateOptions) (func(), error) {
	if c.rateLimiter == nil {
		return func() {}, nil
	}
	provider := c.inner.Provider()
	start := time.Now()
	if err := c.rateLimiter.Wait(ctx, provider, estimateTokens(text, options.MaxTokens)); err != nil {
		return nil, err
	}
	if waited := time.Since(start); waited > 100*time.Millisecond {
		metrics.LLMRateLimitWaitSeconds.WithLabelValues(provider).Observe(waited.Seconds())
	}
	return func() {
		c.rateLimiter.Release(provider)
		// 用 MaxTokens 近似记录实际用量
		c.rateLimiter.RecordTokenUsage(provider, options.MaxTokens)
	}, nil
}

// estimateTokens 粗略估算请求的 token 数（4 字符 ≈ 1 token）。
func estimateTokens(text string, maxTokens int) int {
	estimated := len(text) / 4
	if maxTokens > 0 {
		estimated += maxTokens
	}
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

// messagesText 将消息列表合并为单一字符串，用于 token 估算。
func messagesText(msgs []Message) string {
	total := 0
	for _, m := range msgs {
		total += len(m.Content)
	}
	buf := make([]byte, 0, total)
	for _, m := range msgs {
		buf = append(buf, m.Content...)
	}
	return string(buf)
}
