package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	calls int
}

func (c *countingClient) Generate(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	c.calls++
	return "ok", nil
}

func (c *countingClient) Chat(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	c.calls++
	return "ok", nil
}

func (c *countingClient) CallTool(ctx context.Context, messages []Message, tool ToolSpec, options GenerateOptions) (*ToolCall, error) {
	c.calls++
	return &ToolCall{Name: tool.Name, Arguments: "{}"}, nil
}

func (c *countingClient) Model() string    { return "m" }
func (c *countingClient) Provider() string { return "fake" }

func TestRateLimitedClient_ReleasesSlots(t *testing.T) {
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"fake": {MaxConcurrent: 1},
	}, nil)
	inner := &countingClient{}
	c := NewRateLimitedClient(inner, limiter)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 3; i++ {
		_, err := c.Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}}, GenerateOptions{})
		require.NoError(t, err)
	}
	_, err := c.CallTool(ctx, nil, ToolSpec{Name: "t"}, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls)

	stats := limiter.GetStats("fake")
	assert.Equal(t, 0, stats["current_concurrent"])
}

func TestLLMRateLimiter_TokenRequestLargerThanBurst(t *testing.T) {
	limiter := NewLLMRateLimiter(map[string]LLMLimitConfig{
		"fake": {TokensPerMinute: 600}, // burst = 20
	}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, limiter.Wait(ctx, "fake", 10000))
	limiter.Release("fake")
}

func TestLLMRateLimiter_UnknownProviderUsesDefaults(t *testing.T) {
	limiter := NewLLMRateLimiter(nil, &LLMLimitConfig{MaxConcurrent: 2})
	require.NoError(t, limiter.Wait(context.Background(), "other", 1))
	stats := limiter.GetStats("other")
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats["current_concurrent"])
	limiter.Release("other")
}
