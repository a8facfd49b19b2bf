package router

import (
	"context"
	"sync"

	"adaptive-rag/internal/model/llm"
)

type fakeLLM struct {
	mu sync.Mutex

	chatReply string
	chatErr   error
	genReply  string
	genErr    error
	toolName  string
	toolArgs  string
	toolErr   error
	toolPanic bool

	chatCalls  int
	lastChat   []llm.Message
	lastPrompt string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options llm.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPrompt = prompt
	return f.genReply, f.genErr
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, options llm.GenerateOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatCalls++
	f.lastChat = append([]llm.Message(nil), messages...)
	return f.chatReply, f.chatErr
}

func (f *fakeLLM) CallTool(ctx context.Context, messages []llm.Message, tool llm.ToolSpec, options llm.GenerateOptions) (*llm.ToolCall, error) {
	if f.toolPanic {
		panic("tool call exploded")
	}
	if f.toolErr != nil {
		return nil, f.toolErr
	}
	name := f.toolName
	if name == "" {
		name = tool.Name
	}
	return &llm.ToolCall{Name: name, Arguments: f.toolArgs}, nil
}

func (f *fakeLLM) Model() string    { return "fake-model" }
func (f *fakeLLM) Provider() string { return "fake" }

type fakeIndex struct {
	answer *DocumentAnswer
	err    error
	panics bool
	calls  int
	topK   int
}

func (f *fakeIndex) Query(ctx context.Context, question string, topK int) (*DocumentAnswer, error) {
	f.calls++
	f.topK = topK
	if f.panics {
		panic("index exploded")
	}
	return f.answer, f.err
}

type fakeSearcher struct {
	results []WebResult
	err     error
	depth   string
	max     int
}

func (f *fakeSearcher) Search(ctx context.Context, query, depth string, maxResults int) ([]WebResult, error) {
	f.depth, f.max = depth, maxResults
	return f.results, f.err
}
