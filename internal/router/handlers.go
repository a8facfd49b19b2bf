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

package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adaptive-rag/internal/model/llm"
	"adaptive-rag/internal/sparse"
	"adaptive-rag/pkg/log"
)

// 用户可见的固定回复
const (
	generalFallbackAnswer     = "I'm here to help! Feel free to ask me questions about your uploaded documents or general topics."
	webSearchOffAnswer        = "Web search is not available. Please check your Tavily API key configuration."
	vectorStoreOffAnswer      = "Document search is not available. Please check your RAG application configuration."
	vectorStoreNoResultAnswer = "I don't have enough information in the uploaded documents to answer this question. Please upload relevant documents or try asking a different question."
	errorFallbackAnswer       = "I'm experiencing technical difficulties. Please try again later or contact support."

	vagueGuidanceAnswer = `I'd be happy to help you with your documents! However, your question is quite general.

To get the most helpful answer, please try asking more specific questions like:
• "What does the document say about [specific topic]?"
• "Summarize the main points from my uploaded files"
• "Find information about [specific subject] in my documents"
• "What are the key findings in the uploaded documents?"

If you haven't uploaded any documents yet, please upload them first using the file upload feature above.`

	webSearchPrompt = `Based on the following web search results, provide a comprehensive and accurate answer to the question: "%s"

Search Results:
%s

Answer:`
)

// 各路径的评估分（仅供参考，不参与控制流）
const (
	scoreGeneral         = 0.9
	scoreGeneralFallback = 0.5
	scoreWebSearch       = 0.85
	scoreVectorStore     = 0.8
	scoreNoResults       = 0.3
	scoreVague           = 0.8
	scoreFailed          = 0.0
)

// previewLen 引用预览截断长度（字符）
const previewLen = 200

// GeneralHandler 通用对话：携带最近几条记忆直接调用 LLM，成功后写回记忆
type GeneralHandler struct {
	model       llm.Client
	memory      *ChatMemory
	history     int
	temperature float64
	logger      *log.Logger
}

// NewGeneralHandler history 为携带的最近记忆条数，<=0 时为 4
func NewGeneralHandler(model llm.Client, memory *ChatMemory, history int, temperature float64, logger *log.Logger) *GeneralHandler {
	if history <= 0 {
		history = 4
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &GeneralHandler{model: model, memory: memory, history: history, temperature: temperature, logger: logger}
}

// Handle 实现 Handler；失败时不修改记忆
func (h *GeneralHandler) Handle(ctx context.Context, query string) QueryResult {
	if h.model == nil {
		return newResult(query, generalFallbackAnswer, MethodGeneralFallback, scoreGeneralFallback, nil)
	}
	recent := h.memory.Recent(h.history)
	messages := make([]llm.Message, 0, len(recent)+1)
	for _, t := range recent {
		role := llm.RoleAssistant
		if t.Role == RoleUser {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: t.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	answer, err := h.model.Chat(ctx, messages, llm.GenerateOptions{Temperature: h.temperature})
	if err != nil {
		h.logger.Error("通用对话失败", "error", err)
		return newResult(query, generalFallbackAnswer, MethodGeneralFallback, scoreGeneralFallback, nil)
	}
	h.memory.AppendExchange(query, answer)
	return newResult(query, answer, MethodGeneral, scoreGeneral, nil)
}

// WebSearchHandler Web 搜索 + LLM 归纳
type WebSearchHandler struct {
	searcher    WebSearcher
	model       llm.Client
	depth       string
	maxResults  int
	temperature float64
	logger      *log.Logger
}

// NewWebSearchHandler searcher 为 nil 表示未配置搜索凭据
func NewWebSearchHandler(searcher WebSearcher, model llm.Client, depth string, maxResults int, temperature float64, logger *log.Logger) *WebSearchHandler {
	if depth == "" {
		depth = "advanced"
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &WebSearchHandler{searcher: searcher, model: model, depth: depth, maxResults: maxResults, temperature: temperature, logger: logger}
}

// Enabled 是否配置了搜索服务
func (h *WebSearchHandler) Enabled() bool {
	return h.searcher != nil
}

// Handle 实现 Handler
func (h *WebSearchHandler) Handle(ctx context.Context, query string) QueryResult {
	if h.searcher == nil {
		return newResult(query, webSearchOffAnswer, MethodWebSearchOff, scoreFailed, nil)
	}
	answer, sources, err := h.search(ctx, query)
	if err != nil {
		h.logger.Error("Web 搜索失败", "error", err)
		return newResult(query,
			fmt.Sprintf("I encountered an error while searching the web: %s. Please try rephrasing your question or ask about your uploaded documents instead.", err),
			MethodWebSearchError, scoreFailed, nil)
	}
	return newResult(query, answer, MethodWebSearch, scoreWebSearch, sources)
}

func (h *WebSearchHandler) search(ctx context.Context, query string) (string, []SourceRef, error) {
	if h.model == nil {
		return "", nil, errors.New("language model is not configured")
	}
	results, err := h.searcher.Search(ctx, query, h.depth, h.maxResults)
	if err != nil {
		return "", nil, err
	}
	sources := make([]SourceRef, 0, len(results))
	parts := make([]string, 0, len(results))
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = "Unknown"
		}
		sources = append(sources, SourceRef{
			Title:          title,
			URL:            r.URL,
			ContentPreview: truncateRunes(r.Content, previewLen) + "...",
			SourceType:     SourceTypeWebSearch,
		})
		parts = append(parts, r.Content)
	}
	prompt := fmt.Sprintf(webSearchPrompt, query, strings.Join(parts, "\n\n"))
	answer, err := h.model.Generate(ctx, prompt, llm.GenerateOptions{Temperature: h.temperature})
	if err != nil {
		return "", nil, err
	}
	return answer, sources, nil
}

// VectorStoreHandler 文档检索处理器
type VectorStoreHandler struct {
	index   DocumentIndex
	general Handler
	topK    int
	logger  *log.Logger
}

// NewVectorStoreHandler index 为 nil 表示未配置文档索引；general 用于稀疏向量为空时的降级
func NewVectorStoreHandler(index DocumentIndex, general Handler, topK int, logger *log.Logger) *VectorStoreHandler {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &VectorStoreHandler{index: index, general: general, topK: topK, logger: logger}
}

// Enabled 是否配置了文档索引
func (h *VectorStoreHandler) Enabled() bool {
	return h.index != nil
}

// Handle 实现 Handler
func (h *VectorStoreHandler) Handle(ctx context.Context, query string) QueryResult {
	if h.index == nil {
		return newResult(query, vectorStoreOffAnswer, MethodVectorStoreOff, scoreFailed, nil)
	}
	res, err := h.index.Query(ctx, query, h.topK)
	if err != nil {
		if IsEmptySparseVector(err) && h.general != nil {
			h.logger.Warn("稀疏向量为空（索引尚未拟合），降级为通用对话", "error", err)
			return h.general.Handle(ctx, query)
		}
		h.logger.Error("文档检索失败", "error", err)
		return newResult(query,
			fmt.Sprintf("I encountered an error while searching your documents: %s. Please try rephrasing your question.", err),
			MethodVectorStoreError, scoreFailed, nil)
	}
	if res == nil || len(res.Sources) == 0 {
		return newResult(query, vectorStoreNoResultAnswer, MethodVectorStoreNoResult, scoreNoResults, nil)
	}
	return newResult(query, res.Answer, MethodVectorStore, scoreVectorStore, res.Sources)
}

// VagueDocumentHandler 对过于宽泛的文档问题返回固定引导，不调用任何外部服务
type VagueDocumentHandler struct{}

// Handle 实现 Handler
func (VagueDocumentHandler) Handle(ctx context.Context, query string) QueryResult {
	return newResult(query, vagueGuidanceAnswer, MethodVagueGuidance, scoreVague, nil)
}

// IsEmptySparseVector 判断错误是否为"稀疏向量为空"。
//
// 本仓库的稀疏编码器返回可 errors.Is 识别的 sparse.ErrEmptySparseVector；
// 外部索引服务只能给出错误文本，因此再按标记文本做子串匹配。
// 已知局限：子串匹配可能误判恰好包含该文本的无关错误。
func IsEmptySparseVector(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sparse.ErrEmptySparseVector) {
		return true
	}
	return strings.Contains(err.Error(), sparse.EmptySparseVectorMarker)
}

// truncateRunes 按字符截断，避免切断多字节字符
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
