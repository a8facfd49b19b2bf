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

// Package router 自适应查询路由：对问题做意图分类，分派到对应处理器，并维护有界对话记忆。
package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Category 查询意图类别
type Category string

const (
	CategoryGeneral       Category = "GENERAL"
	CategoryWebSearch     Category = "WEBSEARCH"
	CategoryVectorStore   Category = "VECTORSTORE"
	CategoryVagueDocument Category = "VAGUE_DOCUMENT"
)

// Categories 全部合法类别，顺序即 tool schema 中的 enum 顺序
var Categories = []Category{CategoryGeneral, CategoryWebSearch, CategoryVectorStore, CategoryVagueDocument}

// Valid 是否为四个合法类别之一
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryWebSearch, CategoryVectorStore, CategoryVagueDocument:
		return true
	}
	return false
}

// 分类来源
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Classification 一次查询的分类结果
type Classification struct {
	Category   Category `json:"classification"`
	Reasoning  string   `json:"reasoning"`
	Confidence float64  `json:"confidence"`
	// Source llm | fallback，仅用于日志与指标
	Source string `json:"-"`
}

// Validate 校验类别、理由非空、置信度在 [0,1]
func (c Classification) Validate() error {
	if !c.Category.Valid() {
		return fmt.Errorf("invalid classification %q", c.Category)
	}
	if strings.TrimSpace(c.Reasoning) == "" {
		return errors.New("reasoning is empty")
	}
	if math.IsNaN(c.Confidence) || c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", c.Confidence)
	}
	return nil
}

// 结果 method 标签
const (
	MethodGeneral             = "general_conversation"
	MethodGeneralFallback     = "general_conversation_fallback"
	MethodWebSearch           = "web_search"
	MethodWebSearchError      = "web_search_error"
	MethodWebSearchOff        = "web_search_unavailable"
	MethodVectorStore         = "vectorstore_search"
	MethodVectorStoreNoResult = "vectorstore_no_results"
	MethodVectorStoreError    = "vectorstore_error"
	MethodVectorStoreOff      = "vectorstore_unavailable"
	MethodVagueGuidance       = "vague_document_guidance"
	MethodErrorFallback       = "error_fallback"
)

// SourceTypeWebSearch Web 来源的 source_type
const SourceTypeWebSearch = "web_search"

// SourceRef 答案引用来源：文档切片（file_name/file_type/chunk_id）或网页（title/url/source_type）
type SourceRef struct {
	FileName       string `json:"file_name,omitempty"`
	FileType       string `json:"file_type,omitempty"`
	ChunkID        string `json:"chunk_id,omitempty"`
	Title          string `json:"title,omitempty"`
	URL            string `json:"url,omitempty"`
	SourceType     string `json:"source_type,omitempty"`
	ContentPreview string `json:"content_preview"`
}

// QueryResult 所有处理器统一返回的结果结构，错误路径也不例外
type QueryResult struct {
	Answer          string      `json:"answer"`
	Sources         []SourceRef `json:"sources"`
	Method          string      `json:"method"`
	EvaluationScore float64     `json:"evaluation_score"`
	IterationCount  int         `json:"iteration_count"`
	Question        string      `json:"question"`
}

// newResult 构造结果；sources 为 nil 时置为空切片，保证 JSON 为 []
func newResult(question, answer, method string, score float64, sources []SourceRef) QueryResult {
	if sources == nil {
		sources = []SourceRef{}
	}
	return QueryResult{
		Answer:          answer,
		Sources:         sources,
		Method:          method,
		EvaluationScore: score,
		IterationCount:  1,
		Question:        question,
	}
}

// DocumentAnswer 文档索引对一个问题的检索+生成结果
type DocumentAnswer struct {
	Answer  string
	Sources []SourceRef
}

// DocumentIndex 文档索引协作方；无命中时返回空 Sources 而不是错误
type DocumentIndex interface {
	Query(ctx context.Context, question string, topK int) (*DocumentAnswer, error)
}

// WebResult 单条 Web 搜索结果
type WebResult struct {
	Title   string
	URL     string
	Content string
}

// WebSearcher Web 搜索协作方
type WebSearcher interface {
	Search(ctx context.Context, query, depth string, maxResults int) ([]WebResult, error)
}

// Handler 意图处理器；失败需在内部转为降级结果，不向外返回错误
type Handler interface {
	Handle(ctx context.Context, query string) QueryResult
}
