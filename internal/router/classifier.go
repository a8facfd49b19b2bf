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
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"adaptive-rag/internal/model/llm"
	"adaptive-rag/pkg/log"
	"adaptive-rag/pkg/metrics"
	"adaptive-rag/pkg/tracing"
)

const classifierSystemPrompt = `You are an expert query classifier for an Adaptive RAG system.
Your job is to classify user queries into one of four categories:

GENERAL: Simple greetings, casual conversation, personal questions, or queries that don't require specific knowledge.
Examples: "hi", "hello", "how are you", "who am i", "what's the weather like"

WEBSEARCH: Queries about current events, recent information, or topics that require up-to-date knowledge.
Examples: "latest news about AI", "recent developments in quantum computing", "current stock prices"

VECTORSTORE: Queries that should be answered using uploaded documents and local knowledge.
Examples: "what does the document say about", "summarize the uploaded files", "find information in my documents",
"explain the model architecture from the PDF", "what does the paper say about", "analyze the document"

VAGUE_DOCUMENT: Queries that mention documents but are too vague to process effectively.
Examples: "help me with my documents", "answer questions about my files", "tell me about my docs"

Be confident in your classification and provide clear reasoning.`

var (
	confidenceMin = 0.0
	confidenceMax = 1.0
)

// ClassifyTool classify_query 函数声明
var ClassifyTool = llm.ToolSpec{
	Name:        "classify_query",
	Description: "Classify a user query to determine the best processing method",
	Params: []llm.ToolParam{
		{
			Name:        "classification",
			Type:        "string",
			Description: "The classification of the query",
			Enum:        categoryNames(),
			Required:    true,
		},
		{
			Name:        "reasoning",
			Type:        "string",
			Description: "Detailed reasoning for the classification",
			Required:    true,
		},
		{
			Name:        "confidence",
			Type:        "number",
			Description: "Confidence score for this classification",
			Required:    true,
			Minimum:     &confidenceMin,
			Maximum:     &confidenceMax,
		},
	},
}

func categoryNames() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = string(c)
	}
	return out
}

// Classifier 意图分类器：优先用 LLM 结构化输出，任何失败都退回关键词规则，从不向外返回错误
type Classifier struct {
	model       llm.Client
	rules       *RuleSet
	temperature float64
	logger      *log.Logger
}

// NewClassifier 创建分类器；model 为 nil 时只使用关键词规则
func NewClassifier(model llm.Client, rules *RuleSet, temperature float64, logger *log.Logger) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Classifier{model: model, rules: rules, temperature: temperature, logger: logger}
}

// Classify 返回查询分类，结果总是通过 Validate
func (c *Classifier) Classify(ctx context.Context, query string) Classification {
	ctx, span := tracing.StartClassifySpan(ctx)
	result, err := c.classifyWithLLM(ctx, query)
	if err != nil {
		if c.model != nil {
			c.logger.Warn("LLM 分类失败，使用关键词规则", "error", err)
		}
		result = c.rules.Classify(query)
	}
	tracing.EndSpan(span, nil)
	metrics.RouterClassificationsTotal.WithLabelValues(string(result.Category), result.Source).Inc()
	return result
}

// classifyWithLLM 模型调用中的 panic 转为 error，由 Classify 走关键词规则
func (c *Classifier) classifyWithLLM(ctx context.Context, query string) (result Classification, err error) {
	if c.model == nil {
		return Classification{}, fmt.Errorf("classifier has no llm")
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = Classification{}, fmt.Errorf("llm classification panicked: %v", r)
		}
	}()
	call, err := c.model.CallTool(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: classifierSystemPrompt},
		{Role: llm.RoleUser, Content: query},
	}, ClassifyTool, llm.GenerateOptions{Temperature: c.temperature})
	if err != nil {
		return Classification{}, err
	}
	if call == nil {
		return Classification{}, llm.ErrNoToolCall
	}
	if call.Name != ClassifyTool.Name {
		return Classification{}, fmt.Errorf("unexpected tool call %q", call.Name)
	}
	return DecodeClassification([]byte(call.Arguments))
}

// classificationArgs 用指针区分字段缺失与零值
type classificationArgs struct {
	Classification *string  `json:"classification"`
	Reasoning      *string  `json:"reasoning"`
	Confidence     *float64 `json:"confidence"`
}

// DecodeClassification 严格解析 tool 参数：三个字段都必须存在且合法
func DecodeClassification(raw []byte) (Classification, error) {
	var args classificationArgs
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&args); err != nil {
		return Classification{}, fmt.Errorf("decode classification arguments: %w", err)
	}
	switch {
	case args.Classification == nil:
		return Classification{}, fmt.Errorf("classification field missing")
	case args.Reasoning == nil:
		return Classification{}, fmt.Errorf("reasoning field missing")
	case args.Confidence == nil:
		return Classification{}, fmt.Errorf("confidence field missing")
	}
	out := Classification{
		Category:   Category(*args.Classification),
		Reasoning:  *args.Reasoning,
		Confidence: *args.Confidence,
		Source:     SourceLLM,
	}
	if err := out.Validate(); err != nil {
		return Classification{}, err
	}
	return out, nil
}
