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
	"fmt"
	"runtime/debug"
	"time"

	"adaptive-rag/internal/model/llm"
	"adaptive-rag/pkg/log"
	"adaptive-rag/pkg/metrics"
	"adaptive-rag/pkg/tracing"
)

// Config 路由参数
type Config struct {
	MaxMemoryLength int     // 对话记忆上限，默认 10
	GeneralHistory  int     // 通用对话携带的记忆条数，默认 4
	TopK            int     // 文档检索条数，默认 5
	Temperature     float64 // LLM 温度
	SearchDepth     string  // Web 搜索深度，默认 advanced
	MaxResults      int     // Web 搜索条数，默认 5
	// RulesOnly 为 true 时分类器不调用 LLM
	RulesOnly bool
}

// Deps 路由依赖的协作方，均可为 nil（对应能力降级）
type Deps struct {
	LLM      llm.Client
	Index    DocumentIndex
	Searcher WebSearcher
	Logger   *log.Logger
}

// Router 自适应查询路由，由组合根构造一次后注入请求处理层
type Router struct {
	classifier  *Classifier
	memory      *ChatMemory
	handlers    map[Category]Handler
	general     *GeneralHandler
	vectorstore *VectorStoreHandler
	websearch   *WebSearchHandler
	logger      *log.Logger
}

// New 创建路由：构造分类器、记忆与四个处理器
func New(cfg Config, deps Deps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.With("component", "router")

	memory := NewChatMemory(cfg.MaxMemoryLength)
	classifierModel := deps.LLM
	if cfg.RulesOnly {
		classifierModel = nil
	}
	general := NewGeneralHandler(deps.LLM, memory, cfg.GeneralHistory, cfg.Temperature, logger)
	vectorstore := NewVectorStoreHandler(deps.Index, general, cfg.TopK, logger)
	websearch := NewWebSearchHandler(deps.Searcher, deps.LLM, cfg.SearchDepth, cfg.MaxResults, cfg.Temperature, logger)

	r := &Router{
		classifier:  NewClassifier(classifierModel, DefaultRules(), cfg.Temperature, logger),
		memory:      memory,
		general:     general,
		vectorstore: vectorstore,
		websearch:   websearch,
		logger:      logger,
	}
	r.handlers = map[Category]Handler{
		CategoryGeneral:       general,
		CategoryWebSearch:     websearch,
		CategoryVectorStore:   vectorstore,
		CategoryVagueDocument: VagueDocumentHandler{},
	}
	return r
}

// Process 分类并分派查询，从不返回错误：
// 分派中出现意外（panic）时，有文档索引则退回文档检索，否则退回通用对话；
// 退回路径也失败时返回 error_fallback。
func (r *Router) Process(ctx context.Context, query string) QueryResult {
	start := time.Now()
	ctx, span := tracing.StartQuerySpan(ctx, query)

	result, err := r.safely(func() QueryResult { return r.route(ctx, query) })
	if err != nil {
		r.logger.Error("路由处理异常，尝试退回", "error", err)
		fallback := Handler(r.general)
		if r.vectorstore.Enabled() {
			fallback = r.vectorstore
		}
		result, err = r.safely(func() QueryResult { return fallback.Handle(ctx, query) })
		if err != nil {
			r.logger.Error("退回路径同样失败", "error", err)
			result = newResult(query, errorFallbackAnswer, MethodErrorFallback, scoreFailed, nil)
		}
	}

	tracing.EndSpan(span, err)
	metrics.RouterQueriesTotal.WithLabelValues(result.Method).Inc()
	metrics.RouterDuration.WithLabelValues(result.Method).Observe(time.Since(start).Seconds())
	return result
}

func (r *Router) route(ctx context.Context, query string) QueryResult {
	c := r.classifier.Classify(ctx, query)
	r.logger.Info("查询已分类", "category", c.Category, "confidence", c.Confidence, "source", c.Source)

	hctx, span := tracing.StartHandlerSpan(ctx, string(c.Category))
	defer span.End()
	return r.Handler(c.Category).Handle(hctx, query)
}

// Handler 返回类别对应的处理器，未知类别返回通用对话
func (r *Router) Handler(c Category) Handler {
	if h, ok := r.handlers[c]; ok {
		return h
	}
	return r.general
}

// safely 执行 fn 并把 panic 转为 error
func (r *Router) safely(fn func() QueryResult) (res QueryResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			r.logger.Debug("recovered panic", "stack", string(debug.Stack()))
		}
	}()
	return fn(), nil
}

// Classify 仅分类不分派
func (r *Router) Classify(ctx context.Context, query string) Classification {
	return r.classifier.Classify(ctx, query)
}

// ChatMemory 返回对话记忆副本
func (r *Router) ChatMemory() []Turn {
	return r.memory.Snapshot()
}

// ClearChatMemory 清空对话记忆
func (r *Router) ClearChatMemory() {
	r.memory.Clear()
	r.logger.Info("对话记忆已清空")
}

// WebSearchEnabled 是否配置了 Web 搜索
func (r *Router) WebSearchEnabled() bool {
	return r.websearch.Enabled()
}

// DocumentIndexEnabled 是否配置了文档索引
func (r *Router) DocumentIndexEnabled() bool {
	return r.vectorstore.Enabled()
}
