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

package app

import (
	"context"

	"adaptive-rag/internal/rag"
	"adaptive-rag/internal/router"
	"adaptive-rag/internal/websearch"
)

// DocumentIndexAdapter 将 rag.Service 适配为 router.DocumentIndex
type DocumentIndexAdapter struct {
	svc *rag.Service
}

// NewDocumentIndexAdapter svc 为 nil 时返回 nil 接口，路由视为文档索引未启用
func NewDocumentIndexAdapter(svc *rag.Service) router.DocumentIndex {
	if svc == nil {
		return nil
	}
	return &DocumentIndexAdapter{svc: svc}
}

// Query 实现 router.DocumentIndex
func (a *DocumentIndexAdapter) Query(ctx context.Context, question string, topK int) (*router.DocumentAnswer, error) {
	ans, err := a.svc.Query(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	return ToDocumentAnswer(ans), nil
}

// ToDocumentAnswer rag.Answer -> router.DocumentAnswer
func ToDocumentAnswer(ans *rag.Answer) *router.DocumentAnswer {
	sources := make([]router.SourceRef, 0, len(ans.Sources))
	for _, s := range ans.Sources {
		sources = append(sources, router.SourceRef{
			FileName:       s.FileName,
			FileType:       s.FileType,
			ChunkID:        s.ChunkID,
			ContentPreview: s.ContentPreview,
		})
	}
	return &router.DocumentAnswer{Answer: ans.Answer, Sources: sources}
}

// WebSearcherAdapter 将 websearch.Searcher 适配为 router.WebSearcher
type WebSearcherAdapter struct {
	searcher websearch.Searcher
}

// NewWebSearcherAdapter s 为 nil 时返回 nil 接口，路由视为 Web 搜索未启用
func NewWebSearcherAdapter(s websearch.Searcher) router.WebSearcher {
	if s == nil {
		return nil
	}
	return &WebSearcherAdapter{searcher: s}
}

// Search 实现 router.WebSearcher
func (a *WebSearcherAdapter) Search(ctx context.Context, query, depth string, maxResults int) ([]router.WebResult, error) {
	results, err := a.searcher.Search(ctx, query, depth, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]router.WebResult, 0, len(results))
	for _, r := range results {
		out = append(out, router.WebResult{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	return out, nil
}
