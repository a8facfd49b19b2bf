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
	"fmt"
	"strings"
)

// RuleGroup 一组关键词规则，命中任一模式即返回该组类别
type RuleGroup struct {
	Name       string
	Category   Category
	Confidence float64
	// Reason 理由模板，%s 为命中的模式
	Reason   string
	Patterns []string
}

// RuleSet 按顺序求值、首个命中即返回的规则组集合
type RuleSet struct {
	groups   []RuleGroup
	fallback Classification
}

// 规则组名称，顺序即优先级
const (
	RuleGroupGeneral  = "general_conversation"
	RuleGroupWeb      = "web_search"
	RuleGroupVague    = "vague_document"
	RuleGroupDocument = "document"
)

// DefaultRules 关键词兜底分类规则。组顺序是有意的：问候类优先于主题词，
// 文档组的关键词范围很宽，放在最后才不会吞掉前面的组。
func DefaultRules() *RuleSet {
	return NewRuleSet([]RuleGroup{
		{
			Name:       RuleGroupGeneral,
			Category:   CategoryGeneral,
			Confidence: 0.8,
			Reason:     "Query contains general conversation pattern: '%s'",
			Patterns: []string{
				"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
				"how are you", "what's up", "who am i", "what am i", "tell me about yourself",
				"thanks", "thank you", "bye", "goodbye", "see you",
			},
		},
		{
			Name:       RuleGroupWeb,
			Category:   CategoryWebSearch,
			Confidence: 0.8,
			Reason:     "Query contains web search pattern: '%s'",
			Patterns: []string{
				"latest", "recent", "news", "current", "today", "yesterday", "this week",
				"stock price", "weather", "covid", "election", "breaking news",
			},
		},
		{
			Name:       RuleGroupVague,
			Category:   CategoryVagueDocument,
			Confidence: 0.7,
			Reason:     "Query contains vague document reference: '%s'",
			Patterns: []string{
				"my documents", "my files", "my docs", "the documents", "the files",
				"help me with", "answer questions about", "tell me about my",
			},
		},
		{
			Name:       RuleGroupDocument,
			Category:   CategoryVectorStore,
			Confidence: 0.8,
			Reason:     "Query contains document-related pattern: '%s'",
			Patterns: []string{
				"pdf", "document", "paper", "research", "article", "text", "content",
				"information", "data", "file", "upload", "explain", "analyze", "summarize",
				"what does", "what is", "how does", "describe", "tell me about", "find",
				"search", "extract", "identify", "compare", "contrast", "discuss", "examine",
				"review", "study", "investigate", "explore", "understand", "learn about",
				"get information", "retrieve", "obtain", "access", "read", "parse", "process",
				"architecture", "model", "mechanism", "part", "section", "chapter", "figure",
				"table", "diagram",
			},
		},
	}, Classification{
		Category:   CategoryGeneral,
		Confidence: 0.5,
		Reasoning:  "Query does not match specific patterns, defaulting to general conversation",
	})
}

// NewRuleSet 以给定顺序构造规则集，fallback 为全部未命中时的结果
func NewRuleSet(groups []RuleGroup, fallback Classification) *RuleSet {
	cp := make([]RuleGroup, len(groups))
	copy(cp, groups)
	return &RuleSet{groups: cp, fallback: fallback}
}

// Groups 返回规则组副本（按优先级）
func (s *RuleSet) Groups() []RuleGroup {
	out := make([]RuleGroup, len(s.groups))
	copy(out, s.groups)
	return out
}

// Classify 对去空白、小写后的查询做子串匹配，首个命中的组胜出
func (s *RuleSet) Classify(query string) Classification {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, g := range s.groups {
		for _, p := range g.Patterns {
			if strings.Contains(q, p) {
				return Classification{
					Category:   g.Category,
					Reasoning:  fmt.Sprintf(g.Reason, p),
					Confidence: g.Confidence,
					Source:     SourceFallback,
				}
			}
		}
	}
	c := s.fallback
	c.Source = SourceFallback
	return c
}
