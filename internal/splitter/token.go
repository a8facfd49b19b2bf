package splitter

import (
	"strings"
)

// TokenSplitter 按空白分词后按词数切片
type TokenSplitter struct {
	maxTokens    int
	chunkOverlap int
}

// NewTokenSplitter maxTokens 默认 256，chunkOverlap 默认 50
func NewTokenSplitter(maxTokens, chunkOverlap int) *TokenSplitter {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	if chunkOverlap < 0 || chunkOverlap >= maxTokens {
		chunkOverlap = 0
	}
	return &TokenSplitter{maxTokens: maxTokens, chunkOverlap: chunkOverlap}
}

// Name 实现 Splitter
func (s *TokenSplitter) Name() string {
	return "token"
}

// Split 实现 Splitter
func (s *TokenSplitter) Split(content string) []Chunk {
	tokens := strings.Fields(content)
	var parts []string
	var current []string

	for _, token := range tokens {
		if len(current)+1 > s.maxTokens {
			parts = append(parts, strings.Join(current, " "))
			// 开始新 chunk，带上重叠部分
			if s.chunkOverlap > 0 && len(current) > s.chunkOverlap {
				current = append([]string(nil), current[len(current)-s.chunkOverlap:]...)
			} else {
				current = nil
			}
		}
		current = append(current, token)
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, " "))
	}
	return toChunks(parts)
}
