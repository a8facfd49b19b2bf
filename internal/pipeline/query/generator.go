package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"adaptive-rag/internal/model/llm"
	"adaptive-rag/internal/pipeline/common"
)

const answerPrompt = `
You are a helpful AI assistant that answers questions based on the provided context. 
Use only the information from the context to answer the question. If the context doesn't 
contain enough information to answer the question, say "I don't have enough information 
to answer this question based on the provided context."

Context:
%s

Question: %s

Answer:`

// Generator 基于检索结果生成回答
type Generator struct {
	llm         llm.Client
	temperature float64
}

// NewGenerator 创建生成器
func NewGenerator(client llm.Client, temperature float64) *Generator {
	return &Generator{llm: client, temperature: temperature}
}

// BuildContext 以空行拼接切片正文
func BuildContext(docs []*schema.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt 填充带上下文约束的回答模板
func BuildPrompt(question string, docs []*schema.Document) string {
	return fmt.Sprintf(answerPrompt, BuildContext(docs), question)
}

// Generate 调用 LLM 生成回答
func (g *Generator) Generate(ctx context.Context, question string, docs []*schema.Document) (string, error) {
	if g.llm == nil {
		return "", common.NewPipelineError("generator", "language model is not configured", common.ErrInvalidInput)
	}
	answer, err := g.llm.Generate(ctx, BuildPrompt(question, docs), llm.GenerateOptions{Temperature: g.temperature})
	if err != nil {
		return "", common.NewPipelineError("generator", "生成回答失败", err)
	}
	return strings.TrimSpace(answer), nil
}
