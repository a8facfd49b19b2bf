package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adaptive-rag/internal/model/llm"
)

func TestDecodeClassification(t *testing.T) {
	c, err := DecodeClassification([]byte(`{"classification":"VECTORSTORE","reasoning":"asks about the pdf","confidence":0.92}`))
	require.NoError(t, err)
	assert.Equal(t, CategoryVectorStore, c.Category)
	assert.Equal(t, "asks about the pdf", c.Reasoning)
	assert.Equal(t, 0.92, c.Confidence)
	assert.Equal(t, SourceLLM, c.Source)
}

func TestDecodeClassification_Rejects(t *testing.T) {
	cases := map[string]string{
		"not json":           `classification: GENERAL`,
		"missing confidence": `{"classification":"GENERAL","reasoning":"hi"}`,
		"missing reasoning":  `{"classification":"GENERAL","confidence":0.4}`,
		"missing category":   `{"reasoning":"hi","confidence":0.4}`,
		"unknown category":   `{"classification":"SQL","reasoning":"hi","confidence":0.4}`,
		"confidence > 1":     `{"classification":"GENERAL","reasoning":"hi","confidence":1.5}`,
		"confidence < 0":     `{"classification":"GENERAL","reasoning":"hi","confidence":-0.1}`,
		"lowercase category": `{"classification":"general","reasoning":"hi","confidence":0.4}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeClassification([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestClassifier_UsesLLM(t *testing.T) {
	model := &fakeLLM{toolArgs: `{"classification":"WEBSEARCH","reasoning":"current events","confidence":0.95}`}
	c := NewClassifier(model, nil, 0.5, nil).Classify(context.Background(), "hello")
	assert.Equal(t, CategoryWebSearch, c.Category)
	assert.Equal(t, SourceLLM, c.Source)
	assert.Equal(t, 0.95, c.Confidence)
}

func TestClassifier_FallsBackToRules(t *testing.T) {
	tests := []struct {
		name  string
		model llm.Client
	}{
		{"no model", nil},
		{"transport error", &fakeLLM{toolErr: errors.New("connection refused")}},
		{"no tool call", &fakeLLM{toolErr: llm.ErrNoToolCall}},
		{"wrong tool", &fakeLLM{toolName: "other_tool", toolArgs: `{"classification":"WEBSEARCH","reasoning":"x","confidence":0.9}`}},
		{"malformed args", &fakeLLM{toolArgs: `{"classification":"WEBSEARCH"`}},
		{"out of range", &fakeLLM{toolArgs: `{"classification":"WEBSEARCH","reasoning":"x","confidence":7}`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClassifier(tc.model, nil, 0.5, nil).Classify(context.Background(), "hello")
			assert.Equal(t, CategoryGeneral, c.Category)
			assert.Equal(t, 0.8, c.Confidence)
			assert.Equal(t, SourceFallback, c.Source)
			assert.NoError(t, c.Validate())
		})
	}
}

func TestClassifyTool_Schema(t *testing.T) {
	schema := ClassifyTool.JSONSchema()
	assert.Equal(t, "object", schema["type"])
	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"classification", "reasoning", "confidence"}, required)
}

func TestClassify_PanicFallsBackToRules(t *testing.T) {
	c := NewClassifier(&fakeLLM{toolPanic: true}, nil, 0, nil)
	var got Classification
	require.NotPanics(t, func() {
		got = c.Classify(context.Background(), "latest ai news")
	})
	assert.Equal(t, CategoryWebSearch, got.Category)
	assert.Equal(t, 0.8, got.Confidence)
	assert.Equal(t, SourceFallback, got.Source)
}
