package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecursiveSplitter_ShortTextSingleChunk(t *testing.T) {
	s := NewRecursiveSplitter(1000, 200)
	chunks := s.Split("Attention is all you need.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Attention is all you need.", chunks[0].Content)
}

func TestRecursiveSplitter_EmptyText(t *testing.T) {
	assert.Empty(t, NewRecursiveSplitter(100, 10).Split("  \n\n "))
}

func TestRecursiveSplitter_RespectsChunkSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("The transformer model relies entirely on attention mechanisms. ")
		if i%5 == 4 {
			b.WriteString("\n\n")
		}
	}
	s := NewRecursiveSplitter(200, 40)
	chunks := s.Split(b.String())
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 200)
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
	}
}

func TestRecursiveSplitter_Overlap(t *testing.T) {
	words := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		words = append(words, "word")
	}
	s := NewRecursiveSplitter(50, 20)
	chunks := s.Split(strings.Join(words, " "))
	require.Greater(t, len(chunks), 1)
	// 相邻块共享尾部词
	assert.True(t, strings.HasPrefix(chunks[1].Content, "word word"))
}

func TestRecursiveSplitter_LongWordFallsBackToRunes(t *testing.T) {
	s := NewRecursiveSplitter(10, 2)
	chunks := s.Split(strings.Repeat("字", 25))
	require.NotEmpty(t, chunks)
	total := 0
	for _, c := range chunks {
		n := utf8.RuneCountInString(c.Content)
		assert.LessOrEqual(t, n, 10)
		total += n
	}
	assert.GreaterOrEqual(t, total, 25)
}

func TestNewRecursiveSplitter_ClampsOverlap(t *testing.T) {
	s := NewRecursiveSplitter(100, 500)
	assert.Less(t, s.chunkOverlap, s.chunkSize)
}

func TestEngine(t *testing.T) {
	e := NewEngine(1000, 200)
	assert.Equal(t, []string{"recursive", "token"}, e.GetSplitters())

	chunks, err := e.Split("hello world", "recursive")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	_, err = e.Split("hello", "semantic")
	assert.Error(t, err)
}
