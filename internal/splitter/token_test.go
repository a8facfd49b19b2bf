package splitter

import (
	"testing"
)

func TestTokenSplitter_Name(t *testing.T) {
	s := NewTokenSplitter(0, 0)
	if s.Name() != "token" {
		t.Errorf("Name: got %q", s.Name())
	}
}

func TestTokenSplitter_Split_ShortContent(t *testing.T) {
	s := NewTokenSplitter(10, 2)
	chunks := s.Split("hello world")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for short text, got %d", len(chunks))
	}
	if chunks[0].Content != "hello world" {
		t.Errorf("chunk content: %q", chunks[0].Content)
	}
}

func TestTokenSplitter_Split_WithOverlap(t *testing.T) {
	s := NewTokenSplitter(3, 1)
	chunks := s.Split("a b c d e f g h i j")
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks for 10 words, got %d", len(chunks))
	}
	if chunks[0].Content != "a b c" || chunks[1].Content != "c d e" {
		t.Errorf("unexpected chunks: %q, %q", chunks[0].Content, chunks[1].Content)
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
}

func TestTokenSplitter_Split_EmptyContent(t *testing.T) {
	s := NewTokenSplitter(3, 1)
	if chunks := s.Split(""); len(chunks) != 0 {
		t.Errorf("empty content should yield 0 chunks, got %d", len(chunks))
	}
}
