package ingest

import (
	"context"

	einodoc "github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"adaptive-rag/internal/pipeline/common"
	"adaptive-rag/internal/splitter"
)

// ChunkTransformer 切片转换器，实现 eino document.Transformer。
// 每个切片继承源文档元数据，并附加 chunk_id、total_chunks、document_id。
type ChunkTransformer struct {
	splitter splitter.Splitter
}

// NewChunkTransformer s 为 nil 时使用 1000/200 的递归字符切片
func NewChunkTransformer(s splitter.Splitter) *ChunkTransformer {
	if s == nil {
		s = splitter.NewRecursiveSplitter(1000, 200)
	}
	return &ChunkTransformer{splitter: s}
}

// Transform 实现 github.com/cloudwego/eino/components/document.Transformer
func (t *ChunkTransformer) Transform(ctx context.Context, src []*schema.Document, opts ...einodoc.TransformerOption) ([]*schema.Document, error) {
	var out []*schema.Document
	for _, doc := range src {
		if doc == nil {
			continue
		}
		chunks := t.splitter.Split(doc.Content)
		for _, c := range chunks {
			meta := make(map[string]any, len(doc.MetaData)+3)
			for k, v := range doc.MetaData {
				meta[k] = v
			}
			meta[common.MetaChunkID] = c.Index
			meta[common.MetaTotalChunks] = len(chunks)
			meta[common.MetaDocumentID] = doc.ID
			out = append(out, &schema.Document{
				ID:       uuid.NewString(),
				Content:  c.Content,
				MetaData: meta,
			})
		}
	}
	return out, nil
}

var _ einodoc.Transformer = (*ChunkTransformer)(nil)
