package common

import "fmt"

// 切片元数据键：ingest 写入，query/rag 读取
const (
	MetaSource      = "source"
	MetaFileType    = "file_type"
	MetaFileName    = "file_name"
	MetaFileSize    = "file_size"
	MetaChunkID     = "chunk_id"
	MetaTotalChunks = "total_chunks"
	MetaDocumentID  = "document_id"
	// MetaContent 切片正文，向量存储以元数据形式保存
	MetaContent = "content"
)

// StringMeta 从 eino 文档元数据中读取字符串，不存在时返回 def
func StringMeta(meta map[string]any, key, def string) string {
	if meta == nil {
		return def
	}
	switch v := meta[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case nil:
	default:
		return fmt.Sprint(v)
	}
	return def
}
