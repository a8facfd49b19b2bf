package metadata

import (
	"context"

	apperrors "adaptive-rag/pkg/errors"
)

// ErrNotFound 文档记录不存在
var ErrNotFound = apperrors.Wrap(apperrors.ErrNotFound, "document")

// 文档入库状态
const (
	StatusIndexed = "indexed"
	StatusFailed  = "failed"
)

// Store 已入库文档的元数据存储
type Store interface {
	// Upsert 写入文档记录，ID 已存在时覆盖并保留 CreatedAt
	Upsert(ctx context.Context, doc *Document) error
	// Get 根据 ID 获取文档记录
	Get(ctx context.Context, id string) (*Document, error)
	// Delete 根据 ID 删除文档记录
	Delete(ctx context.Context, id string) error
	// List 按创建时间升序列出文档记录
	List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*Document, error)
	// Count 统计文档数量
	Count(ctx context.Context, filter *Filter) (int64, error)
	// Clear 删除全部记录
	Clear(ctx context.Context) error
	// Close 关闭存储连接
	Close() error
}

// Document 一个已处理的源文件
type Document struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"` // 扩展名，如 ".pdf"
	Size      int64             `json:"size"`
	Path      string            `json:"path"`
	Status    string            `json:"status"`
	Chunks    int               `json:"chunks"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt int64             `json:"created_at"`
	UpdatedAt int64             `json:"updated_at"`
}

// Filter 列表过滤条件，空字段不参与过滤
type Filter struct {
	Types  []string `json:"types"`
	Status []string `json:"status"`
	Search string   `json:"search"` // 名称或路径子串
}

// Pagination 分页参数，Limit<=0 表示不限制
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func (f *Filter) match(doc *Document) bool {
	if f == nil {
		return true
	}
	if len(f.Types) > 0 && !contains(f.Types, doc.Type) {
		return false
	}
	if len(f.Status) > 0 && !contains(f.Status, doc.Status) {
		return false
	}
	if f.Search != "" && !containsFold(doc.Name, f.Search) && !containsFold(doc.Path, f.Search) {
		return false
	}
	return true
}
