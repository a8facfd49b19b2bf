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

package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	einoindexer "github.com/cloudwego/eino/components/indexer"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"

	"adaptive-rag/internal/einoext"
	"adaptive-rag/internal/model/embedding"
	"adaptive-rag/internal/model/llm"
	"adaptive-rag/internal/pipeline/common"
	"adaptive-rag/internal/pipeline/ingest"
	"adaptive-rag/internal/pipeline/query"
	"adaptive-rag/internal/sparse"
	"adaptive-rag/internal/storage/metadata"
	"adaptive-rag/internal/storage/vector"
	"adaptive-rag/pkg/config"
	"adaptive-rag/pkg/log"
	"adaptive-rag/pkg/metrics"
)

// Options 文档索引服务配置
type Options struct {
	Vector       config.VectorConfig
	ChunkSize    int
	ChunkOverlap int
	// BM25Path 非空时启动加载、每次入库后保存 BM25 统计
	BM25Path    string
	Temperature float64
}

// Deps 服务依赖；Metadata 为空时使用内存存储
type Deps struct {
	VectorStore vector.Store
	Embedder    embedding.Embedder
	LLM         llm.Client
	Metadata    metadata.Store
	Logger      *log.Logger
}

// Service 混合检索文档索引：入库（切片、BM25、向量化）与基于检索的问答
type Service struct {
	opts       Options
	collection string
	store      vector.Store
	embedder   embedding.Embedder
	embed      *embedding.EinoAdapter
	encoder    *sparse.BM25
	indexer    einoindexer.Indexer
	retriever  einoretriever.Retriever
	processor  *ingest.Processor
	generator  *query.Generator
	meta       metadata.Store
	logger     *log.Logger

	// fitted 按来源文件记录已计入 BM25 的切片文本，重复入库时先撤销旧统计
	fitted map[string][]string

	// 入库与清空互斥：BM25 拟合与写入需作为一个整体
	mu sync.Mutex
}

// NewService 创建服务并确保集合存在
func NewService(ctx context.Context, opts Options, deps Deps) (*Service, error) {
	if deps.Embedder == nil {
		return nil, errors.New("rag: embedder is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	meta := deps.Metadata
	if meta == nil {
		meta = metadata.NewMemoryStore()
	}
	if opts.Vector.Dimension <= 0 {
		opts.Vector.Dimension = deps.Embedder.Dimension()
	}

	s := &Service{
		opts:       opts,
		collection: einoext.Collection(opts.Vector),
		store:      deps.VectorStore,
		embedder:   deps.Embedder,
		embed:      embedding.NewEinoAdapter(deps.Embedder),
		encoder:    sparse.NewBM25(0, 0),
		processor:  ingest.NewProcessor(opts.ChunkSize, opts.ChunkOverlap, logger),
		generator:  query.NewGenerator(deps.LLM, opts.Temperature),
		meta:       meta,
		logger:     logger,
		fitted:     make(map[string][]string),
	}

	if opts.BM25Path != "" {
		if _, err := os.Stat(opts.BM25Path); err == nil {
			if err := s.encoder.Load(opts.BM25Path); err != nil {
				logger.Warn("加载 BM25 参数失败，将重新拟合", "path", opts.BM25Path, "error", err)
			} else {
				logger.Info("BM25 参数已加载", "path", opts.BM25Path)
			}
		}
	}

	if !s.redisBackend() {
		if s.store == nil {
			return nil, fmt.Errorf("rag: vector type %q requires a vector store", opts.Vector.Type)
		}
		if err := vector.EnsureIndex(ctx, s.store, s.collection, opts.Vector.Dimension, "cosine"); err != nil {
			return nil, fmt.Errorf("rag: ensure collection %s: %w", s.collection, err)
		}
	}

	var err error
	s.indexer, err = einoext.NewIndexer(ctx, opts.Vector, s.store, s.encoder, s.embed)
	if err != nil {
		return nil, fmt.Errorf("rag: indexer: %w", err)
	}
	s.retriever, err = einoext.NewRetriever(ctx, opts.Vector, s.store, s.encoder, s.embed)
	if err != nil {
		return nil, fmt.Errorf("rag: retriever: %w", err)
	}
	return s, nil
}

func (s *Service) redisBackend() bool {
	return s.opts.Vector.Type == "redis"
}

// Query 检索 topK 个切片并生成回答。
// 无命中时不调用 LLM，返回空 Sources；检索错误原样返回（含稀疏向量为空的错误）。
func (s *Service) Query(ctx context.Context, question string, topK int) (*Answer, error) {
	if topK <= 0 {
		topK = 5
	}
	s.logger.Info("Retrieving documents", "question", question, "top_k", topK)
	docs, err := s.retriever.Retrieve(ctx, question,
		einoretriever.WithTopK(topK),
		einoretriever.WithEmbedding(s.embed),
	)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &Answer{Answer: noInfoAnswer, Sources: []Source{}}, nil
	}

	answer, err := s.generator.Generate(ctx, question, docs)
	if err != nil {
		return nil, err
	}
	sources := make([]Source, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, toSource(d))
	}
	return &Answer{
		Answer:        answer,
		Sources:       sources,
		ContextLength: len(query.BuildContext(docs)),
	}, nil
}

func toSource(d *schema.Document) Source {
	return Source{
		FileName:       common.StringMeta(d.MetaData, common.MetaFileName, unknown),
		FileType:       common.StringMeta(d.MetaData, common.MetaFileType, unknown),
		ChunkID:        common.StringMeta(d.MetaData, common.MetaChunkID, unknown),
		ContentPreview: Preview(d.Content, previewLength),
	}
}

// Preview 截取前 n 个字符，超长时追加 "..."
func Preview(content string, n int) string {
	r := []rune(content)
	if len(r) <= n {
		return content
	}
	return string(r[:n]) + "..."
}

// AddDocuments 处理文件或目录并写入索引。单个路径失败记入统计后继续；
// 写入索引失败时统计仍返回，错误追加到 Errors。
func (s *Service) AddDocuments(ctx context.Context, paths []string) ProcessingStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := ProcessingStats{TotalFiles: len(paths), Errors: []string{}, ProcessedFiles: []string{}}
	var chunks []*schema.Document
	var records []*metadata.Document

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			stats.FailedFiles++
			stats.Errors = append(stats.Errors, fmt.Sprintf("Error processing %s: Path not found: %s", path, path))
			metrics.IngestFilesTotal.WithLabelValues("failed").Inc()
			continue
		}

		if info.IsDir() {
			results, err := s.processor.ProcessDirectory(ctx, path)
			if err != nil {
				stats.FailedFiles++
				stats.Errors = append(stats.Errors, fmt.Sprintf("Error processing %s: %v", path, err))
				s.logger.Error("处理目录失败", "path", path, "error", err)
				continue
			}
			n := 0
			for _, r := range results {
				records = append(records, s.record(r.Path, r.Chunks, r.Err))
				if r.Err != nil {
					stats.Errors = append(stats.Errors, fmt.Sprintf("Error processing %s: %v", r.Path, r.Err))
					continue
				}
				chunks = append(chunks, r.Chunks...)
				n += len(r.Chunks)
				stats.ProcessedFiles = append(stats.ProcessedFiles, r.Path)
			}
			stats.SuccessfulFiles++
			stats.TotalChunks += n
			s.logger.Info("Successfully processed directory", "path", path, "chunks", n)
			continue
		}

		docs, err := s.processor.ProcessFile(ctx, path)
		records = append(records, s.record(path, docs, err))
		if err != nil {
			stats.FailedFiles++
			stats.Errors = append(stats.Errors, fmt.Sprintf("Error processing %s: %v", path, err))
			s.logger.Error("处理文件失败", "path", path, "error", err)
			continue
		}
		chunks = append(chunks, docs...)
		stats.ProcessedFiles = append(stats.ProcessedFiles, path)
		stats.SuccessfulFiles++
		stats.TotalChunks += len(docs)
		s.logger.Info("Successfully processed", "path", path, "chunks", len(docs))
	}

	if len(chunks) > 0 {
		if err := s.index(ctx, chunks); err != nil {
			s.logger.Error("写入索引失败", "error", err)
			stats.Errors = append(stats.Errors, fmt.Sprintf("Error adding to retriever: %v", err))
			for _, r := range records {
				if r.Status == metadata.StatusIndexed {
					r.Status = metadata.StatusFailed
					r.Error = err.Error()
				}
			}
		} else {
			metrics.IngestChunksTotal.Add(float64(len(chunks)))
			s.logger.Info("Added chunks to vector database", "chunks", len(chunks))
		}
	}

	for _, r := range records {
		if r.Status == metadata.StatusIndexed {
			metrics.IngestFilesTotal.WithLabelValues("ok").Inc()
		} else {
			metrics.IngestFilesTotal.WithLabelValues("failed").Inc()
		}
		if err := s.meta.Upsert(ctx, r); err != nil {
			s.logger.Warn("写入文档元数据失败", "path", r.Path, "error", err)
		}
	}
	return stats
}

// index 先用新切片拟合 BM25（文档侧编码依赖平均长度），再向量化写入。
// 同一来源文件再次入库时替换其旧统计；写入失败时回滚到入库前的状态。
func (s *Service) index(ctx context.Context, chunks []*schema.Document) error {
	batch := make(map[string][]string)
	var texts []string
	for _, c := range chunks {
		src := common.StringMeta(c.MetaData, common.MetaSource, "")
		batch[src] = append(batch[src], c.Content)
		texts = append(texts, c.Content)
	}
	var previous []string
	for src := range batch {
		previous = append(previous, s.fitted[src]...)
	}
	s.encoder.Unfit(previous)
	s.encoder.Fit(texts)

	if _, err := s.indexer.Store(ctx, chunks, einoindexer.WithEmbedding(s.embed)); err != nil {
		s.encoder.Unfit(texts)
		s.encoder.Fit(previous)
		return err
	}
	for src, t := range batch {
		s.fitted[src] = t
	}
	if s.opts.BM25Path != "" {
		if err := s.encoder.Dump(s.opts.BM25Path); err != nil {
			s.logger.Warn("保存 BM25 参数失败", "path", s.opts.BM25Path, "error", err)
		}
	}
	return nil
}

func (s *Service) record(path string, chunks []*schema.Document, err error) *metadata.Document {
	doc := &metadata.Document{
		ID:     ingest.DocumentID(path),
		Name:   filepath.Base(path),
		Type:   filepath.Ext(path),
		Path:   path,
		Status: metadata.StatusIndexed,
		Chunks: len(chunks),
	}
	if info, statErr := os.Stat(path); statErr == nil {
		doc.Size = info.Size()
	}
	if err != nil {
		doc.Status = metadata.StatusFailed
		doc.Error = err.Error()
	}
	return doc
}

// Stats 索引统计；出错时返回零值与 Error 字段，不返回 error
func (s *Service) Stats(ctx context.Context) IndexStats {
	stats := IndexStats{
		Dimension:  s.opts.Vector.Dimension,
		Namespaces: map[string]NamespaceStats{},
	}
	var (
		n   int
		err error
	)
	if s.redisBackend() {
		n, err = einoext.CountRedisKeys(ctx, s.opts.Vector)
	} else {
		n, err = s.store.Count(ctx, s.collection)
	}
	if err != nil {
		s.logger.Error("获取索引统计失败", "error", err)
		stats.Error = err.Error()
		return stats
	}
	stats.TotalVectorCount = n
	stats.Namespaces[s.collection] = NamespaceStats{VectorCount: n}
	return stats
}

// Clear 清空向量、BM25 统计与文档元数据
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.redisBackend() {
		if err := einoext.ClearRedis(ctx, s.opts.Vector); err != nil {
			return fmt.Errorf("clear redis index: %w", err)
		}
	} else {
		if err := s.store.DeleteIndex(ctx, s.collection); err != nil && !errors.Is(err, vector.ErrIndexNotFound) {
			return fmt.Errorf("delete collection: %w", err)
		}
		if err := vector.EnsureIndex(ctx, s.store, s.collection, s.opts.Vector.Dimension, "cosine"); err != nil {
			return fmt.Errorf("recreate collection: %w", err)
		}
	}

	s.encoder.Reset()
	s.fitted = make(map[string][]string)
	if s.opts.BM25Path != "" {
		if err := os.Remove(s.opts.BM25Path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("删除 BM25 参数文件失败", "path", s.opts.BM25Path, "error", err)
		}
	}
	if err := s.meta.Clear(ctx); err != nil {
		return fmt.Errorf("clear metadata: %w", err)
	}
	s.logger.Info("Index cleared successfully", "collection", s.collection)
	return nil
}

// SupportedFormats 支持的文件扩展名
func (s *Service) SupportedFormats() []string {
	return s.processor.SupportedFormats()
}

// Supported 路径扩展名是否受支持
func (s *Service) Supported(path string) bool {
	return s.processor.Loader().Supported(path)
}

// Documents 已入库文档列表
func (s *Service) Documents(ctx context.Context) ([]*metadata.Document, error) {
	return s.meta.List(ctx, nil, nil)
}

// Close 关闭存储
func (s *Service) Close() error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	errs = append(errs, s.meta.Close())
	return errors.Join(errs...)
}
