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

package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	einodoc "github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"

	"adaptive-rag/internal/splitter"
	"adaptive-rag/pkg/log"
	"adaptive-rag/pkg/tracing"
)

// Processor 文档处理：加载 -> 清洗 -> 切片，产出带元数据的切片文档
type Processor struct {
	loader      *FileLoader
	transformer *ChunkTransformer
	logger      *log.Logger
}

// FileResult 单个文件的处理结果
type FileResult struct {
	Path   string
	Chunks []*schema.Document
	Err    error
}

// NewProcessor chunkSize/chunkOverlap 非正时为 1000/200
func NewProcessor(chunkSize, chunkOverlap int, logger *log.Logger) *Processor {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap <= 0 {
		chunkOverlap = 200
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Processor{
		loader:      NewFileLoader(),
		transformer: NewChunkTransformer(splitter.NewRecursiveSplitter(chunkSize, chunkOverlap)),
		logger:      logger,
	}
}

// Loader 底层文件加载器
func (p *Processor) Loader() *FileLoader {
	return p.loader
}

// SupportedFormats 支持的扩展名
func (p *Processor) SupportedFormats() []string {
	return p.loader.SupportedFormats()
}

// ProcessFile 处理单个文件
func (p *Processor) ProcessFile(ctx context.Context, path string) ([]*schema.Document, error) {
	ctx, span := tracing.StartIngestSpan(ctx, 1)
	docs, err := p.processFile(ctx, path)
	tracing.EndSpan(span, err)
	return docs, err
}

func (p *Processor) processFile(ctx context.Context, path string) ([]*schema.Document, error) {
	p.logger.Info("Processing file", "path", path)
	docs, err := p.loader.Load(ctx, einodoc.Source{URI: path})
	if err != nil {
		return nil, err
	}
	chunks, err := p.transformer.Transform(ctx, docs)
	if err != nil {
		return nil, err
	}
	p.logger.Info("切片完成", "path", path, "chunks", len(chunks))
	return chunks, nil
}

// ProcessDirectory 递归处理目录下所有受支持的文件；单个文件失败记入结果并继续
func (p *Processor) ProcessDirectory(ctx context.Context, dir string) ([]FileResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("Directory not found: %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var results []FileResult
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			p.logger.Warn("遍历目录出错", "path", path, "error", walkErr)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !p.loader.Supported(path) {
			return nil
		}
		chunks, err := p.ProcessFile(ctx, path)
		if err != nil {
			p.logger.Warn("文件处理失败，跳过", "path", path, "error", err)
		}
		results = append(results, FileResult{Path: path, Chunks: chunks, Err: err})
		return nil
	})
	if err != nil {
		return results, err
	}
	return results, nil
}
