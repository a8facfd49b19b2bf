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
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	einodoc "github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"adaptive-rag/internal/pipeline/common"
)

// ParseFunc 把文件字节转为纯文本
type ParseFunc func(data []byte) (string, error)

// FileLoader 本地文件加载器，实现 eino document.Loader：
// 按扩展名选择解析器，返回一个携带文件元数据的整篇文档
type FileLoader struct {
	parsers map[string]ParseFunc
	maxSize int64
}

// NewFileLoader 注册内置解析器：.pdf .txt .md .csv .json
func NewFileLoader() *FileLoader {
	return &FileLoader{
		parsers: map[string]ParseFunc{
			".pdf":  ExtractPDFText,
			".txt":  parsePlainText,
			".md":   parsePlainText,
			".csv":  parseCSV,
			".json": parseJSON,
		},
		maxSize: 100 * 1024 * 1024, // 100MB
	}
}

// Register 注册或覆盖某扩展名的解析器
func (l *FileLoader) Register(ext string, fn ParseFunc) {
	l.parsers[strings.ToLower(ext)] = fn
}

// SupportedFormats 支持的扩展名（排序）
func (l *FileLoader) SupportedFormats() []string {
	out := make([]string, 0, len(l.parsers))
	for ext := range l.parsers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Supported 文件扩展名是否受支持
func (l *FileLoader) Supported(path string) bool {
	_, ok := l.parsers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load 实现 github.com/cloudwego/eino/components/document.Loader，Source.URI 为本地路径或 file://
func (l *FileLoader) Load(ctx context.Context, src einodoc.Source, opts ...einodoc.LoaderOption) ([]*schema.Document, error) {
	path := strings.TrimSpace(src.URI)
	if path == "" {
		return nil, common.NewPipelineError("loader", "Source.URI 为空", common.ErrInvalidInput)
	}
	if strings.HasPrefix(strings.ToLower(path), "file://") {
		path = path[len("file://"):]
	}
	ext := strings.ToLower(filepath.Ext(path))
	parse, ok := l.parsers[ext]
	if !ok {
		return nil, common.NewPipelineError("loader", fmt.Sprintf("Unsupported file type: %s", ext), common.ErrUnsupportedFormat)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, common.NewPipelineError("loader", "File not found: "+path, err)
	}
	if info.Size() > l.maxSize {
		return nil, common.NewPipelineError("loader", fmt.Sprintf("文件大小超过限制: %d > %d", info.Size(), l.maxSize), common.ErrInvalidInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewPipelineError("loader", "读取文件失败", err)
	}
	text, err := parse(data)
	if err != nil {
		return nil, common.NewPipelineError("loader", "解析 "+filepath.Base(path)+" 失败", err)
	}
	text = CleanText(text)
	if text == "" {
		return nil, common.NewPipelineError("loader", "No text content extracted from "+path, common.ErrEmptyContent)
	}

	return []*schema.Document{{
		ID:      DocumentID(path),
		Content: text,
		MetaData: map[string]any{
			common.MetaSource:   path,
			common.MetaFileType: ext,
			common.MetaFileName: filepath.Base(path),
			common.MetaFileSize: info.Size(),
		},
	}}, nil
}

// DocumentID 由文件绝对路径派生的稳定文档 ID，重复入库同一文件时不变
func DocumentID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(path))).String()
}

var (
	inlineSpace = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines  = regexp.MustCompile(`\n{3,}`)
)

// CleanText 统一换行、压缩行内空白与多余空行，保留段落边界供切片使用
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ToValidUTF8(text, "")
	text = inlineSpace.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

func parsePlainText(data []byte) (string, error) {
	return string(data), nil
}

// parseCSV 每行输出为 "列名: 值" 的列表
func parseCSV(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}
	header := records[0]
	var b strings.Builder
	for _, row := range records[1:] {
		fields := make([]string, 0, len(row))
		for i, v := range row {
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) && header[i] != "" {
				name = header[i]
			}
			fields = append(fields, name+": "+v)
		}
		b.WriteString(strings.Join(fields, ", "))
		b.WriteString("\n")
	}
	if len(records) == 1 {
		b.WriteString(strings.Join(header, ", "))
	}
	return b.String(), nil
}

func parseJSON(data []byte) (string, error) {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return "", fmt.Errorf("invalid json: %w", err)
	}
	return out.String(), nil
}

var _ einodoc.Loader = (*FileLoader)(nil)
