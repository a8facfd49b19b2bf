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

// Source 回答引用的切片
type Source struct {
	FileName       string `json:"file_name"`
	FileType       string `json:"file_type"`
	ChunkID        string `json:"chunk_id"`
	ContentPreview string `json:"content_preview"`
}

// Answer 文档问答结果；无检索命中时 Sources 为空切片
type Answer struct {
	Answer        string   `json:"answer"`
	Sources       []Source `json:"sources"`
	ContextLength int      `json:"context_length"`
}

// ProcessingStats 一次 AddDocuments 的处理统计
type ProcessingStats struct {
	TotalFiles      int      `json:"total_files"`
	SuccessfulFiles int      `json:"successful_files"`
	FailedFiles     int      `json:"failed_files"`
	TotalChunks     int      `json:"total_chunks"`
	Errors          []string `json:"errors"`
	// ProcessedFiles 成功切片的文件路径（目录会展开为其中的文件）
	ProcessedFiles []string `json:"processed_files"`
}

// NamespaceStats 单个集合的向量数
type NamespaceStats struct {
	VectorCount int `json:"vector_count"`
}

// IndexStats 索引统计
type IndexStats struct {
	TotalVectorCount int                       `json:"total_vector_count"`
	Dimension        int                       `json:"dimension"`
	IndexFullness    float64                   `json:"index_fullness"`
	Namespaces       map[string]NamespaceStats `json:"namespaces"`
	Error            string                    `json:"error,omitempty"`
}

const (
	previewLength = 200
	unknown       = "Unknown"
	noInfoAnswer  = "I don't have enough information to answer this question."
)
