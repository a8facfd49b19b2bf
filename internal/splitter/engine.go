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

package splitter

import (
	"fmt"
	"sort"
)

// Chunk 切片结果
type Chunk struct {
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// Splitter 文本切片器
type Splitter interface {
	Split(content string) []Chunk
	Name() string
}

// Engine 切片引擎：按名称注册与选择切片器
type Engine struct {
	splitters map[string]Splitter
}

// NewEngine 创建切片引擎并注册内置切片器（recursive、token）
func NewEngine(chunkSize, chunkOverlap int) *Engine {
	e := &Engine{splitters: make(map[string]Splitter)}
	e.AddSplitter(NewRecursiveSplitter(chunkSize, chunkOverlap))
	e.AddSplitter(NewTokenSplitter(chunkSize/4, chunkOverlap/4))
	return e
}

// AddSplitter 注册切片器，同名覆盖
func (e *Engine) AddSplitter(s Splitter) {
	e.splitters[s.Name()] = s
}

// GetSplitter 获取切片器
func (e *Engine) GetSplitter(name string) (Splitter, error) {
	s, ok := e.splitters[name]
	if !ok {
		return nil, fmt.Errorf("splitter not found: %s", name)
	}
	return s, nil
}

// Split 用指定切片器切分文本
func (e *Engine) Split(content, name string) ([]Chunk, error) {
	s, err := e.GetSplitter(name)
	if err != nil {
		return nil, err
	}
	return s.Split(content), nil
}

// GetSplitters 已注册切片器名称（排序）
func (e *Engine) GetSplitters() []string {
	names := make([]string, 0, len(e.splitters))
	for name := range e.splitters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toChunks(parts []string) []Chunk {
	chunks := make([]Chunk, 0, len(parts))
	for i, p := range parts {
		chunks = append(chunks, Chunk{Content: p, Index: i})
	}
	return chunks
}
