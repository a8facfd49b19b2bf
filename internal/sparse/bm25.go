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

// Package sparse BM25 稀疏向量编码，供混合检索使用
package sparse

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// EmptySparseVectorMarker 空稀疏向量错误的标记文本，外部索引服务也使用同样的措辞
const EmptySparseVectorMarker = "Sparse vector must contain at least one value"

// ErrEmptySparseVector 查询编码后没有任何维度（编码器未拟合或查询词均未出现过）
var ErrEmptySparseVector = errors.New(EmptySparseVectorMarker)

// Vector 稀疏向量，Indices 升序且不重复
type Vector struct {
	Indices []uint32  `json:"indices"`
	Values  []float64 `json:"values"`
}

// Empty 是否没有任何维度
func (v Vector) Empty() bool {
	return len(v.Indices) == 0
}

// Dot 稀疏点积
func Dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += a.Values[i] * b.Values[j]
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// BM25 增量拟合的 BM25 编码器。词经特征哈希映射到 uint32 维度。
type BM25 struct {
	mu       sync.RWMutex
	k1       float64
	b        float64
	nDocs    int
	totalLen int
	docFreq  map[uint32]int
}

// NewBM25 创建编码器；k1、b 非正时使用 1.2、0.75
func NewBM25(k1, b float64) *BM25 {
	if k1 <= 0 {
		k1 = 1.2
	}
	if b <= 0 {
		b = 0.75
	}
	return &BM25{k1: k1, b: b, docFreq: make(map[uint32]int)}
}

// Fit 用一批文本更新文档频率与平均长度（可多次调用）
func (e *BM25) Fit(texts []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range texts {
		tf := termFreq(Tokenize(t))
		for idx := range tf {
			e.docFreq[idx]++
		}
		e.nDocs++
		e.totalLen += tfLen(tf)
	}
}

// Unfit 撤销 Fit 对同一批文本的统计，用于写入失败回滚与重复入库
func (e *BM25) Unfit(texts []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range texts {
		if e.nDocs == 0 {
			return
		}
		tf := termFreq(Tokenize(t))
		for idx := range tf {
			if e.docFreq[idx] <= 1 {
				delete(e.docFreq, idx)
				continue
			}
			e.docFreq[idx]--
		}
		e.nDocs--
		e.totalLen -= tfLen(tf)
		if e.totalLen < 0 {
			e.totalLen = 0
		}
	}
}

// DocCount 已拟合的文本数
func (e *BM25) DocCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nDocs
}

// Fitted 是否已拟合过文本
func (e *BM25) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nDocs > 0
}

// Reset 清空拟合状态
func (e *BM25) Reset() {
	e.mu.Lock()
	e.nDocs, e.totalLen = 0, 0
	e.docFreq = make(map[uint32]int)
	e.mu.Unlock()
}

// EncodeDocument 文档侧编码：BM25 词频饱和与长度归一化；无词时返回空向量
func (e *BM25) EncodeDocument(text string) Vector {
	tf := termFreq(Tokenize(text))
	e.mu.RLock()
	avg := e.avgLen()
	e.mu.RUnlock()

	dl := float64(tfLen(tf))
	weights := make(map[uint32]float64, len(tf))
	for idx, f := range tf {
		freq := float64(f)
		weights[idx] = freq / (freq + e.k1*(1-e.b+e.b*dl/avg))
	}
	return fromMap(weights)
}

// EncodeQuery 查询侧编码：只保留拟合语料中出现过的词，按 IDF 归一化。
// 未拟合或查询分词为空时返回 ErrEmptySparseVector；
// 已拟合但没有任何词命中语料时返回空向量，检索退化为仅稠密向量。
func (e *BM25) EncodeQuery(text string) (Vector, error) {
	tf := termFreq(Tokenize(text))
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.nDocs == 0 {
		return Vector{}, fmt.Errorf("bm25 encoder is not fitted: %w", ErrEmptySparseVector)
	}
	if len(tf) == 0 {
		return Vector{}, fmt.Errorf("query has no terms: %w", ErrEmptySparseVector)
	}
	weights := make(map[uint32]float64, len(tf))
	var total float64
	for idx := range tf {
		df := e.docFreq[idx]
		if df == 0 {
			continue
		}
		idf := math.Log((float64(e.nDocs) + 1) / (float64(df) + 0.5))
		if idf <= 0 {
			continue
		}
		weights[idx] = idf
		total += idf
	}
	if len(weights) == 0 {
		return Vector{}, nil
	}
	for idx := range weights {
		weights[idx] /= total
	}
	return fromMap(weights), nil
}

func (e *BM25) avgLen() float64 {
	if e.nDocs == 0 || e.totalLen == 0 {
		return 1
	}
	return float64(e.totalLen) / float64(e.nDocs)
}

type bm25State struct {
	K1       float64        `json:"k1"`
	B        float64        `json:"b"`
	NDocs    int            `json:"n_docs"`
	TotalLen int            `json:"total_len"`
	DocFreq  map[uint32]int `json:"doc_freq"`
}

// Dump 将拟合状态写入 JSON 文件
func (e *BM25) Dump(path string) error {
	e.mu.RLock()
	state := bm25State{K1: e.k1, B: e.b, NDocs: e.nDocs, TotalLen: e.totalLen, DocFreq: e.docFreq}
	data, err := json.Marshal(state)
	e.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal bm25 state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write bm25 state: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load 从 JSON 文件恢复拟合状态
func (e *BM25) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read bm25 state: %w", err)
	}
	var state bm25State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("unmarshal bm25 state: %w", err)
	}
	if state.DocFreq == nil {
		state.DocFreq = make(map[uint32]int)
	}
	e.mu.Lock()
	if state.K1 > 0 {
		e.k1 = state.K1
	}
	if state.B > 0 {
		e.b = state.B
	}
	e.nDocs, e.totalLen, e.docFreq = state.NDocs, state.TotalLen, state.DocFreq
	e.mu.Unlock()
	return nil
}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be but by for from has have he her his i if in into is it its
		me my of on or our she so than that the their them then there these they this those to was we were what when
		where which who whom why will with you your do does did can could would should about`) {
		stopWords[w] = struct{}{}
	}
}

// Tokenize 小写、按非字母数字切分，去停用词与单字符词
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// TokenIndex 词的特征哈希维度
func TokenIndex(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}

func termFreq(tokens []string) map[uint32]int {
	tf := make(map[uint32]int, len(tokens))
	for _, t := range tokens {
		tf[TokenIndex(t)]++
	}
	return tf
}

func tfLen(tf map[uint32]int) int {
	n := 0
	for _, f := range tf {
		n += f
	}
	return n
}

func fromMap(weights map[uint32]float64) Vector {
	v := Vector{
		Indices: make([]uint32, 0, len(weights)),
		Values:  make([]float64, 0, len(weights)),
	}
	for idx := range weights {
		v.Indices = append(v.Indices, idx)
	}
	sort.Slice(v.Indices, func(i, j int) bool { return v.Indices[i] < v.Indices[j] })
	for _, idx := range v.Indices {
		v.Values = append(v.Values, weights[idx])
	}
	return v
}
