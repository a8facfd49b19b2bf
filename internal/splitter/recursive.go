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
	"strings"
	"unicode/utf8"
)

// DefaultSeparators 递归切分使用的分隔符，由粗到细
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter 递归字符切片：优先按段落切，超长片段再按更细的分隔符切，
// 最后把小片段合并到 chunkSize 以内并保留 chunkOverlap 的重叠。长度按字符计。
type RecursiveSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewRecursiveSplitter chunkSize 默认 1000，chunkOverlap 默认 200 且必须小于 chunkSize
func NewRecursiveSplitter(chunkSize, chunkOverlap int) *RecursiveSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &RecursiveSplitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separators: DefaultSeparators}
}

// Name 实现 Splitter
func (s *RecursiveSplitter) Name() string {
	return "recursive"
}

// Split 实现 Splitter
func (s *RecursiveSplitter) Split(content string) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	return toChunks(s.split(content, s.separators))
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = strings.Split(text, "")
	} else {
		pieces = strings.Split(text, sep)
	}

	var out, small []string
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if runeLen(piece) < s.chunkSize {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			out = append(out, s.merge(small, sep)...)
			small = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, rest)...)
		}
	}
	if len(small) > 0 {
		out = append(out, s.merge(small, sep)...)
	}
	return out
}

// merge 把小片段拼成不超过 chunkSize 的块，块之间保留不超过 chunkOverlap 的尾部片段
func (s *RecursiveSplitter) merge(pieces []string, sep string) []string {
	sepLen := runeLen(sep)
	var docs, current []string
	total := 0
	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, p := range pieces {
		l := runeLen(p)
		if total+l+joinLen() > s.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.chunkOverlap || (total > 0 && total+l+joinLen() > s.chunkSize) {
				drop := runeLen(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		total += l + joinLen()
		current = append(current, p)
	}
	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
