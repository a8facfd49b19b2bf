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

package router

import "sync"

// DefaultMaxMemoryLength 对话记忆默认上限（条）
const DefaultMaxMemoryLength = 10

// 对话角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn 一条对话记录，写入后不可变
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMemory 定长环形缓冲的对话记忆，超出容量时先淘汰最旧的记录。
// 所有方法并发安全；进程退出即丢失。
type ChatMemory struct {
	mu   sync.Mutex
	buf  []Turn
	head int // 最旧记录下标
	size int
}

// NewChatMemory 创建容量为 capacity 的记忆，capacity<=0 时使用默认 10
func NewChatMemory(capacity int) *ChatMemory {
	if capacity <= 0 {
		capacity = DefaultMaxMemoryLength
	}
	return &ChatMemory{buf: make([]Turn, capacity)}
}

// Append 依次追加记录，同一次调用内的记录在同一把锁下写入
func (m *ChatMemory) Append(turns ...Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range turns {
		m.push(t)
	}
}

// AppendExchange 追加一问一答
func (m *ChatMemory) AppendExchange(question, answer string) {
	m.Append(Turn{Role: RoleUser, Content: question}, Turn{Role: RoleAssistant, Content: answer})
}

func (m *ChatMemory) push(t Turn) {
	capacity := len(m.buf)
	if m.size < capacity {
		m.buf[(m.head+m.size)%capacity] = t
		m.size++
		return
	}
	// 已满：覆盖最旧的一条
	m.buf[m.head] = t
	m.head = (m.head + 1) % capacity
}

// Recent 按原顺序返回最近 n 条；n<=0 或超过现有条数时返回全部
func (m *ChatMemory) Recent(n int) []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > m.size {
		n = m.size
	}
	out := make([]Turn, n)
	start := m.size - n
	for i := 0; i < n; i++ {
		out[i] = m.buf[(m.head+start+i)%len(m.buf)]
	}
	return out
}

// Snapshot 返回全部记录的副本，最新的在最后
func (m *ChatMemory) Snapshot() []Turn {
	return m.Recent(0)
}

// Clear 清空记忆
func (m *ChatMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.buf {
		m.buf[i] = Turn{}
	}
	m.head, m.size = 0, 0
}

// Len 当前条数
func (m *ChatMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Cap 容量上限
func (m *ChatMemory) Cap() int {
	return len(m.buf)
}
