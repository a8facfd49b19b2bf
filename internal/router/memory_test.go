package router

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMemory_FIFOEviction(t *testing.T) {
	m := NewChatMemory(10)
	for i := 0; i < 7; i++ {
		m.AppendExchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	snap := m.Snapshot()
	require.Len(t, snap, 10)
	// 最旧的 q0..a1 被淘汰
	assert.Equal(t, Turn{Role: RoleUser, Content: "q2"}, snap[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "a6"}, snap[9])
}

func TestChatMemory_OddCapacityKeepsNewest(t *testing.T) {
	m := NewChatMemory(3)
	m.AppendExchange("q0", "a0")
	m.AppendExchange("q1", "a1")
	assert.Equal(t, []Turn{
		{Role: RoleAssistant, Content: "a0"},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
	}, m.Snapshot())
}

func TestChatMemory_Recent(t *testing.T) {
	m := NewChatMemory(10)
	m.AppendExchange("q0", "a0")
	m.AppendExchange("q1", "a1")
	m.AppendExchange("q2", "a2")

	recent := m.Recent(4)
	require.Len(t, recent, 4)
	assert.Equal(t, "q1", recent[0].Content)
	assert.Equal(t, "a2", recent[3].Content)
	assert.Len(t, m.Recent(100), 6)
}

func TestChatMemory_ClearThenGetIsEmpty(t *testing.T) {
	m := NewChatMemory(0)
	assert.Equal(t, DefaultMaxMemoryLength, m.Cap())
	m.AppendExchange("q", "a")
	m.Clear()
	snap := m.Snapshot()
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
	assert.Equal(t, 0, m.Len())

	m.AppendExchange("q2", "a2")
	assert.Equal(t, "q2", m.Snapshot()[0].Content)
}

func TestChatMemory_SnapshotIsCopyAndIdempotent(t *testing.T) {
	m := NewChatMemory(4)
	m.AppendExchange("q", "a")
	first := m.Snapshot()
	second := m.Snapshot()
	assert.Equal(t, first, second)

	first[0].Content = "mutated"
	assert.Equal(t, "q", m.Snapshot()[0].Content)
}

func TestChatMemory_ConcurrentAppendNeverExceedsCap(t *testing.T) {
	m := NewChatMemory(10)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.AppendExchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
		}(i)
	}
	wg.Wait()
	snap := m.Snapshot()
	require.Len(t, snap, 10)
	// 一问一答在同一把锁下写入，因此总是成对出现
	for i := 0; i < len(snap); i += 2 {
		assert.Equal(t, RoleUser, snap[i].Role)
		assert.Equal(t, RoleAssistant, snap[i+1].Role)
		assert.Equal(t, "a"+snap[i].Content[1:], snap[i+1].Content)
	}
}
