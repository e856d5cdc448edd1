package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Memory is a fixed-capacity ring buffer of conversation turns.
// When full, appending evicts the oldest turn.
type Memory struct {
	mu    sync.RWMutex
	turns []domain.ConversationTurn
	start int
	size  int
}

// NewMemory creates a memory holding up to capacity turns.
// A capacity of zero or less remembers nothing.
func NewMemory(capacity int) *Memory {
	if capacity < 0 {
		capacity = 0
	}
	return &Memory{turns: make([]domain.ConversationTurn, capacity)}
}

// Append records a turn, evicting the oldest when full.
func (m *Memory) Append(turn domain.ConversationTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	capacity := len(m.turns)
	if capacity == 0 {
		return
	}
	if m.size < capacity {
		m.turns[(m.start+m.size)%capacity] = turn
		m.size++
		return
	}
	m.turns[m.start] = turn
	m.start = (m.start + 1) % capacity
}

// Turns returns the remembered turns, oldest first.
func (m *Memory) Turns() []domain.ConversationTurn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ConversationTurn, 0, m.size)
	for i := 0; i < m.size; i++ {
		out = append(out, m.turns[(m.start+i)%len(m.turns)])
	}
	return out
}

// Len returns the number of remembered turns.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Cap returns the capacity.
func (m *Memory) Cap() int {
	return len(m.turns)
}

// Clear forgets every turn.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.turns {
		m.turns[i] = domain.ConversationTurn{}
	}
	m.start, m.size = 0, 0
}

// Format renders the turns for the {{chat_history}} prompt placeholder.
func (m *Memory) Format() string {
	turns := m.Turns()
	if len(turns) == 0 {
		return "No previous conversation."
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Human: %s\nAssistant: %s\n", t.Question, t.Answer)
	}
	return b.String()
}
