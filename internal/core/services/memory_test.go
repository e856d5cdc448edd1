package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func turn(n int) domain.ConversationTurn {
	return domain.ConversationTurn{Question: fmt.Sprintf("q%d", n), Answer: fmt.Sprintf("a%d", n)}
}

func questions(turns []domain.ConversationTurn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Question
	}
	return out
}

func TestMemory_Append(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		appends  int
		want     []string
	}{
		{name: "empty", capacity: 3, appends: 0, want: []string{}},
		{name: "under capacity", capacity: 3, appends: 2, want: []string{"q1", "q2"}},
		{name: "at capacity", capacity: 3, appends: 3, want: []string{"q1", "q2", "q3"}},
		{name: "evicts oldest", capacity: 3, appends: 5, want: []string{"q3", "q4", "q5"}},
		{name: "wraps twice", capacity: 2, appends: 7, want: []string{"q6", "q7"}},
		{name: "capacity one", capacity: 1, appends: 4, want: []string{"q4"}},
		{name: "disabled", capacity: 0, appends: 3, want: []string{}},
		{name: "negative", capacity: -1, appends: 3, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory(tt.capacity)
			for i := 1; i <= tt.appends; i++ {
				m.Append(turn(i))
				assert.LessOrEqual(t, m.Len(), m.Cap())
			}
			assert.Equal(t, tt.want, questions(m.Turns()))
			assert.Equal(t, len(tt.want), m.Len())
		})
	}
}

func TestMemory_Clear(t *testing.T) {
	m := NewMemory(2)
	m.Append(turn(1))
	m.Append(turn(2))
	m.Append(turn(3))

	m.Clear()
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Turns())

	m.Append(turn(4))
	assert.Equal(t, []string{"q4"}, questions(m.Turns()))
}

func TestMemory_Format(t *testing.T) {
	m := NewMemory(2)
	assert.Equal(t, "No previous conversation.", m.Format())

	m.Append(turn(1))
	m.Append(turn(2))
	assert.Equal(t, "Human: q1\nAssistant: a1\n\nHuman: q2\nAssistant: a2\n", m.Format())
}
