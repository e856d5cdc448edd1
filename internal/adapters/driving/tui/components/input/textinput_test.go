package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

func TestNewQuestionInput(t *testing.T) {
	input := NewQuestionInput(styles.DefaultStyles())

	require.NotNil(t, input)
	assert.Equal(t, "", input.Value())
	assert.True(t, input.Focused())
	assert.Equal(t, 50, input.Width())
}

func TestNewQuestionInput_NilStyles(t *testing.T) {
	input := NewQuestionInput(nil)

	require.NotNil(t, input)
	assert.NotNil(t, input.styles)
}

func TestQuestionInput_Init(t *testing.T) {
	input := NewQuestionInput(nil)

	assert.NotNil(t, input.Init())
}

func TestQuestionInput_Typing(t *testing.T) {
	input := NewQuestionInput(nil)

	for _, k := range "what is revenue?" {
		updated, _ := input.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{k}})
		assert.Equal(t, input, updated)
	}
	assert.Equal(t, "what is revenue?", input.Value())

	input.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "what is revenue", input.Value())
}

func TestQuestionInput_View(t *testing.T) {
	input := NewQuestionInput(nil)

	view := input.View()

	assert.Contains(t, view, ">")
	assert.Contains(t, view, "Ask a question")
}

func TestQuestionInput_FocusAndBlur(t *testing.T) {
	input := NewQuestionInput(nil)

	input.Blur()
	assert.False(t, input.Focused())

	input.Focus()
	assert.True(t, input.Focused())
}

func TestQuestionInput_SetWidth(t *testing.T) {
	tests := []struct {
		width      int
		inputWidth int
	}{
		{100, 92},
		{10, 20},
	}

	for _, tt := range tests {
		input := NewQuestionInput(nil)
		input.SetWidth(tt.width)

		assert.Equal(t, tt.width, input.Width())
		assert.Equal(t, tt.inputWidth, input.field.Width)
	}
}

func TestQuestionInput_Submit(t *testing.T) {
	input := NewQuestionInput(nil)

	input.SetValue("  what is revenue?  ")
	assert.Equal(t, "what is revenue?", input.Submit())
	assert.Equal(t, "", input.Value())

	input.SetValue("what is revenue?")
	input.Submit()
	input.SetValue("   ")
	assert.Equal(t, "", input.Submit())

	assert.Equal(t, []string{"what is revenue?"}, input.Asked())
}

func TestQuestionInput_Recall(t *testing.T) {
	input := NewQuestionInput(nil)
	for _, q := range []string{"first", "second"} {
		input.SetValue(q)
		input.Submit()
	}
	input.SetValue("draft")

	up := tea.KeyMsg{Type: tea.KeyUp}
	down := tea.KeyMsg{Type: tea.KeyDown}

	input.Update(up)
	assert.Equal(t, "second", input.Value())
	input.Update(up)
	assert.Equal(t, "first", input.Value())
	input.Update(up)
	assert.Equal(t, "first", input.Value(), "stops at the oldest question")

	input.Update(down)
	assert.Equal(t, "second", input.Value())
	input.Update(down)
	assert.Equal(t, "draft", input.Value())
	input.Update(down)
	assert.Equal(t, "draft", input.Value())
}
