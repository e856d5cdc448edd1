// Package input is the question line of the chat TUI. Up and down walk
// back through the questions already asked.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

const (
	maxQuestionLen = 2000
	minFieldWidth  = 20
	promptWidth    = 8
)

// QuestionInput is a single-line editor with question recall.
type QuestionInput struct {
	field  textinput.Model
	styles *styles.Styles
	width  int

	asked []string
	// cursor indexes asked while recalling; len(asked) means the draft.
	cursor int
	draft  string
}

// NewQuestionInput returns a focused, empty question line.
func NewQuestionInput(s *styles.Styles) *QuestionInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	field := textinput.New()
	field.Placeholder = "Ask a question, or /help"
	field.CharLimit = maxQuestionLen
	field.Width = 50
	field.Focus()

	return &QuestionInput{field: field, styles: s, width: 50}
}

// Init starts the cursor blinking.
func (q *QuestionInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update edits the line or, for up and down, recalls earlier questions.
func (q *QuestionInput) Update(msg tea.Msg) (*QuestionInput, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.Type {
		case tea.KeyUp:
			q.recall(-1)
			return q, nil
		case tea.KeyDown:
			q.recall(+1)
			return q, nil
		}
	}

	var cmd tea.Cmd
	q.field, cmd = q.field.Update(msg)
	return q, cmd
}

func (q *QuestionInput) recall(step int) {
	next := q.cursor + step
	if next < 0 || next > len(q.asked) {
		return
	}
	if q.cursor == len(q.asked) {
		q.draft = q.field.Value()
	}
	q.cursor = next
	if next == len(q.asked) {
		q.field.SetValue(q.draft)
	} else {
		q.field.SetValue(q.asked[next])
	}
	q.field.CursorEnd()
}

// Submit clears the line and returns its trimmed text. Non-empty text is
// remembered for recall unless it repeats the previous entry.
func (q *QuestionInput) Submit() string {
	text := strings.TrimSpace(q.field.Value())
	q.field.Reset()
	q.draft = ""
	if text != "" && (len(q.asked) == 0 || q.asked[len(q.asked)-1] != text) {
		q.asked = append(q.asked, text)
	}
	q.cursor = len(q.asked)
	return text
}

// View renders the prompt and the line.
func (q *QuestionInput) View() string {
	//nolint:misspell // lipgloss.Center is the library's spelling
	return lipgloss.JoinHorizontal(lipgloss.Center,
		q.styles.Title.Render("> "),
		q.styles.InputField.Render(q.field.View()),
	)
}

// Value returns the text being edited.
func (q *QuestionInput) Value() string {
	return q.field.Value()
}

// SetValue replaces the text being edited.
func (q *QuestionInput) SetValue(value string) {
	q.field.SetValue(value)
}

// Asked returns the remembered questions, oldest first.
func (q *QuestionInput) Asked() []string {
	return q.asked
}

// Focused reports whether keystrokes reach the line.
func (q *QuestionInput) Focused() bool {
	return q.field.Focused()
}

// Focus routes keystrokes to the line.
func (q *QuestionInput) Focus() tea.Cmd {
	return q.field.Focus()
}

// Blur stops routing keystrokes to the line.
func (q *QuestionInput) Blur() {
	q.field.Blur()
}

// SetWidth fits the line to a terminal width, leaving room for the prompt.
func (q *QuestionInput) SetWidth(width int) {
	q.width = width
	q.field.Width = max(width-promptWidth, minFieldWidth)
}

// Width returns the terminal width last set.
func (q *QuestionInput) Width() int {
	return q.width
}
