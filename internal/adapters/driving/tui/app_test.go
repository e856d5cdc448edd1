package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func newTestApp(t *testing.T, chat *MockChatService) *App {
	t.Helper()
	app, err := NewApp(NewPorts(chat))
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app
}

// typeLine sends the runes of line followed by enter and returns the
// resulting command.
func typeLine(app *App, line string) tea.Cmd {
	for _, r := range line {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

// drain runs cmd and feeds every resulting message back into the app
// until no command is left.
func drain(app *App, cmd tea.Cmd) tea.Msg {
	var last tea.Msg
	for cmd != nil {
		last = cmd()
		if _, ok := last.(tea.QuitMsg); ok {
			return last
		}
		_, cmd = app.Update(last)
	}
	return last
}

func TestNewApp_Success(t *testing.T) {
	app, err := NewApp(NewPorts(&MockChatService{}))

	require.NoError(t, err)
	require.NotNil(t, app)
	assert.True(t, app.ShowSources())
	assert.False(t, app.Busy())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingChatService)
	assert.Nil(t, app)
}

func TestApp_WithContextAndSources(t *testing.T) {
	app, _ := NewApp(NewPorts(&MockChatService{}))

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx).WithSources(false))
	assert.False(t, app.ShowSources())
}

func TestApp_Init(t *testing.T) {
	app, _ := NewApp(NewPorts(&MockChatService{}))

	assert.NotNil(t, app.Init())
}

func TestApp_View_BeforeWindowSize(t *testing.T) {
	app, _ := NewApp(NewPorts(&MockChatService{}))

	assert.Equal(t, "Initialising...", app.View())

	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	view := app.View()
	assert.Contains(t, view, "docqa chat")
	assert.Contains(t, view, "0 turns")
}

func TestApp_AskQuestion(t *testing.T) {
	chat := &MockChatService{
		AnswerFunc: func(_ context.Context, question string) (*domain.Answer, error) {
			return &domain.Answer{
				Question: question,
				Text:     "Revenue grew ten percent.",
				Sources: []domain.Citation{
					{Source: "report.pdf", Page: 1},
					{Source: "notes.txt"},
				},
			}, nil
		},
	}
	app := newTestApp(t, chat)

	cmd := typeLine(app, "What happened to revenue?")
	require.NotNil(t, cmd)

	msg := cmd()
	submitted, ok := msg.(messages.QuestionSubmitted)
	require.True(t, ok)
	assert.Equal(t, "What happened to revenue?", submitted.Question)

	_, cmd = app.Update(msg)
	assert.True(t, app.Busy())
	assert.Contains(t, app.Transcript(), "You: What happened to revenue?")

	drain(app, cmd)

	assert.False(t, app.Busy())
	transcript := app.Transcript()
	assert.Contains(t, transcript, "Revenue grew ten percent.")
	assert.Contains(t, transcript, "[1] report.pdf (page 1)")
	assert.Contains(t, transcript, "[2] notes.txt")
	assert.Contains(t, app.View(), "1 turns")
}

func TestApp_AskQuestion_Error(t *testing.T) {
	chat := &MockChatService{
		AnswerFunc: func(context.Context, string) (*domain.Answer, error) {
			return nil, errors.New("llm unavailable")
		},
	}
	app := newTestApp(t, chat)

	drain(app, typeLine(app, "hello"))

	assert.False(t, app.Busy())
	assert.Contains(t, app.Transcript(), "Error: llm unavailable")
	assert.Contains(t, app.View(), "Error: llm unavailable")
}

func TestApp_EmptyInputIgnored(t *testing.T) {
	app := newTestApp(t, &MockChatService{})

	assert.Nil(t, typeLine(app, "   "))
}

func TestApp_SubmitWhileBusy(t *testing.T) {
	app := newTestApp(t, &MockChatService{})

	_, pending := app.Update(messages.QuestionSubmitted{Question: "first"})
	require.NotNil(t, pending)
	require.True(t, app.Busy())

	assert.Nil(t, typeLine(app, "second"))
}

func TestApp_SlashCommands(t *testing.T) {
	t.Run("history", func(t *testing.T) {
		app := newTestApp(t, &MockChatService{})
		drain(app, typeLine(app, "/history"))
		assert.Contains(t, app.Transcript(), "No conversation history.")

		drain(app, typeLine(app, "first question"))
		drain(app, typeLine(app, "/history"))
		assert.Contains(t, app.Transcript(), "1. Q: first question")
		assert.Contains(t, app.Transcript(), "A: answer to first question")
	})

	t.Run("clear", func(t *testing.T) {
		chat := &MockChatService{}
		app := newTestApp(t, chat)
		drain(app, typeLine(app, "first question"))

		drain(app, typeLine(app, "/clear"))

		assert.Equal(t, 1, chat.cleared)
		assert.Empty(t, chat.History())
		assert.NotContains(t, app.Transcript(), "first question")
		assert.Contains(t, app.Transcript(), "Conversation cleared.")
	})

	t.Run("sources toggle", func(t *testing.T) {
		chat := &MockChatService{
			AnswerFunc: func(_ context.Context, q string) (*domain.Answer, error) {
				return &domain.Answer{Question: q, Text: "ok", Sources: []domain.Citation{{Source: "memo.txt"}}}, nil
			},
		}
		app := newTestApp(t, chat)
		drain(app, typeLine(app, "q"))
		require.Contains(t, app.Transcript(), "memo.txt")

		drain(app, typeLine(app, "/SOURCES"))

		assert.False(t, app.ShowSources())
		assert.NotContains(t, app.Transcript(), "memo.txt")
		assert.Contains(t, app.Transcript(), "Sources hidden.")
	})

	t.Run("help", func(t *testing.T) {
		app := newTestApp(t, &MockChatService{})
		drain(app, typeLine(app, "/help"))
		assert.Contains(t, app.Transcript(), "/clear")
	})

	t.Run("unknown", func(t *testing.T) {
		app := newTestApp(t, &MockChatService{})
		drain(app, typeLine(app, "/bogus"))
		assert.Contains(t, app.Transcript(), `unknown command "/bogus"`)
	})

	t.Run("exit", func(t *testing.T) {
		app := newTestApp(t, &MockChatService{})
		msg := drain(app, typeLine(app, "/exit"))
		assert.IsType(t, tea.QuitMsg{}, msg)
	})
}

func TestApp_KeyBindings(t *testing.T) {
	t.Run("ctrl+c quits", func(t *testing.T) {
		app := newTestApp(t, &MockChatService{})
		_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})

	t.Run("ctrl+s toggles sources", func(t *testing.T) {
		app := newTestApp(t, &MockChatService{})
		app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
		assert.False(t, app.ShowSources())
		app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
		assert.True(t, app.ShowSources())
	})

	t.Run("ctrl+l clears", func(t *testing.T) {
		chat := &MockChatService{}
		app := newTestApp(t, chat)
		app.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
		assert.Equal(t, 1, chat.cleared)
	})

	t.Run("q is typed not quit", func(t *testing.T) {
		app := newTestApp(t, &MockChatService{})
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		assert.Equal(t, "q", app.input.Value())
	})
}

func TestApp_SetDimensions(t *testing.T) {
	app, _ := NewApp(NewPorts(&MockChatService{}))

	app.SetDimensions(120, 40)

	assert.Equal(t, 120, app.width)
	assert.Equal(t, 40, app.height)
	assert.Equal(t, 40-chromeHeight, app.transcript.Height)

	app.SetDimensions(20, 3)
	assert.Equal(t, 1, app.transcript.Height)
}
