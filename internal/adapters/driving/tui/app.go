package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// chromeHeight is the number of lines used by the title, input and status bar.
const chromeHeight = 6

type entryKind int

const (
	entryQuestion entryKind = iota
	entryAnswer
	entryNote
	entryError
)

// entry is one block of the transcript.
type entry struct {
	kind    entryKind
	text    string
	sources []domain.Citation
}

// App is the chat TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript viewport.Model
	status     *status.Bar

	// entries is the transcript in display order.
	entries []entry

	// showSources controls whether citations follow answers.
	showSources bool

	// busy is set while a question is being answered.
	busy bool

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has received its first window size.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new chat TUI with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		input:       input.NewQuestionInput(s),
		transcript:  viewport.New(80, 24-chromeHeight),
		status:      status.NewBar(s, km),
		showSources: true,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithSources sets whether citations are shown under answers.
func (a *App) WithSources(show bool) *App {
	a.showSources = show
	a.status.SetSourcesShown(show)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.input.Init()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.QuestionSubmitted:
		return a, a.startQuestion(msg.Question)

	case messages.AnswerCompleted:
		a.handleAnswer(msg)
		return a, nil

	case messages.CommandEntered:
		return a, a.handleCommand(msg)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keymap.Send):
		return a, a.submit()
	case key.Matches(msg, a.keymap.ToggleSources):
		a.toggleSources()
		return a, nil
	case key.Matches(msg, a.keymap.Clear):
		a.clearConversation()
		return a, nil
	case key.Matches(msg, a.keymap.ScrollUp, a.keymap.ScrollDown):
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit turns the input line into a question or a slash command.
func (a *App) submit() tea.Cmd {
	if a.busy {
		return nil
	}
	text := a.input.Submit()
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		return func() tea.Msg {
			return messages.CommandEntered{
				Command: messages.ParseCommand(strings.ToLower(text)),
				Raw:     text,
			}
		}
	}
	return func() tea.Msg {
		return messages.QuestionSubmitted{Question: text}
	}
}

func (a *App) startQuestion(question string) tea.Cmd {
	a.entries = append(a.entries, entry{kind: entryQuestion, text: question})
	a.busy = true
	a.status.SetState(status.StateThinking)
	a.refresh()

	ctx, chat := a.ctx, a.ports.Chat
	return func() tea.Msg {
		answer, err := chat.Answer(ctx, question)
		return messages.AnswerCompleted{Question: question, Answer: answer, Err: err}
	}
}

func (a *App) handleAnswer(msg messages.AnswerCompleted) {
	a.busy = false
	if msg.Err != nil {
		a.entries = append(a.entries, entry{kind: entryError, text: msg.Err.Error()})
		a.status.SetState(status.StateError)
		a.status.SetMessage(msg.Err.Error())
		a.refresh()
		return
	}

	a.entries = append(a.entries, entry{
		kind:    entryAnswer,
		text:    msg.Answer.Text,
		sources: msg.Answer.Sources,
	})
	a.status.Clear()
	a.status.SetTurns(len(a.ports.Chat.History()))
	a.refresh()
}

func (a *App) handleCommand(msg messages.CommandEntered) tea.Cmd {
	switch msg.Command {
	case messages.CommandExit:
		return tea.Quit
	case messages.CommandClear:
		a.clearConversation()
	case messages.CommandHistory:
		a.showHistory()
	case messages.CommandSources:
		a.toggleSources()
	case messages.CommandHelp:
		a.note("Commands: /clear forgets the conversation, /history prints it, " +
			"/sources toggles citations, /exit leaves.")
	case messages.CommandUnknown:
		a.entries = append(a.entries, entry{kind: entryError, text: fmt.Sprintf("unknown command %q", msg.Raw)})
		a.refresh()
	}
	return nil
}

func (a *App) clearConversation() {
	a.ports.Chat.ClearMemory()
	a.entries = nil
	a.status.Clear()
	a.status.SetTurns(0)
	a.note("Conversation cleared.")
}

func (a *App) showHistory() {
	turns := a.ports.Chat.History()
	if len(turns) == 0 {
		a.note("No conversation history.")
		return
	}

	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s", i+1, turn.Question, turn.Answer)
	}
	a.note(b.String())
}

func (a *App) toggleSources() {
	a.showSources = !a.showSources
	a.status.SetSourcesShown(a.showSources)
	if a.showSources {
		a.note("Sources shown.")
	} else {
		a.note("Sources hidden.")
	}
}

func (a *App) note(text string) {
	a.entries = append(a.entries, entry{kind: entryNote, text: text})
	a.refresh()
}

// refresh re-renders the transcript and scrolls to the latest entry.
func (a *App) refresh() {
	a.transcript.SetContent(a.render())
	a.transcript.GotoBottom()
}

func (a *App) render() string {
	blocks := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		switch e.kind {
		case entryQuestion:
			blocks = append(blocks, a.styles.Question.Render("You: "+e.text))
		case entryAnswer:
			lines := []string{a.styles.Answer.Width(a.transcript.Width).Render(e.text)}
			if a.showSources {
				for i, c := range e.sources {
					lines = append(lines, a.styles.Citation(i+1, c.Label()))
				}
			}
			blocks = append(blocks, strings.Join(lines, "\n"))
		case entryNote:
			blocks = append(blocks, a.styles.Muted.Render(e.text))
		case entryError:
			blocks = append(blocks, a.styles.Error.Render("Error: "+e.text))
		}
	}
	return strings.Join(blocks, "\n\n")
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render("docqa chat"),
		a.transcript.View(),
		a.input.View(),
		a.status.View(),
	)
}

// SetDimensions sets the terminal dimensions and lays out the components.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.input.SetWidth(width)
	a.status.SetWidth(width)
	a.transcript.Width = width
	a.transcript.Height = max(height-chromeHeight, 1)
	a.refresh()
}

// Transcript returns the rendered conversation.
func (a *App) Transcript() string {
	return a.render()
}

// Busy returns true while a question is being answered.
func (a *App) Busy() bool {
	return a.busy
}

// ShowSources returns whether citations are displayed.
func (a *App) ShowSources() bool {
	return a.showSources
}

// Run starts the chat TUI and blocks until the user quits.
func Run(ctx context.Context, ports *Ports, showSources bool) error {
	app, err := NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx).WithSources(showSources)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
