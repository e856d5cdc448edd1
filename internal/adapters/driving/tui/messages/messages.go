// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// QuestionSubmitted is sent when the user submits a question.
type QuestionSubmitted struct {
	Question string
}

// AnswerCompleted carries the answering pipeline result back to the model.
type AnswerCompleted struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// CommandEntered is sent when the input starts with a slash.
type CommandEntered struct {
	Command Command
	Raw     string
}

// Command identifies a slash command.
type Command int

const (
	// CommandUnknown is any unrecognised slash command.
	CommandUnknown Command = iota
	// CommandClear forgets the conversation.
	CommandClear
	// CommandHistory prints the remembered turns.
	CommandHistory
	// CommandSources toggles source display.
	CommandSources
	// CommandExit leaves the chat.
	CommandExit
	// CommandHelp lists the commands.
	CommandHelp
)

// ParseCommand maps a slash command to its Command.
func ParseCommand(raw string) Command {
	switch raw {
	case "/clear":
		return CommandClear
	case "/history":
		return CommandHistory
	case "/sources":
		return CommandSources
	case "/exit", "/quit":
		return CommandExit
	case "/help":
		return CommandHelp
	default:
		return CommandUnknown
	}
}

// String returns the slash form of the command.
func (c Command) String() string {
	switch c {
	case CommandClear:
		return "/clear"
	case CommandHistory:
		return "/history"
	case CommandSources:
		return "/sources"
	case CommandExit:
		return "/exit"
	case CommandHelp:
		return "/help"
	default:
		return "unknown"
	}
}
