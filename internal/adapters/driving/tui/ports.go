// Package tui provides the interactive chat terminal user interface for docqa.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Chat answers questions and holds the conversation memory.
	Chat driving.ChatService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(chat driving.ChatService) *Ports {
	return &Ports{Chat: chat}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
