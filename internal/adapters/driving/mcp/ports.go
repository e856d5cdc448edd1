package mcp

import (
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retriever finds passages for the retrieve tool.
	Retriever driving.RetrieverService

	// Chat answers questions for the ask tool and serves the history resource.
	Chat driving.ChatService

	// Admin serves the stats and sources resources.
	Admin driving.IndexAdmin

	// DefaultK is the passage count used when a tool call does not set one.
	DefaultK int
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetrieverService
	}
	// Chat and Admin are optional; without a chat model only retrieval is served
	return nil
}
