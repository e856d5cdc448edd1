package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query    string            `json:"query" jsonschema:"the question or keywords to find passages for"`
	K        int               `json:"k,omitempty" jsonschema:"maximum number of passages to return"`
	Strategy string            `json:"strategy,omitempty" jsonschema:"similarity, compression or hybrid (default similarity)"`
	Filter   map[string]string `json:"filter,omitempty" jsonschema:"metadata that passages must match, e.g. {\"format\": \"pdf\"}"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Strategy string          `json:"strategy"`
	Passages []PassageOutput `json:"passages"`
	Count    int             `json:"count"`
}

// PassageOutput represents a single retrieved passage.
type PassageOutput struct {
	Source  string  `json:"source"`
	Ordinal int     `json:"ordinal"`
	Page    int     `json:"page,omitempty"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string           `json:"answer"`
	Sources []CitationOutput `json:"sources"`
}

// CitationOutput is a source cited by an answer.
type CitationOutput struct {
	Source  string  `json:"source"`
	Page    int     `json:"page,omitempty"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the passages of the indexed documents most relevant to a query",
	}, s.handleRetrieve)
	s.tools = append(s.tools, "retrieve")

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Answer a question from the indexed documents, citing sources",
		}, s.handleAsk)
		s.tools = append(s.tools, "ask")
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	k := input.K
	if k <= 0 {
		k = s.ports.DefaultK
	}
	if k <= 0 {
		k = domain.DefaultRetrievalK
	}

	var (
		result *domain.RetrievalResult
		err    error
	)
	if len(input.Filter) > 0 {
		result, err = s.ports.Retriever.RetrieveFiltered(ctx, input.Query, k, domain.MetadataFilter(input.Filter))
	} else {
		var strategy domain.Strategy
		strategy, err = domain.ParseStrategy(input.Strategy)
		if err != nil {
			return nil, RetrieveOutput{}, err
		}
		result, err = s.ports.Retriever.Retrieve(ctx, input.Query, strategy, k)
	}
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Strategy: string(result.Strategy),
		Passages: make([]PassageOutput, result.Len()),
		Count:    result.Len(),
	}
	for i, p := range result.Passages {
		output.Passages[i] = PassageOutput{
			Source:  p.Chunk.SourceID,
			Ordinal: p.Chunk.Ordinal,
			Page:    domain.Page(p.Chunk.Metadata),
			Score:   p.Score,
			Content: p.Chunk.Content,
		}
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Chat == nil {
		return nil, AskOutput{}, fmt.Errorf("ask: %w", domain.ErrLLMUnavailable)
	}

	answer, err := s.ports.Chat.Answer(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:  answer.Text,
		Sources: make([]CitationOutput, len(answer.Sources)),
	}
	for i, c := range answer.Sources {
		output.Sources[i] = CitationOutput{
			Source:  c.Source,
			Page:    c.Page,
			Score:   c.Score,
			Preview: c.Preview,
		}
	}

	return nil, output, nil
}
