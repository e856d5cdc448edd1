package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for docqa resources.
	uriScheme = "docqa://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Index statistics and the active configuration",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "Indexed source files with chunk counts",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "history",
		Name:        "history",
		Description: "Recent questions and answers remembered by the assistant",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)

	// Template for the chunks of one source.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{source}/chunks",
		Name:        "source-chunks",
		Description: "Chunk count and size of one indexed source",
		MIMEType:    "application/json",
	}, s.handleSourceResource)
}

// handleStatsResource returns index statistics.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Admin == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	stats, err := s.ports.Admin.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	type sourceCount struct {
		Source string `json:"source"`
		Chunks int    `json:"chunks"`
	}
	info := struct {
		VectorStore    string        `json:"vector_store"`
		ChatModel      string        `json:"chat_model"`
		EmbeddingModel string        `json:"embedding_model"`
		ChunkSize      int           `json:"chunk_size"`
		ChunkOverlap   int           `json:"chunk_overlap"`
		RetrievalK     int           `json:"retrieval_k"`
		Strategy       string        `json:"strategy"`
		TotalEntries   int           `json:"total_entries"`
		ApproxTokens   int           `json:"approx_tokens"`
		MemoryTurns    int           `json:"memory_turns"`
		MemoryWindow   int           `json:"memory_window"`
		Sources        []sourceCount `json:"sources"`
	}{
		VectorStore:    stats.VectorStore,
		ChatModel:      stats.ChatModel,
		EmbeddingModel: stats.EmbeddingModel,
		ChunkSize:      stats.ChunkSize,
		ChunkOverlap:   stats.ChunkOverlap,
		RetrievalK:     stats.RetrievalK,
		Strategy:       string(stats.Strategy),
		TotalEntries:   stats.TotalEntries,
		ApproxTokens:   stats.ApproxTokens,
		MemoryTurns:    stats.MemoryTurns,
		MemoryWindow:   stats.MemoryWindow,
		Sources:        make([]sourceCount, len(stats.Sources)),
	}
	for i, src := range stats.Sources {
		info.Sources[i] = sourceCount{Source: src.SourceID, Chunks: src.Chunks}
	}

	return jsonResult(req.Params.URI, info)
}

// sourceInfo is the JSON form of an indexed source.
type sourceInfo struct {
	Source     string `json:"source"`
	Format     string `json:"format"`
	Chunks     int    `json:"chunks"`
	Characters int    `json:"characters"`
}

// handleSourcesResource returns every indexed source.
func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Admin == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	sources, err := s.ports.Admin.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	infos := make([]sourceInfo, len(sources))
	for i, src := range sources {
		infos[i] = sourceInfo{
			Source:     src.SourceID,
			Format:     string(src.Format),
			Chunks:     src.Chunks,
			Characters: src.Characters,
		}
	}

	return jsonResult(req.Params.URI, infos)
}

// handleSourceResource returns the entry summary of one source.
func (s *Server) handleSourceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Admin == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract the source from URI: docqa://sources/{source}/chunks
	source := extractSource(req.Params.URI)
	if source == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	sources, err := s.ports.Admin.Sources(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	for _, src := range sources {
		if src.SourceID != source {
			continue
		}
		return jsonResult(req.Params.URI, sourceInfo{
			Source:     src.SourceID,
			Format:     string(src.Format),
			Chunks:     src.Chunks,
			Characters: src.Characters,
		})
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

// handleHistoryResource returns the remembered conversation turns.
func (s *Server) handleHistoryResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	type turnInfo struct {
		Question string   `json:"question"`
		Answer   string   `json:"answer"`
		Sources  []string `json:"sources,omitempty"`
	}

	infos := []turnInfo{}
	if s.ports.Chat != nil {
		for _, turn := range s.ports.Chat.History() {
			info := turnInfo{Question: turn.Question, Answer: turn.Answer}
			for _, c := range turn.Sources {
				info.Sources = append(info.Sources, c.Source)
			}
			infos = append(infos, info)
		}
	}

	return jsonResult(req.Params.URI, infos)
}

// jsonResult marshals v as the single content of a resource result.
func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSource extracts the source path from a URI like docqa://sources/{source}/chunks.
// Sources are file paths, so the segment is percent-decoded.
func extractSource(uri string) string {
	const prefix = uriScheme + "sources/"
	const suffix = "/chunks"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	source, err := url.PathUnescape(strings.TrimSuffix(uri, suffix))
	if err != nil {
		return ""
	}
	return source
}
