// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It lets AI assistants retrieve passages from the document index and ask
// grounded questions over stdio or HTTP.
package mcp

import "errors"

// ErrMissingRetrieverService is returned when the retriever service is not provided.
var ErrMissingRetrieverService = errors.New("mcp: retriever service is required")
