// Package driving holds the use cases the CLI, the chat TUI and the MCP
// server call into. internal/core/services implements them.
package driving
