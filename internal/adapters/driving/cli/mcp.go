package cli

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the index to AI assistants",
	Long:  `Expose retrieval and question answering over the Model Context Protocol.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server backed by the document index.

Tools:      retrieve, and ask when a chat model is configured
Resources:  docqa://stats, docqa://sources, docqa://history

The server speaks JSON-RPC over stdio unless --port is given, in which case
it serves streamable HTTP on --host:--port until interrupted.

  docqa mcp serve
  docqa mcp serve --port 8080 --host 0.0.0.0

To register it with an assistant:

  {"mcpServers": {"docqa": {"command": "docqa", "args": ["mcp", "serve"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 serves over stdio)")
	mcpServeCmd.Flags().String("host", "localhost", "HTTP bind address")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	host, err := cmd.Flags().GetString("host")
	if err != nil {
		return fmt.Errorf("getting host flag: %w", err)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Retriever: retrieverService,
		Chat:      chatService,
		Admin:     adminService,
		DefaultK:  config().Retrieval.K,
	})
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if port == 0 {
		return server.Run(ctx)
	}

	// stdout is free in HTTP mode; stdio mode reserves it for JSON-RPC.
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	cmd.Printf("MCP server listening on http://%s (tools: %s)\n", addr, strings.Join(server.Tools(), ", "))
	return server.RunHTTP(ctx, addr)
}
