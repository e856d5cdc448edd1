package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
)

func TestMCPServeCmd_Flags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"port", "p", "0"},
		{"host", "", "localhost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := mcpServeCmd.Flags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestMCPServeCmd_RequiresRetriever(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	retrieverService = nil

	_, err := execute(t, "mcp", "serve")

	assert.ErrorIs(t, err, mcp.ErrMissingRetrieverService)
}

func TestMCPServeCmd_PortOutOfRange(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "mcp", "serve", "--port", "70000")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 70000 out of range")
}
