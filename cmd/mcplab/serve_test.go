package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/mcplab/pkg/tools"
)

func TestValidateServeConfig(t *testing.T) {
	tests := []struct {
		name          string
		config        *ServeConfig
		expectedError string
	}{
		{
			name:   "defaults",
			config: NewServeConfig(),
		},
		{
			name:   "http protocol ignores path",
			config: &ServeConfig{Protocol: ProtocolHTTP, Host: "127.0.0.1", Port: 8000},
		},
		{
			name:          "unknown protocol",
			config:        &ServeConfig{Protocol: "grpc", Host: "localhost", Port: 8001, Path: "/mcp"},
			expectedError: `unknown protocol "grpc"`,
		},
		{
			name:   "stdio needs no address",
			config: &ServeConfig{Protocol: ProtocolStdio},
		},
		{
			name:          "empty host",
			config:        &ServeConfig{Protocol: ProtocolMCP, Port: 8001, Path: "/mcp"},
			expectedError: "host cannot be empty",
		},
		{
			name:          "invalid host with colon",
			config:        &ServeConfig{Protocol: ProtocolMCP, Host: "localhost:8001", Port: 8001, Path: "/mcp"},
			expectedError: "invalid host: localhost:8001",
		},
		{
			name:          "port too high",
			config:        &ServeConfig{Protocol: ProtocolMCP, Host: "localhost", Port: 65536, Path: "/mcp"},
			expectedError: "port must be between 1 and 65535",
		},
		{
			name:          "relative path",
			config:        &ServeConfig{Protocol: ProtocolMCP, Host: "localhost", Port: 8001, Path: "mcp"},
			expectedError: "path must start with /",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServeConfig(tt.config)
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func newServeTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "serve"}
	addServeFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestGetServeConfigFromFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config, err := getServeConfigFromFlags(newServeTestCommand(t))
		require.NoError(t, err)
		assert.Equal(t, NewServeConfig(), config)
		assert.Nil(t, config.Tools)
	})

	t.Run("flags", func(t *testing.T) {
		config, err := getServeConfigFromFlags(newServeTestCommand(t,
			"--protocol", "HTTP", "--host", "127.0.0.1", "--port", "9000", "--tools", "multiply,divide"))
		require.NoError(t, err)
		assert.Equal(t, ProtocolHTTP, config.Protocol)
		assert.Equal(t, "127.0.0.1", config.Host)
		assert.Equal(t, 9000, config.Port)
		assert.Equal(t, []string{"multiply", "divide"}, config.Tools)
	})

	t.Run("server entry with flag override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mcp.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
  "mcpServers": {
    "learning-http": {"transport": "http", "host": "127.0.0.1", "port": 8000, "path": "/"}
  }
}`), 0o644))

		config, err := getServeConfigFromFlags(newServeTestCommand(t,
			"--config", path, "--server", "learning-http", "--port", "8100"))
		require.NoError(t, err)
		assert.Equal(t, ProtocolHTTP, config.Protocol)
		assert.Equal(t, "127.0.0.1", config.Host)
		assert.Equal(t, 8100, config.Port)
		assert.Equal(t, "/", config.Path)
	})

	t.Run("unknown server entry", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mcp.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {}}`), 0o644))

		_, err := getServeConfigFromFlags(newServeTestCommand(t, "--config", path, "--server", "missing"))
		assert.Error(t, err)
	})
}

func TestNewToolServer(t *testing.T) {
	registry := tools.DefaultRegistry()

	t.Run("mcp", func(t *testing.T) {
		_, endpoint, err := newToolServer(&ServeConfig{Protocol: ProtocolMCP, Host: "0.0.0.0", Port: 8001, Path: "/mcp"}, registry)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8001/mcp", endpoint)
	})

	t.Run("http binds the listener", func(t *testing.T) {
		srv, endpoint, err := newToolServer(&ServeConfig{Protocol: ProtocolHTTP, Host: "127.0.0.1", Port: 0}, registry)
		require.NoError(t, err)
		assert.Contains(t, endpoint, "http://127.0.0.1:")
		require.NoError(t, srv.Shutdown(t.Context()))
	})
}
