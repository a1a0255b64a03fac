// Package server exposes the tool registry as an MCP server over streamable HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	mcpgo "github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/tools"
)

// Defaults for the MCP endpoint.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8001
	DefaultPath = "/mcp"
	DefaultName = "learning-server"
)

// Config describes where and under which identity the server listens.
type Config struct {
	Name    string
	Version string
	Host    string
	Port    int
	Path    string
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	return c
}

// Addr is host:port.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewMCPServer registers every registry tool on a fresh MCP server.
func NewMCPServer(registry *tools.Registry, name, version string) (*mcpgo.MCPServer, error) {
	s := mcpgo.NewMCPServer(name, version, mcpgo.WithToolCapabilities(false))

	serverTools := make([]mcpgo.ServerTool, 0, len(registry.List()))
	for _, t := range registry.List() {
		schema, err := tools.SchemaMap(t)
		if err != nil {
			return nil, err
		}
		delete(schema, "$schema")
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode schema of tool %s", t.Name())
		}

		serverTools = append(serverTools, mcpgo.ServerTool{
			Tool:    mcp.NewToolWithRawSchema(t.Name(), t.Description(), raw),
			Handler: toolHandler(registry, t.Name()),
		})
	}
	s.AddTools(serverTools...)
	return s, nil
}

func toolHandler(registry *tools.Registry, name string) mcpgo.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log := logger.G(ctx).WithField("tool", name)

		result, err := registry.CallTool(ctx, name, req.GetArguments())
		if err != nil {
			log.WithError(err).Info("tool call failed")
			return mcp.NewToolResultErrorFromErr(fmt.Sprintf("%s failed", name), err), nil
		}

		text, err := ResultText(result)
		if err != nil {
			return mcp.NewToolResultErrorFromErr("failed to encode result", err), nil
		}
		log.WithField("result", text).Info("tool called")
		return mcp.NewToolResultText(text), nil
	}
}

// ResultText renders a tool result as MCP text content. Strings pass through;
// anything else is JSON encoded.
func ResultText(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ServeStdio serves the registry over stdin and stdout until ctx is done or
// stdin is closed.
func ServeStdio(ctx context.Context, registry *tools.Registry, name, version string, stdin io.Reader, stdout io.Writer) error {
	s, err := NewMCPServer(registry, name, version)
	if err != nil {
		return err
	}
	logger.G(ctx).WithField("tools", len(registry.List())).Info("serving MCP over stdio")
	if err := mcpgo.NewStdioServer(s).Listen(ctx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "MCP stdio server failed")
	}
	return nil
}

// HTTPServer serves an MCP server over streamable HTTP.
type HTTPServer struct {
	config     Config
	mcpServer  *mcpgo.MCPServer
	streamable *mcpgo.StreamableHTTPServer
}

// NewHTTPServer builds the MCP server for registry and its HTTP transport.
func NewHTTPServer(registry *tools.Registry, cfg Config) (*HTTPServer, error) {
	cfg = cfg.withDefaults()
	s, err := NewMCPServer(registry, cfg.Name, cfg.Version)
	if err != nil {
		return nil, err
	}
	return &HTTPServer{
		config:     cfg,
		mcpServer:  s,
		streamable: mcpgo.NewStreamableHTTPServer(s, mcpgo.WithEndpointPath(cfg.Path)),
	}, nil
}

// URL is the endpoint clients connect to.
func (s *HTTPServer) URL() string {
	host := s.config.Host
	if host == DefaultHost {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d%s", host, s.config.Port, s.config.Path)
}

// MCPServer returns the underlying MCP server.
func (s *HTTPServer) MCPServer() *mcpgo.MCPServer {
	return s.mcpServer
}

// Handler exposes the streamable HTTP transport for embedding or tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.streamable
}

// Start listens on the configured address until Shutdown.
func (s *HTTPServer) Start(ctx context.Context) error {
	logger.G(ctx).WithField("addr", s.config.Addr()).WithField("path", s.config.Path).Info("starting MCP server")
	if err := s.streamable.Start(s.config.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "MCP server failed")
	}
	return nil
}

// Shutdown stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logger.G(ctx).Info("shutting down MCP server")
	if err := s.streamable.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to shutdown MCP server")
	}
	return nil
}
