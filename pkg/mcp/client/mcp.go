// Package client connects the agent to tool servers, either over MCP or over
// the plain HTTP /tools and /call protocol.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	mcpgo "github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/logger"
	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
	"github.com/jingkaihe/mcplab/pkg/version"
)

// ErrRemoteTool marks a failure reported by the tool server itself.
var ErrRemoteTool = errors.New("remote tool error")

// Transport names accepted in server configuration.
const (
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
	TransportStdio          = "stdio"
	TransportHTTP           = "http"
)

// ServerConfig describes how to reach one tool server.
type ServerConfig struct {
	Transport string            `mapstructure:"transport" json:"transport,omitempty" yaml:"transport,omitempty"`
	URL       string            `mapstructure:"url" json:"url,omitempty" yaml:"url,omitempty"`
	Headers   map[string]string `mapstructure:"headers" json:"headers,omitempty" yaml:"headers,omitempty"`
	Command   string            `mapstructure:"command" json:"command,omitempty" yaml:"command,omitempty"`
	Args      []string          `mapstructure:"args" json:"args,omitempty" yaml:"args,omitempty"`
	Env       map[string]string `mapstructure:"env" json:"env,omitempty" yaml:"env,omitempty"`
}

// MCPClient is a catalog and executor backed by an MCP session.
type MCPClient struct {
	name   string
	client *mcpclient.Client
}

// NewMCPClient builds a client for cfg. Call Initialize before use.
func NewMCPClient(name string, cfg ServerConfig) (*MCPClient, error) {
	kind := cfg.Transport
	if kind == "" {
		switch {
		case cfg.Command != "":
			kind = TransportStdio
		case cfg.URL != "":
			kind = TransportStreamableHTTP
		default:
			return nil, errors.Errorf("server %q needs a url or a command", name)
		}
	}

	var tp transport.Interface
	switch kind {
	case TransportStreamableHTTP:
		if cfg.URL == "" {
			return nil, errors.Errorf("server %q: url is required for %s", name, kind)
		}
		httpTransport, err := transport.NewStreamableHTTP(cfg.URL, transport.WithHTTPHeaders(cfg.Headers))
		if err != nil {
			return nil, errors.Wrapf(err, "server %q", name)
		}
		tp = httpTransport
	case TransportSSE:
		if cfg.URL == "" {
			return nil, errors.Errorf("server %q: url is required for %s", name, kind)
		}
		sseTransport, err := transport.NewSSE(cfg.URL, transport.WithHeaders(cfg.Headers))
		if err != nil {
			return nil, errors.Wrapf(err, "server %q", name)
		}
		tp = sseTransport
	case TransportStdio:
		if cfg.Command == "" {
			return nil, errors.Errorf("server %q: command is required for %s", name, kind)
		}
		env := make([]string, 0, len(cfg.Env))
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		tp = transport.NewStdio(cfg.Command, env, cfg.Args...)
	default:
		return nil, errors.Errorf("server %q: unsupported MCP transport %q", name, kind)
	}

	return &MCPClient{name: name, client: mcpclient.NewClient(tp)}, nil
}

// NewInProcessMCPClient talks to an MCP server living in the same process.
func NewInProcessMCPClient(name string, s *mcpgo.MCPServer) *MCPClient {
	return &MCPClient{name: name, client: mcpclient.NewClient(transport.NewInProcessTransport(s))}
}

// Name is the configured server name.
func (c *MCPClient) Name() string {
	return c.name
}

// Initialize starts the transport and performs the MCP handshake.
func (c *MCPClient) Initialize(ctx context.Context) error {
	log := logger.G(ctx).WithField("server", c.name)
	log.Debug("initializing mcp client")

	if err := c.client.Start(ctx); err != nil {
		return errors.Wrapf(err, "failed to start mcp transport for %q", c.name)
	}

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    "mcplab",
		Version: version.Version,
	}
	result, err := c.client.Initialize(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "mcp handshake with %q failed", c.name)
	}

	log.WithField("server_name", result.ServerInfo.Name).WithField("server_version", result.ServerInfo.Version).Info("connected to mcp server")
	return nil
}

// ListTools implements the agent catalog.
func (c *MCPClient) ListTools(ctx context.Context) ([]tooltypes.ToolDescriptor, error) {
	result, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list tools of %q", c.name)
	}

	descriptors := make([]tooltypes.ToolDescriptor, 0, len(result.Tools))
	for _, t := range result.Tools {
		params, err := toolParameters(t)
		if err != nil {
			return nil, errors.Wrapf(err, "tool %s", t.Name)
		}
		descriptors = append(descriptors, tooltypes.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return descriptors, nil
}

func toolParameters(t mcp.Tool) ([]tooltypes.ParameterSpec, error) {
	if len(t.RawInputSchema) > 0 {
		return tooltypes.ParseParameters(t.RawInputSchema)
	}
	return tooltypes.ParseParameterMap(t.InputSchema.Properties, t.InputSchema.Required), nil
}

// CallTool implements the agent executor. Text content is joined and returned
// as a string; a tool-reported error becomes ErrRemoteTool.
func (c *MCPClient) CallTool(ctx context.Context, name string, params map[string]any) (any, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = params

	result, err := c.client.CallTool(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call tool %s on %q", name, c.name)
	}

	text := contentText(result.Content)
	if result.IsError {
		return nil, errors.Wrap(ErrRemoteTool, text)
	}
	return text, nil
}

func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				parts = append(parts, fmt.Sprintf("%v", v))
				continue
			}
			parts = append(parts, string(b))
		}
	}
	return strings.Join(parts, "\n")
}

// Close ends the MCP session.
func (c *MCPClient) Close() error {
	if err := c.client.Close(); err != nil {
		return errors.Wrapf(err, "failed to close mcp client %q", c.name)
	}
	return nil
}
