package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jingkaihe/mcplab/pkg/config"
	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/mcp/rpc"
	"github.com/jingkaihe/mcplab/pkg/mcp/server"
	"github.com/jingkaihe/mcplab/pkg/presenter"
	"github.com/jingkaihe/mcplab/pkg/tools"
	"github.com/jingkaihe/mcplab/pkg/version"
)

// Serve protocols.
const (
	ProtocolMCP   = "mcp"
	ProtocolHTTP  = "http"
	ProtocolStdio = "stdio"
)

// ServeConfig holds configuration for the serve command.
type ServeConfig struct {
	Protocol string
	Host     string
	Port     int
	Path     string
	Tools    []string
}

// NewServeConfig creates a ServeConfig with default values.
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Protocol: ProtocolMCP,
		Host:     server.DefaultHost,
		Port:     server.DefaultPort,
		Path:     server.DefaultPath,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the learning tools over MCP or plain HTTP",
	Long: `Serve the learning tools (multiply, divide, get_weather, get_japan_pm and
calculator).

  --protocol mcp   MCP over streamable HTTP at http://host:port/path
  --protocol http  GET /tools and POST /call
  --protocol stdio MCP over stdin and stdout, for clients that launch mcplab

Host, port and path can also be taken from an mcpServers entry of mcp.json
with --server. The server runs until interrupted with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := getServeConfigFromFlags(cmd)
		if err != nil {
			return err
		}
		if err := validateServeConfig(config); err != nil {
			return err
		}
		return runServe(cmd.Context(), config)
	},
}

func init() {
	addServeFlags(serveCmd.Flags())
}

func addServeFlags(flags *pflag.FlagSet) {
	defaults := NewServeConfig()
	flags.String("protocol", defaults.Protocol, "Protocol to serve (mcp, http or stdio)")
	flags.String("host", defaults.Host, "Host to bind to")
	flags.Int("port", defaults.Port, "Port to bind to")
	flags.String("path", defaults.Path, "Endpoint path of the MCP server")
	flags.StringSlice("tools", nil, "Tools to serve (default all learning tools)")
	flags.String("config", config.DefaultPath, "Path to the mcp.json configuration, used with --server")
	flags.String("server", "", "Take host, port and path from this mcpServers entry")
}

// getServeConfigFromFlags extracts the serve configuration. Explicit flags win
// over the mcp.json entry named by --server.
func getServeConfigFromFlags(cmd *cobra.Command) (*ServeConfig, error) {
	cfg := NewServeConfig()

	if name, _ := cmd.Flags().GetString("server"); name != "" {
		path, _ := cmd.Flags().GetString("config")
		file, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		entry, err := file.Server(name)
		if err != nil {
			return nil, err
		}
		if entry.Host != "" {
			cfg.Host = entry.Host
		}
		if entry.Port != 0 {
			cfg.Port = entry.Port
		}
		if entry.Path != "" {
			cfg.Path = entry.Path
		}
		switch entry.Transport {
		case ProtocolHTTP, ProtocolStdio:
			cfg.Protocol = entry.Transport
		}
	}

	flags := cmd.Flags()
	if flags.Changed("protocol") {
		cfg.Protocol, _ = flags.GetString("protocol")
	}
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("path") {
		cfg.Path, _ = flags.GetString("path")
	}
	if toolNames, _ := flags.GetStringSlice("tools"); len(toolNames) > 0 {
		cfg.Tools = toolNames
	}
	cfg.Protocol = strings.ToLower(cfg.Protocol)
	return cfg, nil
}

// validateServeConfig validates the serve configuration.
func validateServeConfig(config *ServeConfig) error {
	switch config.Protocol {
	case ProtocolMCP, ProtocolHTTP:
	case ProtocolStdio:
		return nil
	default:
		return errors.Errorf("unknown protocol %q (want %s, %s or %s)", config.Protocol, ProtocolMCP, ProtocolHTTP, ProtocolStdio)
	}
	if config.Host == "" {
		return errors.New("host cannot be empty")
	}
	if strings.ContainsAny(config.Host, " :") {
		return errors.Errorf("invalid host: %s", config.Host)
	}
	if config.Port < 1 || config.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if config.Protocol == ProtocolMCP && !strings.HasPrefix(config.Path, "/") {
		return errors.Errorf("path must start with /: %s", config.Path)
	}
	return nil
}

type toolServer interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

func newToolServer(config *ServeConfig, registry *tools.Registry) (toolServer, string, error) {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	if config.Protocol == ProtocolHTTP {
		s, err := rpc.NewServer(registry, addr)
		if err != nil {
			return nil, "", err
		}
		return s, "http://" + s.Addr(), nil
	}

	s, err := server.NewHTTPServer(registry, server.Config{
		Name:    server.DefaultName,
		Version: version.Get().Version,
		Host:    config.Host,
		Port:    config.Port,
		Path:    config.Path,
	})
	if err != nil {
		return nil, "", err
	}
	return s, s.URL(), nil
}

func runServe(ctx context.Context, config *ServeConfig) error {
	registry, err := tools.DefaultRegistry().Subset(config.Tools)
	if err != nil {
		return err
	}
	if config.Protocol == ProtocolStdio {
		ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return server.ServeStdio(ctx, registry, server.DefaultName, version.Get().Version, os.Stdin, os.Stdout)
	}

	srv, endpoint, err := newToolServer(config, registry)
	if err != nil {
		return errors.Wrap(err, "failed to create tool server")
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	presenter.Success(fmt.Sprintf("%s tool server started", strings.ToUpper(config.Protocol)))
	presenter.Info("Endpoint: " + endpoint)
	for _, t := range registry.List() {
		presenter.Info(fmt.Sprintf("  %s: %s", t.Name(), t.Description()))
	}
	presenter.Info("Press Ctrl+C to stop the server")

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		presenter.Info("Shutdown signal received, stopping server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.G(ctx).WithError(err).Error("failed to shutdown tool server")
			return err
		}
		presenter.Success("Tool server stopped")
		return nil
	}
}
