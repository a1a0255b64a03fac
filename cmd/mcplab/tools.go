package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/mcplab/pkg/config"
	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/mcp/client"
	"github.com/jingkaihe/mcplab/pkg/presenter"
	tooltypes "github.com/jingkaihe/mcplab/pkg/types/tools"
)

// ToolsConfig says which tool server the tools commands talk to.
type ToolsConfig struct {
	ServerURL  string
	Protocol   string
	Headers    []string
	JSON       bool
	// All lists every server of ConfigPath instead of one endpoint.
	All        bool
	ConfigPath string
}

// NewToolsConfig returns the tools defaults.
func NewToolsConfig() *ToolsConfig {
	return &ToolsConfig{Protocol: "mcp", ConfigPath: config.DefaultPath}
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and call the tools of a tool server",
	Long: `List or call the tools of a tool server. Without --server-url the learning
tools are served in process.`,
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools a server offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config := getToolsConfigFromFlags(cmd)
		if config.All {
			return listConfiguredServers(cmd.Context(), config)
		}
		return withToolSession(cmd.Context(), config, func(ctx context.Context, s client.Session) error {
			descriptors, err := s.ListTools(ctx)
			if err != nil {
				return err
			}
			if config.JSON {
				return printJSON(descriptors)
			}
			printDescriptors(descriptors)
			return nil
		})
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <tool> [json-arguments]",
	Short: "Call a tool",
	Long: `Call a tool with arguments given as a JSON object or as key=value pairs.

  mcplab tools call multiply '{"a": 3, "b": 5}'
  mcplab tools call get_weather city=東京`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := getToolsConfigFromFlags(cmd)
		params, err := parseToolArguments(args[1:])
		if err != nil {
			return err
		}
		return withToolSession(cmd.Context(), config, func(ctx context.Context, s client.Session) error {
			result, err := s.CallTool(ctx, args[0], params)
			if err != nil {
				return errors.Wrapf(err, "tool %s failed", args[0])
			}
			if config.JSON {
				return printJSON(map[string]any{"result": result})
			}
			fmt.Println(formatResult(result))
			return nil
		})
	},
}

func init() {
	defaults := NewToolsConfig()
	toolsCmd.PersistentFlags().String("server-url", "", "Tool server endpoint (default: learning tools in process)")
	toolsCmd.PersistentFlags().String("protocol", defaults.Protocol, "Tool server protocol (mcp, sse or http)")
	toolsCmd.PersistentFlags().StringArray("header", nil, "Extra request header, as \"Key: value\"")
	toolsCmd.PersistentFlags().Bool("json", false, "Print JSON")

	toolsListCmd.Flags().Bool("all", false, "List the tools of every server in mcp.json")
	toolsListCmd.Flags().String("config", defaults.ConfigPath, "Path to the mcp.json configuration, used with --all")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)
}

func getToolsConfigFromFlags(cmd *cobra.Command) *ToolsConfig {
	config := NewToolsConfig()
	if url, err := cmd.Flags().GetString("server-url"); err == nil {
		config.ServerURL = url
	}
	if protocol, err := cmd.Flags().GetString("protocol"); err == nil {
		config.Protocol = protocol
	}
	if headers, err := cmd.Flags().GetStringArray("header"); err == nil {
		config.Headers = headers
	}
	if asJSON, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = asJSON
	}
	if all, err := cmd.Flags().GetBool("all"); err == nil {
		config.All = all
	}
	if path, err := cmd.Flags().GetString("config"); err == nil {
		config.ConfigPath = path
	}
	return config
}

func withToolSession(ctx context.Context, config *ToolsConfig, f func(context.Context, client.Session) error) error {
	headers, err := parseHeaders(config.Headers)
	if err != nil {
		return err
	}
	session, err := openToolSession(ctx, config.ServerURL, config.Protocol, headers)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to close tool session")
		}
	}()
	return f(ctx, session)
}

// listConfiguredServers lists the tools of every mcp.json server. A server
// that cannot be reached is reported and skipped.
func listConfiguredServers(ctx context.Context, flags *ToolsConfig) error {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		return err
	}
	servers, err := cfg.ClientConfigs()
	if err != nil {
		return err
	}
	manager, err := client.NewManager(servers)
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(ctx); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to close tool sessions")
		}
	}()

	catalogs := map[string][]tooltypes.ToolDescriptor{}
	for _, name := range manager.Names() {
		session, err := manager.Get(name)
		if err != nil {
			return err
		}
		if err := session.Initialize(ctx); err != nil {
			presenter.Warning(fmt.Sprintf("%s: %v", name, err))
			continue
		}
		descriptors, err := session.ListTools(ctx)
		if err != nil {
			presenter.Warning(fmt.Sprintf("%s: %v", name, err))
			continue
		}
		catalogs[name] = descriptors
	}

	if flags.JSON {
		return printJSON(catalogs)
	}
	for _, name := range manager.Names() {
		descriptors, ok := catalogs[name]
		if !ok {
			continue
		}
		presenter.Success(fmt.Sprintf("%s (%d tools)", name, len(descriptors)))
		printDescriptors(descriptors)
	}
	return nil
}

// parseToolArguments accepts one JSON object or any number of key=value pairs.
// Values of key=value pairs are decoded as JSON when they parse, so numbers
// stay numbers.
func parseToolArguments(args []string) (map[string]any, error) {
	params := map[string]any{}
	if len(args) == 0 {
		return params, nil
	}
	if len(args) == 1 && strings.HasPrefix(strings.TrimSpace(args[0]), "{") {
		if err := json.Unmarshal([]byte(args[0]), &params); err != nil {
			return nil, errors.Wrap(err, "arguments are not a JSON object")
		}
		return params, nil
	}
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, errors.Errorf("invalid argument %q (want key=value)", arg)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}

func formatResult(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprint(result)
	}
	return string(b)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printDescriptors(descriptors []tooltypes.ToolDescriptor) {
	for _, d := range descriptors {
		presenter.Section(d.Name)
		fmt.Println(d.Description)
		for _, p := range d.Parameters {
			required := ""
			if p.Required {
				required = ", required"
			}
			fmt.Printf("  - %s (%s%s)", p.Name, p.Type, required)
			if p.Description != "" {
				fmt.Printf(": %s", p.Description)
			}
			fmt.Println()
		}
	}
}
