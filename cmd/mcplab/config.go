package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/mcplab/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the mcp.json configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the decoded configuration as YAML",
	Long: `Print mcp.json after defaults are applied, as YAML. Literal API keys and
header values are masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		out, err := renderConfig(cfg.File())
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n%s", cfg.Path(), out)
		return nil
	},
}

func init() {
	configShowCmd.Flags().String("config", config.DefaultPath, "Path to the mcp.json configuration")
	configCmd.AddCommand(configShowCmd)
}

// renderConfig marshals file to YAML with secrets masked.
func renderConfig(file config.File) (string, error) {
	file.LLM.APIKey = maskSecret(file.LLM.APIKey)

	servers := make(map[string]config.Server, len(file.MCPServers))
	for name, s := range file.MCPServers {
		if len(s.Headers) > 0 {
			headers := make(map[string]string, len(s.Headers))
			for k, v := range s.Headers {
				headers[k] = maskSecret(v)
			}
			s.Headers = headers
		}
		servers[name] = s
	}
	file.MCPServers = servers

	b, err := yaml.Marshal(file)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// maskSecret hides literal secrets. ENV: references are shown as is.
func maskSecret(v string) string {
	if v == "" || strings.HasPrefix(v, "ENV:") {
		return v
	}
	if len(v) <= 8 {
		return "********"
	}
	return v[:4] + "****" + v[len(v)-4:]
}
