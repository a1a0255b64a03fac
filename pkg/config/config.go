// Package config loads the mcp.json document that describes tool servers,
// the model, the agent loop, tool description overrides and pricing.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/mcplab/pkg/agent"
	"github.com/jingkaihe/mcplab/pkg/cost"
	"github.com/jingkaihe/mcplab/pkg/llm"
	"github.com/jingkaihe/mcplab/pkg/mcp/client"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// DefaultPath is where commands look for the document when no path is given.
const DefaultPath = "mcp.json"

// Defaults applied to a server entry that leaves them out.
const (
	DefaultServerHost = "localhost"
	DefaultServerPort = 8001
	DefaultServerPath = "/mcp"
)

// Defaults for the llm section.
const (
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.1
	DefaultTimeout     = 30
)

// ErrServerNotFound is returned when a server name is not in mcpServers.
var ErrServerNotFound = errors.New("server not found")

// Server is one entry of mcpServers. Host, port and path describe where a
// server started by `mcplab serve` listens; client fields say how to reach it.
type Server struct {
	Host                string `mapstructure:"host" json:"host,omitempty" yaml:"host,omitempty"`
	Port                int    `mapstructure:"port" json:"port,omitempty" yaml:"port,omitempty"`
	Path                string `mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`
	client.ServerConfig `mapstructure:",squash" yaml:",inline"`
}

// ModelSettings override the llm section for one model.
type ModelSettings struct {
	UseMaxCompletionTokens bool     `mapstructure:"useMaxCompletionTokens" json:"useMaxCompletionTokens,omitempty" yaml:"useMaxCompletionTokens,omitempty"`
	MaxCompletionTokens    int      `mapstructure:"maxCompletionTokens" json:"maxCompletionTokens,omitempty" yaml:"maxCompletionTokens,omitempty"`
	MaxTokens              int      `mapstructure:"maxTokens" json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	UseTemperature         *bool    `mapstructure:"useTemperature" json:"useTemperature,omitempty" yaml:"useTemperature,omitempty"`
	Temperature            *float64 `mapstructure:"temperature" json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// LLM is the llm section.
type LLM struct {
	Provider      string                   `mapstructure:"provider" json:"provider,omitempty" yaml:"provider,omitempty"`
	Model         string                   `mapstructure:"model" json:"model,omitempty" yaml:"model,omitempty"`
	APIKey        string                   `mapstructure:"apiKey" json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	BaseURL       string                   `mapstructure:"baseUrl" json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Temperature   *float64                 `mapstructure:"temperature" json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens     int                      `mapstructure:"maxTokens" json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	ModelSettings map[string]ModelSettings `mapstructure:"modelSettings" json:"modelSettings,omitempty" yaml:"modelSettings,omitempty"`
}

// Agent is the agent section.
type Agent struct {
	MaxIterations    int  `mapstructure:"maxIterations" json:"maxIterations" yaml:"maxIterations"`
	DebugMode        bool `mapstructure:"debugMode" json:"debugMode" yaml:"debugMode"`
	FallbackToDirect bool `mapstructure:"fallbackToDirect" json:"fallbackToDirect" yaml:"fallbackToDirect"`
	StopAfterTool    bool `mapstructure:"stopAfterTool" json:"stopAfterTool" yaml:"stopAfterTool"`
	// Timeout is in seconds.
	Timeout int `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// ToolOverride customizes how a tool is presented to the model.
type ToolOverride struct {
	Description string `mapstructure:"description" json:"description,omitempty" yaml:"description,omitempty"`
}

// Pricing is the pricing section. Model rates are USD per 1,000 tokens and
// are merged over the built-in table.
type Pricing struct {
	MissingPolicy string          `mapstructure:"missingPolicy" json:"missingPolicy,omitempty" yaml:"missingPolicy,omitempty"`
	Models        cost.PriceTable `mapstructure:"models" json:"models,omitempty" yaml:"models,omitempty"`
}

// File is the whole document.
type File struct {
	MCPServers map[string]Server       `mapstructure:"mcpServers" json:"mcpServers" yaml:"mcpServers"`
	LLM        LLM                     `mapstructure:"llm" json:"llm" yaml:"llm"`
	Agent      Agent                   `mapstructure:"agent" json:"agent" yaml:"agent"`
	Tools      map[string]ToolOverride `mapstructure:"tools" json:"tools,omitempty" yaml:"tools,omitempty"`
	Pricing    Pricing                 `mapstructure:"pricing" json:"pricing,omitempty" yaml:"pricing,omitempty"`
}

// Config is a loaded document.
type Config struct {
	path string
	file File
}

func defaultFile() File {
	return File{
		Agent: Agent{
			MaxIterations:    agent.DefaultMaxIterations,
			DebugMode:        true,
			FallbackToDirect: true,
			Timeout:          DefaultTimeout,
		},
	}
}

// Load reads and decodes the document at path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("config file not found: %s", path)
		}
		return nil, errors.Wrapf(err, "failed to access config file %s", path)
	}

	// Model names such as gpt-4.1 contain dots, so keys are split on "::" instead.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", path)
	}

	file := defaultFile()
	if err := v.Unmarshal(&file); err != nil {
		return nil, errors.Wrapf(err, "failed to decode config file %s", path)
	}
	for name, server := range file.MCPServers {
		server.Env = upperKeys(server.Env)
		file.MCPServers[name] = server
	}
	if err := restoreEmptyServers(path, &file); err != nil {
		return nil, err
	}

	return &Config{path: path, file: file}, nil
}

// restoreEmptyServers adds entries such as "name": {} that the loader drops
// because they carry no keys.
func restoreEmptyServers(path string, file *File) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	var raw struct {
		MCPServers map[string]json.RawMessage `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(err, "invalid config file %s", path)
	}
	for name := range raw.MCPServers {
		key := strings.ToLower(name)
		if _, ok := file.MCPServers[key]; ok {
			continue
		}
		if file.MCPServers == nil {
			file.MCPServers = make(map[string]Server)
		}
		file.MCPServers[key] = Server{}
	}
	return nil
}

// upperKeys restores environment variable names, which the loader lowercases.
func upperKeys(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[strings.ToUpper(k)] = v
	}
	return out
}

// Path is where the document was loaded from.
func (c *Config) Path() string {
	return c.path
}

// File returns the decoded document.
func (c *Config) File() File {
	return c.file
}

// Server returns the named mcpServers entry.
func (c *Config) Server(name string) (Server, error) {
	server, ok := c.file.MCPServers[strings.ToLower(name)]
	if !ok {
		return Server{}, errors.Wrapf(ErrServerNotFound, "%q is not in %s", name, c.path)
	}
	return server, nil
}

// ServerURL is the endpoint of the named server: its url when set, otherwise
// http://host:port/path with localhost, 8001 and /mcp as defaults.
func (c *Config) ServerURL(name string) (string, error) {
	server, err := c.Server(name)
	if err != nil {
		return "", err
	}
	if server.URL != "" {
		return server.URL, nil
	}

	host := server.Host
	if host == "" || host == "0.0.0.0" {
		host = DefaultServerHost
	}
	port := server.Port
	if port == 0 {
		port = DefaultServerPort
	}
	path := server.Path
	if path == "" {
		path = DefaultServerPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://%s:%d%s", host, port, path), nil
}

// ClientConfig is how to connect to the named server.
func (c *Config) ClientConfig(name string) (client.ServerConfig, error) {
	server, err := c.Server(name)
	if err != nil {
		return client.ServerConfig{}, err
	}
	cfg := server.ServerConfig
	if cfg.Command == "" && cfg.Transport != client.TransportStdio {
		url, err := c.ServerURL(name)
		if err != nil {
			return cfg, err
		}
		cfg.URL = url
	}
	return cfg, nil
}

// ClientConfigs is ClientConfig for every configured server.
func (c *Config) ClientConfigs() (map[string]client.ServerConfig, error) {
	configs := make(map[string]client.ServerConfig, len(c.file.MCPServers))
	for name := range c.file.MCPServers {
		cfg, err := c.ClientConfig(name)
		if err != nil {
			return nil, err
		}
		configs[name] = cfg
	}
	return configs, nil
}

// ModelSettings returns the per-model overrides for model.
func (c *Config) ModelSettings(model string) ModelSettings {
	return c.file.LLM.ModelSettings[strings.ToLower(model)]
}

// LLMConfig builds the model configuration. max_tokens and
// max_completion_tokens are mutually exclusive, temperature is sent unless a
// model turns it off, and the API key is resolved.
func (c *Config) LLMConfig() (llmtypes.Config, error) {
	section := c.file.LLM
	model := section.Model
	if model == "" {
		model = llm.DefaultModel
	}
	settings := c.ModelSettings(model)

	config := llmtypes.Config{
		Provider: section.Provider,
		Model:    model,
		BaseURL:  section.BaseURL,
		Retry:    llmtypes.DefaultRetryConfig,
	}
	if config.Provider == "" {
		config.Provider = llm.ProviderFor(model)
	}

	if settings.UseMaxCompletionTokens {
		config.UseMaxCompletionTokens = true
		config.MaxTokens = firstPositive(settings.MaxCompletionTokens, DefaultMaxTokens)
	} else {
		config.MaxTokens = firstPositive(settings.MaxTokens, section.MaxTokens, DefaultMaxTokens)
	}

	config.UseTemperature = settings.UseTemperature == nil || *settings.UseTemperature
	if config.UseTemperature {
		switch {
		case settings.Temperature != nil:
			config.Temperature = *settings.Temperature
		case section.Temperature != nil:
			config.Temperature = *section.Temperature
		default:
			config.Temperature = DefaultTemperature
		}
	}

	key, err := llm.ResolveAPIKey(config.Provider, section.APIKey)
	if err != nil {
		return config, err
	}
	config.APIKey = key
	return config, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// AgentConfig is the loop configuration, with tool description overrides applied.
func (c *Config) AgentConfig() agent.Config {
	section := c.file.Agent
	config := agent.Config{
		MaxIterations:        section.MaxIterations,
		FallbackToDirect:     section.FallbackToDirect,
		StopAfterTool:        section.StopAfterTool,
		Debug:                section.DebugMode,
		DescriptionOverrides: c.DescriptionOverrides(),
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = agent.DefaultMaxIterations
	}
	return config
}

// Timeout bounds a single agent request.
func (c *Config) Timeout() time.Duration {
	seconds := c.file.Agent.Timeout
	if seconds <= 0 {
		seconds = DefaultTimeout
	}
	return time.Duration(seconds) * time.Second
}

// ToolDescription returns the configured description for a tool, if any.
func (c *Config) ToolDescription(name string) (string, bool) {
	override, ok := c.file.Tools[strings.ToLower(name)]
	if !ok || override.Description == "" {
		return "", false
	}
	return override.Description, true
}

// DescriptionOverrides maps tool names to configured descriptions.
func (c *Config) DescriptionOverrides() map[string]string {
	if len(c.file.Tools) == 0 {
		return nil
	}
	overrides := make(map[string]string, len(c.file.Tools))
	for name, override := range c.file.Tools {
		if override.Description != "" {
			overrides[strings.ToLower(name)] = override.Description
		}
	}
	return overrides
}

// PriceTable is the built-in table with the configured rates on top.
func (c *Config) PriceTable() cost.PriceTable {
	return cost.DefaultPriceTable().Merge(c.file.Pricing.Models)
}

// MissingPricePolicy is the configured policy for unpriced models.
func (c *Config) MissingPricePolicy() (cost.MissingPricePolicy, error) {
	return cost.ParsePolicy(c.file.Pricing.MissingPolicy)
}

// Calculator prices usage with the configured table and policy.
func (c *Config) Calculator() (*cost.Calculator, error) {
	policy, err := c.MissingPricePolicy()
	if err != nil {
		return nil, err
	}
	return cost.NewCalculator(c.PriceTable(), policy), nil
}
