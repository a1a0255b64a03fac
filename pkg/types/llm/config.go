package llm

// Provider names understood by the LLM factory.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Config holds the configuration for a decision collaborator backed by a model.
type Config struct {
	Provider string `mapstructure:"provider" json:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" json:"model" yaml:"model"`

	Temperature    float64 `mapstructure:"temperature" json:"temperature" yaml:"temperature"`
	UseTemperature bool    `mapstructure:"use_temperature" json:"use_temperature" yaml:"use_temperature"`

	// MaxTokens caps the response length. UseMaxCompletionTokens sends it as
	// max_completion_tokens, which newer OpenAI model families require.
	MaxTokens              int  `mapstructure:"max_tokens" json:"max_tokens" yaml:"max_tokens"`
	UseMaxCompletionTokens bool `mapstructure:"use_max_completion_tokens" json:"use_max_completion_tokens" yaml:"use_max_completion_tokens"`

	APIKey  string `mapstructure:"api_key" json:"-" yaml:"-"`
	BaseURL string `mapstructure:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty"`

	Retry RetryConfig `mapstructure:"retry" json:"retry" yaml:"retry"`
}

// RetryConfig controls how transient API failures are retried.
type RetryConfig struct {
	Attempts     int    `mapstructure:"attempts" json:"attempts" yaml:"attempts"`
	InitialDelay int    `mapstructure:"initial_delay" json:"initial_delay" yaml:"initial_delay"` // milliseconds
	MaxDelay     int    `mapstructure:"max_delay" json:"max_delay" yaml:"max_delay"`             // milliseconds
	BackoffType  string `mapstructure:"backoff_type" json:"backoff_type" yaml:"backoff_type"`    // fixed or exponential
}

// DefaultRetryConfig is applied when no retry settings are configured.
var DefaultRetryConfig = RetryConfig{
	Attempts:     3,
	InitialDelay: 1000,
	MaxDelay:     10000,
	BackoffType:  "exponential",
}

// Request is a single decision request: a system instruction and the user text.
type Request struct {
	System string
	User   string
}

// Response is the text a model produced together with its token accounting.
type Response struct {
	Text  string
	Model string
	Usage UsageRecord
}
