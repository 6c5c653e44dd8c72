package ollama

import (
	"time"

	"github.com/yildizm/librarian/internal/ai"
)

// Config holds Ollama-specific configuration
type Config struct {
	// BaseURL is the Ollama API endpoint
	BaseURL string `json:"base_url"`

	// ChatModel answers chat requests; it must support tool calling
	ChatModel string `json:"chat_model"`

	// EmbedModel produces embeddings
	EmbedModel string `json:"embed_model"`

	// Timeout for HTTP requests
	Timeout time.Duration `json:"timeout"`

	// DefaultTemperature for requests
	DefaultTemperature float64 `json:"default_temperature"`

	// Retry policy; nil sends each request once
	Retry *ai.RetryConfig `json:"-"`
}

// DefaultConfig returns a default Ollama configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "http://localhost:11434",
		ChatModel:          "llama3.1",
		EmbedModel:         "nomic-embed-text",
		Timeout:            120 * time.Second,
		DefaultTemperature: 0.2,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ai.NewConfigurationError("ollama", "base_url", "base URL is required")
	}

	if c.ChatModel == "" {
		return ai.NewConfigurationError("ollama", "chat_model", "chat model is required")
	}

	if c.EmbedModel == "" {
		return ai.NewConfigurationError("ollama", "embed_model", "embedding model is required")
	}

	if c.Timeout <= 0 {
		return ai.NewConfigurationError("ollama", "timeout", "timeout must be positive")
	}

	if c.DefaultTemperature < 0 || c.DefaultTemperature > 1 {
		return ai.NewConfigurationError("ollama", "default_temperature", "temperature must be between 0 and 1")
	}

	return nil
}

// ToProviderConfig converts Ollama config to generic provider config
func (c *Config) ToProviderConfig() *ai.ProviderConfig {
	return &ai.ProviderConfig{
		Name:               "ollama",
		Type:               "ollama",
		BaseURL:            c.BaseURL,
		ChatModel:          c.ChatModel,
		EmbedModel:         c.EmbedModel,
		DefaultTemperature: &c.DefaultTemperature,
		Timeout:            c.Timeout,
		RetryConfig:        c.Retry,
	}
}

// FromProviderConfig creates Ollama config from generic provider config
func FromProviderConfig(pc *ai.ProviderConfig) *Config {
	config := DefaultConfig()
	if pc == nil {
		return config
	}

	if pc.BaseURL != "" {
		config.BaseURL = pc.BaseURL
	}

	if pc.ChatModel != "" {
		config.ChatModel = pc.ChatModel
	}

	if pc.EmbedModel != "" {
		config.EmbedModel = pc.EmbedModel
	}

	if t := pc.DefaultTemperature; t != nil && *t >= 0 && *t <= 1 {
		config.DefaultTemperature = *t
	}

	if pc.Timeout > 0 {
		config.Timeout = pc.Timeout
	}

	config.Retry = pc.RetryConfig

	return config
}
