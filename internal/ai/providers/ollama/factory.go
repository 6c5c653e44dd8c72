package ollama

import (
	"github.com/yildizm/librarian/internal/ai"
)

// providerType is the registry name of this provider
const providerType = "ollama"

// Factory builds local Ollama providers
type Factory struct{}

// NewFactory creates a new Ollama provider factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create creates a new Ollama provider instance with the given config
func (f *Factory) Create(config *ai.ProviderConfig) (ai.Provider, error) {
	if config == nil {
		config = f.DefaultConfig()
	}
	return New(FromProviderConfig(config))
}

// Type returns the provider type this factory creates
func (f *Factory) Type() string {
	return providerType
}

// ValidateConfig checks the endpoint and models. No API key is needed.
func (f *Factory) ValidateConfig(config *ai.ProviderConfig) error {
	if config == nil {
		return ai.NewConfigurationError(providerType, "config", "configuration is required")
	}
	if config.Type != "" && config.Type != providerType {
		return ai.NewConfigurationError(providerType, "type", "invalid provider type: expected 'ollama'")
	}
	return FromProviderConfig(config).Validate()
}

// DefaultConfig returns the local defaults
func (f *Factory) DefaultConfig() *ai.ProviderConfig {
	return DefaultConfig().ToProviderConfig()
}

// Capabilities: /api/chat accepts tools but cannot force one, and there
// are no media endpoints
func (f *Factory) Capabilities() ai.Capabilities {
	return ai.Capabilities{}
}

// Register registers the Ollama provider with the global registry
func Register() error {
	return ai.RegisterProvider(providerType, NewFactory())
}
