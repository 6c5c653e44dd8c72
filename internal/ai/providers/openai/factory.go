package openai

import (
	"github.com/yildizm/librarian/internal/ai"
)

const providerType = "openai"

// Factory builds OpenAI providers
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(config *ai.ProviderConfig) (ai.Provider, error) {
	if config == nil {
		config = f.DefaultConfig()
	}
	return New(FromProviderConfig(config))
}

func (f *Factory) Type() string {
	return providerType
}

// ValidateConfig requires an API key in addition to the model names
func (f *Factory) ValidateConfig(config *ai.ProviderConfig) error {
	if config == nil {
		return ai.NewConfigurationError(providerType, "config", "configuration is required")
	}
	if config.Type != "" && config.Type != providerType {
		return ai.NewConfigurationError(providerType, "type", "invalid provider type: expected 'openai'")
	}
	return FromProviderConfig(config).Validate()
}

func (f *Factory) DefaultConfig() *ai.ProviderConfig {
	return DefaultConfig().ToProviderConfig()
}

// Capabilities reports the full feature set of the OpenAI API
func (f *Factory) Capabilities() ai.Capabilities {
	return ai.Capabilities{ForcedToolChoice: true, Speech: true, Images: true, Transcription: true}
}

// Register adds the OpenAI factory to the global registry
func Register() error {
	return ai.RegisterProvider(providerType, NewFactory())
}
