package openai

import (
	"fmt"
	"net/url"
	"time"

	"github.com/yildizm/librarian/internal/ai"
)

const (
	DefaultBaseURL            = "https://api.openai.com"
	DefaultChatModel          = "gpt-4o-mini"
	DefaultEmbedModel         = "text-embedding-3-small"
	DefaultImageModel         = "gpt-image-1"
	DefaultImageSize          = "1024x1024"
	DefaultSpeechModel        = "gpt-4o-mini-tts"
	DefaultVoice              = "alloy"
	DefaultTranscriptionModel = "gpt-4o-mini-transcribe"
	DefaultTemperature        = 0.2
	DefaultTimeout            = 60 * time.Second
)

type Config struct {
	APIKey             string          `json:"api_key"`
	BaseURL            string          `json:"base_url"`
	ChatModel          string          `json:"chat_model"`
	EmbedModel         string          `json:"embed_model"`
	ImageModel         string          `json:"image_model"`
	SpeechModel        string          `json:"speech_model"`
	Voice              string          `json:"voice"`
	TranscriptionModel string          `json:"transcription_model"`
	DefaultTemperature float64         `json:"default_temperature"`
	Timeout            time.Duration   `json:"timeout"`
	OrganizationID     string          `json:"organization_id,omitempty"`
	Retry              *ai.RetryConfig `json:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:            DefaultBaseURL,
		ChatModel:          DefaultChatModel,
		EmbedModel:         DefaultEmbedModel,
		ImageModel:         DefaultImageModel,
		SpeechModel:        DefaultSpeechModel,
		Voice:              DefaultVoice,
		TranscriptionModel: DefaultTranscriptionModel,
		DefaultTemperature: DefaultTemperature,
		Timeout:            DefaultTimeout,
	}
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ai.NewConfigurationError("openai", "api_key", "API key is required")
	}

	if c.BaseURL == "" {
		return ai.NewConfigurationError("openai", "base_url", "base URL is required")
	}

	if _, err := url.Parse(c.BaseURL); err != nil {
		return ai.NewConfigurationError("openai", "base_url", fmt.Sprintf("invalid base URL: %v", err))
	}

	if c.ChatModel == "" {
		return ai.NewConfigurationError("openai", "chat_model", "chat model is required")
	}

	if c.EmbedModel == "" {
		return ai.NewConfigurationError("openai", "embed_model", "embedding model is required")
	}

	if c.DefaultTemperature < 0 || c.DefaultTemperature > 2 {
		return ai.NewConfigurationError("openai", "default_temperature", "temperature must be between 0 and 2")
	}

	if c.Timeout <= 0 {
		return ai.NewConfigurationError("openai", "timeout", "timeout must be positive")
	}

	return nil
}

func (c *Config) ToProviderConfig() *ai.ProviderConfig {
	return &ai.ProviderConfig{
		Name:               "openai",
		Type:               "openai",
		APIKey:             c.APIKey,
		BaseURL:            c.BaseURL,
		ChatModel:          c.ChatModel,
		EmbedModel:         c.EmbedModel,
		DefaultTemperature: &c.DefaultTemperature,
		Timeout:            c.Timeout,
		RetryConfig:        c.Retry,
		Options: map[string]any{
			"organization_id":     c.OrganizationID,
			"image_model":         c.ImageModel,
			"speech_model":        c.SpeechModel,
			"voice":               c.Voice,
			"transcription_model": c.TranscriptionModel,
		},
	}
}

func FromProviderConfig(config *ai.ProviderConfig) *Config {
	c := DefaultConfig()
	if config == nil {
		return c
	}

	c.APIKey = config.APIKey
	c.Retry = config.RetryConfig

	if config.BaseURL != "" {
		c.BaseURL = config.BaseURL
	}
	if config.ChatModel != "" {
		c.ChatModel = config.ChatModel
	}
	if config.EmbedModel != "" {
		c.EmbedModel = config.EmbedModel
	}
	if config.DefaultTemperature != nil {
		c.DefaultTemperature = *config.DefaultTemperature
	}
	if config.Timeout != 0 {
		c.Timeout = config.Timeout
	}

	stringOption := func(key string, dst *string) {
		if v, ok := config.Options[key].(string); ok && v != "" {
			*dst = v
		}
	}
	stringOption("organization_id", &c.OrganizationID)
	stringOption("image_model", &c.ImageModel)
	stringOption("speech_model", &c.SpeechModel)
	stringOption("voice", &c.Voice)
	stringOption("transcription_model", &c.TranscriptionModel)

	return c
}
