package ai

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role tags a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one role-tagged entry of a chat exchange
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Tool declares a capability the model may invoke
type Tool struct {
	// Name is the function name the model must use
	Name string `json:"name"`

	// Description tells the model what the tool does
	Description string `json:"description"`

	// Parameters is a JSON schema object for the arguments
	Parameters map[string]any `json:"parameters"`
}

// ToolChoiceMode controls whether the model may or must call a tool
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceFunction ToolChoiceMode = "function"
)

// ToolChoice selects how tools are used for a request.
// With ToolChoiceFunction the model is forced to call Name.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode"`
	Name string         `json:"name,omitempty"`
}

// ForceTool returns a choice forcing a call to the named tool
func ForceTool(name string) *ToolChoice {
	return &ToolChoice{Mode: ToolChoiceFunction, Name: name}
}

// ToolCall is a structured invocation returned by the model
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// DecodeArguments unmarshals the raw JSON arguments into v
func (tc *ToolCall) DecodeArguments(v any) error {
	if tc.Arguments == "" {
		return NewValidationError("arguments", "", "tool call has no arguments")
	}
	return json.Unmarshal([]byte(tc.Arguments), v)
}

// ChatRequest is a chat completion request with optional tools
type ChatRequest struct {
	// Model overrides the provider default
	Model string `json:"model,omitempty"`

	// Messages in conversation order
	Messages []Message `json:"messages"`

	// Tools the model may call
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice forces or restricts tool use; nil leaves it to the provider
	ToolChoice *ToolChoice `json:"tool_choice,omitempty"`

	// Temperature controls randomness; nil means provider default
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// RequestID for tracing
	RequestID string `json:"request_id,omitempty"`
}

// Validate checks the request before it is sent to a provider
func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return NewValidationError("messages", "", "at least one message is required")
	}
	if r.MaxTokens < 0 {
		return NewValidationError("max_tokens", fmt.Sprint(r.MaxTokens), "max tokens must not be negative")
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return NewValidationError("temperature", fmt.Sprint(*r.Temperature), "temperature must be between 0 and 2")
	}
	if r.ToolChoice != nil && r.ToolChoice.Mode == ToolChoiceFunction {
		found := false
		for _, t := range r.Tools {
			if t.Name == r.ToolChoice.Name {
				found = true
				break
			}
		}
		if !found {
			return NewValidationError("tool_choice", r.ToolChoice.Name, "forced tool is not declared")
		}
	}
	return nil
}

// ChatResponse is the provider-neutral reply to a ChatRequest
type ChatResponse struct {
	// Content is the free-text part of the reply
	Content string `json:"content"`

	// ToolCalls holds structured invocations, in model order
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// FinishReason indicates why the completion finished
	FinishReason string `json:"finish_reason"`

	// Usage contains token usage information
	Usage *TokenUsage `json:"usage,omitempty"`

	// Model indicates which model was used
	Model string `json:"model"`

	// RequestID matches the original request
	RequestID string `json:"request_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// FirstToolCall returns the first call to the named tool, if any
func (r *ChatResponse) FirstToolCall(name string) (*ToolCall, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.ToolCalls {
		if r.ToolCalls[i].Name == name {
			return &r.ToolCalls[i], true
		}
	}
	return nil, false
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// SpeechRequest asks for text to be rendered as audio
type SpeechRequest struct {
	Model  string `json:"model,omitempty"`
	Voice  string `json:"voice,omitempty"`
	Format string `json:"format,omitempty"`
	Text   string `json:"text"`
}

// ImageRequest asks for a single generated image
type ImageRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
}

// TranscriptionRequest asks for speech in an audio file to be transcribed
type TranscriptionRequest struct {
	Model    string `json:"model,omitempty"`
	FilePath string `json:"file_path"`
	Language string `json:"language,omitempty"`
}

// ProviderConfig contains configuration for a provider
type ProviderConfig struct {
	// Name is the provider identifier
	Name string `json:"name"`

	// Type is the provider type (openai, ollama)
	Type string `json:"type"`

	// APIKey for authentication
	APIKey string `json:"api_key,omitempty"`

	// BaseURL for the API endpoint
	BaseURL string `json:"base_url,omitempty"`

	// ChatModel is the default chat model
	ChatModel string `json:"chat_model,omitempty"`

	// EmbedModel is the default embedding model
	EmbedModel string `json:"embed_model,omitempty"`

	// DefaultTemperature for requests; nil keeps the provider's own default
	DefaultTemperature *float64 `json:"default_temperature,omitempty"`

	// Timeout for requests
	Timeout time.Duration `json:"timeout,omitempty"`

	// RetryConfig for handling failures; nil or zero retries means a single attempt
	RetryConfig *RetryConfig `json:"retry_config,omitempty"`

	// Custom headers for requests
	Headers map[string]string `json:"headers,omitempty"`

	// Provider-specific options
	Options map[string]any `json:"options,omitempty"`
}

// RetryConfig defines retry behavior
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the first
	MaxRetries int `json:"max_retries"`

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration `json:"initial_delay"`

	// MaxDelay caps the backoff
	MaxDelay time.Duration `json:"max_delay"`
}

// Backoff returns the delay before retry number attempt (zero based)
func (c *RetryConfig) Backoff(attempt int) time.Duration {
	if c == nil || c.InitialDelay <= 0 {
		return 0
	}
	d := c.InitialDelay << attempt
	if c.MaxDelay > 0 && (d > c.MaxDelay || d <= 0) {
		d = c.MaxDelay
	}
	return d
}

// Attempts returns the total number of attempts including the first
func (c *RetryConfig) Attempts() int {
	if c == nil || c.MaxRetries <= 0 {
		return 1
	}
	return c.MaxRetries + 1
}
