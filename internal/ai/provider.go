package ai

import (
	"context"
	"io"
)

// Generator runs chat completions with optional tool declarations
type Generator interface {
	// Name returns the provider name (e.g., "openai", "ollama")
	Name() string

	// Chat sends a role-tagged conversation and returns text or tool calls.
	// Providers that cannot force a tool call return the reply as-is;
	// callers must check ToolCalls themselves.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Embedder maps text to fixed-length vectors
type Embedder interface {
	// Embed returns the vector for a single non-empty text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// HealthChecker provides health checking capabilities
type HealthChecker interface {
	// HealthCheck verifies provider connectivity and status
	HealthCheck(ctx context.Context) error

	// IsHealthy returns current health status
	IsHealthy() bool
}

// Speaker renders text to audio bytes
type Speaker interface {
	Speak(ctx context.Context, req *SpeechRequest) ([]byte, error)
}

// ImageGenerator renders a prompt to image bytes
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *ImageRequest) ([]byte, error)
}

// Transcriber converts recorded speech to text
type Transcriber interface {
	Transcribe(ctx context.Context, req *TranscriptionRequest) (string, error)
}

// Provider combines the capabilities every registered backend must offer.
// Media capabilities are optional and discovered by type assertion.
type Provider interface {
	Generator
	Embedder
	HealthChecker
	io.Closer

	// ValidateConfig validates the provider configuration
	ValidateConfig() error
}
