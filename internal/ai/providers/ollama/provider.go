package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/yildizm/librarian/internal/ai"
)

// Provider implements the AI provider interface for Ollama
type Provider struct {
	config     *Config
	client     *http.Client
	baseURL    *url.URL
	healthy    bool
	healthMu   sync.RWMutex
	lastHealth time.Time
}

// New creates a new Ollama provider instance
func New(config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, ai.NewConfigurationError("ollama", "base_url", "invalid base URL: "+err.Error())
	}

	return &Provider{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: baseURL,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "ollama"
}

// Chat sends the conversation to /api/chat.
// Ollama cannot force a tool call; a forced choice only narrows the
// declared tools to the named one, and the caller must verify the reply.
func (p *Provider) Chat(ctx context.Context, req *ai.ChatRequest) (*ai.ChatResponse, error) {
	if req == nil {
		return nil, ai.NewValidationError("request", "nil", "chat request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.config.ChatModel
	}

	temperature := req.Temperature
	if temperature == nil {
		t := p.config.DefaultTemperature
		temperature = &t
	}

	chatReq := &ChatRequest{
		Model:    model,
		Messages: toChatMessages(req.Messages),
		Tools:    toTools(req.Tools, req.ToolChoice),
		Stream:   false,
		Options: &Options{
			Temperature: temperature,
			NumPredict:  req.MaxTokens,
		},
	}

	var resp ChatResponse
	if err := p.postJSON(ctx, "/api/chat", chatReq, &resp); err != nil {
		return nil, err
	}

	out := &ai.ChatResponse{
		Content:      resp.Message.Content,
		FinishReason: resp.DoneReason,
		Model:        resp.Model,
		RequestID:    req.RequestID,
		CreatedAt:    resp.CreatedAt,
		Usage: &ai.TokenUsage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}
	for i, tc := range resp.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ai.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      tc.Function.Name,
			Arguments: string(tc.Function.Arguments),
		})
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = "tool_calls"
	}

	return out, nil
}

// Embed returns the embedding for a single text
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts through /api/embed
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ai.NewValidationError("input", "", "at least one text is required")
	}

	var resp EmbedResponse
	if err := p.postJSON(ctx, "/api/embed", &EmbedRequest{Model: p.config.EmbedModel, Input: texts}, &resp); err != nil {
		return nil, err
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, ai.NewProviderError(ai.ErrTypeProvider,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings)), "ollama")
	}
	for i, v := range resp.Embeddings {
		if len(v) == 0 {
			return nil, ai.NewProviderError(ai.ErrTypeProvider, fmt.Sprintf("empty embedding at index %d", i), "ollama")
		}
	}

	return resp.Embeddings, nil
}

// ValidateConfig validates the provider configuration
func (p *Provider) ValidateConfig() error {
	return p.config.Validate()
}

// Close cleans up provider resources
func (p *Provider) Close() error {
	return nil
}

// HealthCheck verifies provider connectivity and status
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	p.setHealthy(err == nil)
	return err
}

// IsHealthy returns current health status
func (p *Provider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.healthy
}

// ListModels returns locally available models
func (p *Provider) ListModels(ctx context.Context) ([]Model, error) {
	endpoint := p.baseURL.JoinPath("/api/tags")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), http.NoBody)
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "failed to create request", "ollama", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "request failed", "ollama", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp)
	}

	var tagsResp TagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode response", "ollama", err)
	}

	return tagsResp.Models, nil
}

// IsModelAvailable checks if a model is available locally
func (p *Provider) IsModelAvailable(ctx context.Context, modelName string) (bool, error) {
	models, err := p.ListModels(ctx)
	if err != nil {
		return false, err
	}

	for _, model := range models {
		if model.Name == modelName || strings.HasPrefix(model.Name, modelName+":") {
			return true, nil
		}
	}

	return false, nil
}

func (p *Provider) postJSON(ctx context.Context, path string, in, out any) error {
	endpoint := p.baseURL.JoinPath(path)

	jsonData, err := json.Marshal(in)
	if err != nil {
		return ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to marshal request", "ollama", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(jsonData))
	if err != nil {
		return ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to create request", "ollama", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := ai.DoWithRetry(p.client, httpReq, p.config.Retry, "ollama")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode response", "ollama", err)
	}
	return nil
}

func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errorResp ErrorResponse
	if json.Unmarshal(body, &errorResp) == nil && errorResp.Error != "" {
		return ai.StatusError("ollama", resp.StatusCode, errorResp.Error)
	}
	return ai.StatusError("ollama", resp.StatusCode, "")
}

// setHealthy updates the health status
func (p *Provider) setHealthy(healthy bool) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	p.healthy = healthy
	p.lastHealth = time.Now()
}

func toChatMessages(messages []ai.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		cm := ChatMessage{Role: string(m.Role), Content: m.Content}
		for _, tc := range m.ToolCalls {
			var call ToolCall
			call.Function.Name = tc.Name
			call.Function.Arguments = json.RawMessage("{}")
			if tc.Arguments != "" {
				call.Function.Arguments = json.RawMessage(tc.Arguments)
			}
			cm.ToolCalls = append(cm.ToolCalls, call)
		}
		out = append(out, cm)
	}
	return out
}

func toTools(tools []ai.Tool, choice *ai.ToolChoice) []Tool {
	if choice != nil && choice.Mode == ai.ToolChoiceNone {
		return nil
	}

	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		if choice != nil && choice.Mode == ai.ToolChoiceFunction && t.Name != choice.Name {
			continue
		}
		out = append(out, Tool{
			Type: "function",
			Function: Function{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
