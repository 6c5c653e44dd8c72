package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/yildizm/librarian/internal/ai"
)

type Provider struct {
	config  *Config
	client  *http.Client
	baseURL *url.URL
	healthy bool
	mu      sync.RWMutex
}

func New(config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, ai.NewConfigurationError("openai", "base_url", fmt.Sprintf("invalid base URL: %v", err))
	}

	return &Provider{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: baseURL,
		healthy: true,
	}, nil
}

func (p *Provider) Name() string {
	return "openai"
}

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

	chatReq := &ChatCompletionRequest{
		Model:       model,
		Messages:    toChatMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
		Tools:       toToolDefinitions(req.Tools),
		ToolChoice:  toToolChoice(req.ToolChoice),
		User:        req.RequestID,
	}

	var chatResp ChatCompletionResponse
	if err := p.postJSON(ctx, "/v1/chat/completions", chatReq, &chatResp); err != nil {
		return nil, err
	}

	return chatResp.ToAIResponse(req.RequestID), nil
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ai.NewValidationError("input", "", "at least one text is required")
	}

	var embResp EmbeddingResponse
	if err := p.postJSON(ctx, "/v1/embeddings", &EmbeddingRequest{Model: p.config.EmbedModel, Input: texts}, &embResp); err != nil {
		return nil, err
	}

	vectors := embResp.vectors()
	if len(vectors) != len(texts) {
		return nil, ai.NewProviderError(ai.ErrTypeProvider,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(vectors)), "openai")
	}
	return vectors, nil
}

func (p *Provider) ValidateConfig() error {
	return p.config.Validate()
}

func (p *Provider) Close() error {
	return nil
}

func (p *Provider) HealthCheck(ctx context.Context) error {
	endpoint := p.baseURL.JoinPath("/v1/models")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), http.NoBody)
	if err != nil {
		p.setHealthy(false)
		return ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "failed to create health check request", "openai", err)
	}
	p.setHeaders(req, "")

	resp, err := p.client.Do(req)
	if err != nil {
		p.setHealthy(false)
		return ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "health check request failed", "openai", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		p.setHealthy(true)
		return nil
	}

	p.setHealthy(false)
	return p.handleErrorResponse(resp)
}

func (p *Provider) IsHealthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.healthy
}

// ListModels returns the model ids visible to the API key
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	endpoint := p.baseURL.JoinPath("/v1/models")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), http.NoBody)
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "failed to create models request", "openai", err)
	}
	p.setHeaders(req, "")

	resp, err := ai.DoWithRetry(p.client, req, p.config.Retry, "openai")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, p.handleErrorResponse(resp)
	}

	var modelResp ModelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelResp); err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode models response", "openai", err)
	}

	ids := make([]string, 0, len(modelResp.Data))
	for _, m := range modelResp.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (p *Provider) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to marshal request", "openai", err)
	}

	resp, err := p.post(ctx, path, "application/json", body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ai.NewProviderErrorWithCause(ai.ErrTypeInternal, "failed to decode response", "openai", err)
	}
	return nil
}

// post sends body and returns a 200 response; the caller closes it
func (p *Provider) post(ctx context.Context, path, contentType string, body []byte) (*http.Response, error) {
	endpoint := p.baseURL.JoinPath(path)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, ai.NewProviderErrorWithCause(ai.ErrTypeNetwork, "failed to create request", "openai", err)
	}
	p.setHeaders(httpReq, contentType)

	resp, err := ai.DoWithRetry(p.client, httpReq, p.config.Retry, "openai")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, p.handleErrorResponse(resp)
	}

	return resp, nil
}

func (p *Provider) setHeaders(req *http.Request, contentType string) {
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if p.config.OrganizationID != "" {
		req.Header.Set("OpenAI-Organization", p.config.OrganizationID)
	}
}

func (p *Provider) handleErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ai.StatusError("openai", resp.StatusCode, "")
	}

	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil {
		return ai.StatusError("openai", resp.StatusCode, "")
	}

	return ai.StatusError("openai", resp.StatusCode, errorResp.Error.Message)
}

func (p *Provider) setHealthy(healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.healthy = healthy
}
