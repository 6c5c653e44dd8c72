package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yildizm/librarian/internal/ai"
)

const testAPIKey = "test-api-key"

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	config := DefaultConfig()
	config.APIKey = testAPIKey
	config.BaseURL = baseURL
	config.Timeout = 5 * time.Second

	provider, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func TestProvider_New(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "nil config uses defaults",
			config:  nil,
			wantErr: true, // missing API key
		},
		{
			name: "valid config",
			config: func() *Config {
				c := DefaultConfig()
				c.APIKey = testAPIKey
				return c
			}(),
		},
		{
			name: "invalid base URL",
			config: &Config{
				APIKey:     testAPIKey,
				BaseURL:    "http://[::1]:namedport",
				ChatModel:  DefaultChatModel,
				EmbedModel: DefaultEmbedModel,
				Timeout:    DefaultTimeout,
			},
			wantErr: true,
		},
		{
			name: "missing embed model",
			config: &Config{
				APIKey:    testAPIKey,
				BaseURL:   DefaultBaseURL,
				ChatModel: DefaultChatModel,
				Timeout:   DefaultTimeout,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && provider == nil {
				t.Error("New() returned nil provider without error")
			}
		})
	}
}

func TestProvider_ChatForcedTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected /v1/chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer "+testAPIKey {
			t.Errorf("Expected Bearer %s, got %s", testAPIKey, auth)
		}

		var raw map[string]json.RawMessage
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &raw); err != nil {
			t.Fatalf("Failed to unmarshal request: %v", err)
		}

		var choice NamedToolChoice
		if err := json.Unmarshal(raw["tool_choice"], &choice); err != nil {
			t.Errorf("tool_choice is not a named function: %s", raw["tool_choice"])
		}
		if choice.Type != "function" || choice.Function.Name != "get_summary_by_title" {
			t.Errorf("unexpected tool_choice %+v", choice)
		}

		var tools []ToolDefinition
		_ = json.Unmarshal(raw["tools"], &tools)
		if len(tools) != 1 || tools[0].Type != "function" {
			t.Errorf("unexpected tools %s", raw["tools"])
		}

		_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
			Model: "gpt-4o-mini",
			Choices: []ChatCompletionChoice{{
				Message: ChatMessage{
					Role: "assistant",
					ToolCalls: []ToolCallPayload{{
						ID:       "call_1",
						Type:     "function",
						Function: FunctionCall{Name: "get_summary_by_title", Arguments: `{"title":"The Hobbit"}`},
					}},
				},
				FinishReason: "tool_calls",
			}},
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)

	tool := ai.Tool{
		Name:        "get_summary_by_title",
		Description: "lookup",
		Parameters:  map[string]any{"type": "object"},
	}
	resp, err := provider.Chat(context.Background(), &ai.ChatRequest{
		Messages:   []ai.Message{{Role: ai.RoleUser, Content: "o carte despre prietenie"}},
		Tools:      []ai.Tool{tool},
		ToolChoice: ai.ForceTool(tool.Name),
		MaxTokens:  200,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	call, ok := resp.FirstToolCall("get_summary_by_title")
	if !ok {
		t.Fatal("Chat() returned no tool call")
	}
	if call.Arguments != `{"title":"The Hobbit"}` {
		t.Errorf("Arguments = %s", call.Arguments)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %s, want tool_calls", resp.FinishReason)
	}
}

func TestProvider_ChatTemperature(t *testing.T) {
	var wire []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &raw); err != nil {
			t.Fatalf("Failed to unmarshal request: %v", err)
		}
		wire = append(wire, string(raw["temperature"]))
		_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []ChatCompletionChoice{{Message: ChatMessage{Role: "assistant", Content: "ok"}}},
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	zero := 0.0
	msgs := []ai.Message{{Role: ai.RoleUser, Content: "hi"}}

	if _, err := provider.Chat(context.Background(), &ai.ChatRequest{Messages: msgs, Temperature: &zero}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if _, err := provider.Chat(context.Background(), &ai.ChatRequest{Messages: msgs}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if len(wire) != 2 || wire[0] != "0" || wire[1] != "0.2" {
		t.Errorf("wire temperatures = %v, want [0 0.2]", wire)
	}

	cfg := FromProviderConfig(&ai.ProviderConfig{APIKey: testAPIKey, DefaultTemperature: &zero})
	if cfg.DefaultTemperature != 0 {
		t.Errorf("DefaultTemperature = %v, want explicit 0 kept", cfg.DefaultTemperature)
	}
	if FromProviderConfig(&ai.ProviderConfig{APIKey: testAPIKey}).DefaultTemperature != DefaultTemperature {
		t.Error("nil DefaultTemperature should keep the provider default")
	}
}

func TestProvider_EmbedBatchOrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != DefaultEmbedModel {
			t.Errorf("model = %s, want %s", req.Model, DefaultEmbedModel)
		}
		_ = json.NewEncoder(w).Encode(EmbeddingResponse{
			Data: []EmbeddingData{
				{Index: 1, Embedding: []float32{0, 1}},
				{Index: 0, Embedding: []float32{1, 0}},
			},
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	vectors, err := provider.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Errorf("EmbedBatch() = %v, not ordered by index", vectors)
	}

	if _, err := provider.EmbedBatch(context.Background(), nil); !ai.IsValidationError(err) {
		t.Errorf("EmbedBatch(nil) error = %v, want validation error", err)
	}
}

func TestProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"unauthorized", http.StatusUnauthorized, func(err error) bool {
			return !ai.IsRetryableError(err) && err != nil
		}},
		{"rate limited", http.StatusTooManyRequests, ai.IsRateLimitError},
		{"bad request", http.StatusBadRequest, ai.IsValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorDetail{Message: "nope"}})
			}))
			defer server.Close()

			provider := newTestProvider(t, server.URL)
			_, err := provider.Embed(context.Background(), "x")
			if !tt.check(err) {
				t.Errorf("Embed() error = %v, unexpected mapping", err)
			}
		})
	}
}

func TestProvider_RetryOnlyWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(EmbeddingResponse{Data: []EmbeddingData{{Embedding: []float32{1}}}})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	if _, err := provider.Embed(context.Background(), "x"); err == nil {
		t.Fatal("Embed() without retries should surface the 503")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}

	calls.Store(0)
	provider.config.Retry = &ai.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond}
	if _, err := provider.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed() with retries error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestProvider_Media(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/audio/speech":
			var req SpeechRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Voice != DefaultVoice || req.ResponseFormat != "wav" {
				t.Errorf("unexpected speech request %+v", req)
			}
			_, _ = w.Write([]byte("RIFF"))
		case "/v1/images/generations":
			_ = json.NewEncoder(w).Encode(ImageGenerationResponse{
				Data: []ImageData{{B64JSON: base64.StdEncoding.EncodeToString(png)}},
			})
		case "/v1/audio/transcriptions":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm() error = %v", err)
			}
			if r.FormValue("model") != DefaultTranscriptionModel {
				t.Errorf("model = %s", r.FormValue("model"))
			}
			_ = json.NewEncoder(w).Encode(TranscriptionResponse{Text: "o carte despre prietenie"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	ctx := context.Background()

	audio, err := provider.Speak(ctx, &ai.SpeechRequest{Text: "Recomandare", Format: "wav"})
	if err != nil || string(audio) != "RIFF" {
		t.Errorf("Speak() = %q, %v", audio, err)
	}

	img, err := provider.GenerateImage(ctx, &ai.ImageRequest{Prompt: "cover"})
	if err != nil || string(img) != string(png) {
		t.Errorf("GenerateImage() = %v, %v", img, err)
	}

	path := filepath.Join(t.TempDir(), "q.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	text, err := provider.Transcribe(ctx, &ai.TranscriptionRequest{FilePath: path})
	if err != nil || text != "o carte despre prietenie" {
		t.Errorf("Transcribe() = %q, %v", text, err)
	}
}

func TestProvider_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("Expected /v1/models, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL)
	if err := provider.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() expected error for 401")
	}
	if provider.IsHealthy() {
		t.Error("IsHealthy() should be false after failed check")
	}
}

func TestFactory_ValidateConfig(t *testing.T) {
	f := NewFactory()
	if err := f.ValidateConfig(nil); err == nil {
		t.Error("ValidateConfig(nil) expected error")
	}

	pc := f.DefaultConfig()
	pc.APIKey = testAPIKey
	if err := f.ValidateConfig(pc); err != nil {
		t.Errorf("ValidateConfig() error = %v", err)
	}

	pc.Type = "ollama"
	if err := f.ValidateConfig(pc); err == nil {
		t.Error("ValidateConfig() should reject another provider type")
	}

	if caps := f.Capabilities(); !caps.ForcedToolChoice || !caps.Transcription {
		t.Errorf("Capabilities() = %+v", caps)
	}

	round := FromProviderConfig(DefaultConfig().ToProviderConfig())
	if round.Voice != DefaultVoice || round.ImageModel != DefaultImageModel {
		t.Errorf("options lost in round trip: %+v", round)
	}
}
