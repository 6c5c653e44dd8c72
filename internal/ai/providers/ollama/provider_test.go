package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yildizm/librarian/internal/ai"
)

func TestProvider_New(t *testing.T) {
	provider, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if provider.Name() != "ollama" {
		t.Errorf("Expected provider name 'ollama', got '%s'", provider.Name())
	}
}

func TestProvider_ChatToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected path '/api/chat', got '%s'", r.URL.Path)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected stream=false")
		}
		// forced choice narrows the declared tools
		if len(req.Tools) != 1 || req.Tools[0].Function.Name != "get_summary_by_title" {
			t.Errorf("unexpected tools %+v", req.Tools)
		}
		if req.Options == nil || req.Options.NumPredict != 200 {
			t.Errorf("unexpected options %+v", req.Options)
		}
		if req.Options != nil && (req.Options.Temperature == nil || *req.Options.Temperature != 0) {
			t.Errorf("temperature = %v, want explicit 0", req.Options.Temperature)
		}

		resp := ChatResponse{Model: req.Model, Done: true, DoneReason: "stop"}
		var call ToolCall
		call.Function.Name = "get_summary_by_title"
		call.Function.Arguments = json.RawMessage(`{"title":"The Hobbit"}`)
		resp.Message = ChatMessage{Role: "assistant", ToolCalls: []ToolCall{call}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	provider, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	zero := 0.0
	resp, err := provider.Chat(context.Background(), &ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "o carte despre prietenie"}},
		Tools: []ai.Tool{
			{Name: "get_summary_by_title"},
			{Name: "other"},
		},
		ToolChoice:  ai.ForceTool("get_summary_by_title"),
		Temperature: &zero,
		MaxTokens:   200,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	call, ok := resp.FirstToolCall("get_summary_by_title")
	if !ok {
		t.Fatal("Chat() returned no tool call")
	}
	var args struct {
		Title string `json:"title"`
	}
	if err := call.DecodeArguments(&args); err != nil || args.Title != "The Hobbit" {
		t.Errorf("DecodeArguments() = %+v, %v", args, err)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %s, want tool_calls", resp.FinishReason)
	}
}

func TestProvider_ChatWithoutToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Message: ChatMessage{Role: "assistant", Content: "Once upon a time"},
			Done:    true,
		})
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	provider, _ := New(config)

	resp, err := provider.Chat(context.Background(), &ai.ChatRequest{
		Messages:   []ai.Message{{Role: ai.RoleUser, Content: "x"}},
		Tools:      []ai.Tool{{Name: "get_summary_by_title"}},
		ToolChoice: ai.ForceTool("get_summary_by_title"),
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if _, ok := resp.FirstToolCall("get_summary_by_title"); ok {
		t.Error("FirstToolCall() should be empty when the model answered in text")
	}
	if resp.Content != "Once upon a time" {
		t.Errorf("Content = %q", resp.Content)
	}
}

func TestProvider_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("Expected path '/api/embed', got '%s'", r.URL.Path)
		}
		var req EmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		out := EmbedResponse{Model: req.Model}
		for i := range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{float32(i), 1})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	provider, _ := New(config)

	vectors, err := provider.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vectors) != 3 || vectors[2][0] != 2 {
		t.Errorf("EmbedBatch() = %v", vectors)
	}
}

func TestProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
		wantHealth bool
	}{
		{"healthy", http.StatusOK, false, true},
		{"unhealthy", http.StatusInternalServerError, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					t.Errorf("Expected path '/api/tags', got '%s'", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
				if tt.statusCode == http.StatusOK {
					_ = json.NewEncoder(w).Encode(TagsResponse{Models: []Model{{Name: "llama3.1:latest", ModifiedAt: time.Now()}}})
				}
			}))
			defer server.Close()

			config := DefaultConfig()
			config.BaseURL = server.URL
			provider, _ := New(config)

			err := provider.HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
			if provider.IsHealthy() != tt.wantHealth {
				t.Errorf("IsHealthy() = %v, want %v", provider.IsHealthy(), tt.wantHealth)
			}
		})
	}
}

func TestProvider_ErrorHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ErrorResponse{Error: "model 'nomic-embed-text' not found"})
	}))
	defer server.Close()

	config := DefaultConfig()
	config.BaseURL = server.URL
	provider, _ := New(config)

	_, err := provider.Embed(context.Background(), "x")
	if err == nil {
		t.Fatal("Embed() expected error")
	}
	var pe *ai.ProviderError
	if !errors.As(err, &pe) || pe.Type != ai.ErrTypeNotFound {
		t.Errorf("Embed() error = %v, want not_found", err)
	}
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"empty base url", func(c *Config) { c.BaseURL = "" }, true},
		{"empty chat model", func(c *Config) { c.ChatModel = "" }, true},
		{"empty embed model", func(c *Config) { c.EmbedModel = "" }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"temperature too high", func(c *Config) { c.DefaultTemperature = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
