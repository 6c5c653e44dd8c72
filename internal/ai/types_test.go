package ai

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func TestChatRequest_Validate(t *testing.T) {
	tool := Tool{Name: "get_summary_by_title", Description: "lookup"}

	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
	}{
		{
			name: "valid request",
			req: ChatRequest{
				Messages:    []Message{{Role: RoleUser, Content: "hi"}},
				Temperature: ptr(0.2),
				MaxTokens:   200,
			},
		},
		{
			name:    "no messages",
			req:     ChatRequest{},
			wantErr: true,
		},
		{
			name: "negative max tokens",
			req: ChatRequest{
				Messages:  []Message{{Role: RoleUser, Content: "hi"}},
				MaxTokens: -1,
			},
			wantErr: true,
		},
		{
			name: "temperature out of range",
			req: ChatRequest{
				Messages:    []Message{{Role: RoleUser, Content: "hi"}},
				Temperature: ptr(2.5),
			},
			wantErr: true,
		},
		{
			name: "forced tool declared",
			req: ChatRequest{
				Messages:   []Message{{Role: RoleUser, Content: "hi"}},
				Tools:      []Tool{tool},
				ToolChoice: ForceTool(tool.Name),
			},
		},
		{
			name: "forced tool missing",
			req: ChatRequest{
				Messages:   []Message{{Role: RoleUser, Content: "hi"}},
				ToolChoice: ForceTool("other"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatResponse_FirstToolCall(t *testing.T) {
	resp := &ChatResponse{
		ToolCalls: []ToolCall{
			{ID: "1", Name: "other", Arguments: `{}`},
			{ID: "2", Name: "get_summary_by_title", Arguments: `{"title":"Dune"}`},
			{ID: "3", Name: "get_summary_by_title", Arguments: `{"title":"Emma"}`},
		},
	}

	call, ok := resp.FirstToolCall("get_summary_by_title")
	if !ok {
		t.Fatal("FirstToolCall() found nothing")
	}
	if call.ID != "2" {
		t.Errorf("FirstToolCall().ID = %s, want 2", call.ID)
	}

	var args struct {
		Title string `json:"title"`
	}
	if err := call.DecodeArguments(&args); err != nil {
		t.Fatalf("DecodeArguments() error = %v", err)
	}
	if args.Title != "Dune" {
		t.Errorf("title = %q, want Dune", args.Title)
	}

	if _, ok := resp.FirstToolCall("missing"); ok {
		t.Error("FirstToolCall() matched an undeclared tool")
	}

	var nilResp *ChatResponse
	if _, ok := nilResp.FirstToolCall("x"); ok {
		t.Error("FirstToolCall() on nil response should report false")
	}
}

func TestRetryConfig_Backoff(t *testing.T) {
	var none *RetryConfig
	if got := none.Attempts(); got != 1 {
		t.Errorf("nil Attempts() = %d, want 1", got)
	}

	rc := &RetryConfig{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	if got := rc.Attempts(); got != 4 {
		t.Errorf("Attempts() = %d, want 4", got)
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 300 * time.Millisecond},
		{10, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := rc.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		check     func(error) bool
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, func(err error) bool {
			var pe *ProviderError
			return errors.As(err, &pe) && pe.Type == ErrTypeAuthentication
		}, false},
		{"rate limited", http.StatusTooManyRequests, IsRateLimitError, true},
		{"bad request", http.StatusBadRequest, IsValidationError, false},
		{"server error", http.StatusBadGateway, func(err error) bool {
			var pe *ProviderError
			return errors.As(err, &pe) && pe.StatusCode == http.StatusBadGateway
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := StatusError("openai", tt.status, "")
			if !tt.check(err) {
				t.Errorf("StatusError(%d) = %v, unexpected type", tt.status, err)
			}
			if got := IsRetryableError(err); got != tt.retryable {
				t.Errorf("IsRetryableError() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestProviderError_Is(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewProviderErrorWithCause(ErrTypeNetwork, "request failed", "ollama", cause)

	if !errors.Is(err, &ProviderError{Type: ErrTypeNetwork}) {
		t.Error("errors.Is() should match on type")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should reach the cause")
	}
	if !err.Retryable {
		t.Error("network errors should be retryable")
	}
	if IsUnsupportedError(err) {
		t.Error("network error reported as unsupported")
	}
	if !IsUnsupportedError(NewUnsupportedError("ollama", "speech")) {
		t.Error("IsUnsupportedError() = false for unsupported error")
	}
}
