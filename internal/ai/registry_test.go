package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubProvider struct {
	cfg    *ProviderConfig
	closed bool
}

func (p *stubProvider) Name() string { return p.cfg.Name }
func (p *stubProvider) Chat(context.Context, *ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{}, nil
}
func (p *stubProvider) Embed(context.Context, string) ([]float32, error) { return []float32{1}, nil }
func (p *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}
func (p *stubProvider) HealthCheck(context.Context) error { return nil }
func (p *stubProvider) IsHealthy() bool { return true }
func (p *stubProvider) Close() error {
	p.closed = true
	return nil
}
func (p *stubProvider) ValidateConfig() error { return nil }

type stubFactory struct {
	caps    Capabilities
	created []*stubProvider
}

func (f *stubFactory) Create(cfg *ProviderConfig) (Provider, error) {
	p := &stubProvider{cfg: cfg}
	f.created = append(f.created, p)
	return p, nil
}
func (f *stubFactory) Type() string { return "stub" }
func (f *stubFactory) ValidateConfig(cfg *ProviderConfig) error {
	if cfg.ChatModel == "" {
		return NewConfigurationError("stub", "chat_model", "chat model is required")
	}
	return nil
}
func (f *stubFactory) DefaultConfig() *ProviderConfig {
	return &ProviderConfig{Name: "stub", Type: "stub", ChatModel: "tiny"}
}
func (f *stubFactory) Capabilities() Capabilities { return f.caps }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	f := &stubFactory{caps: Capabilities{Speech: true}}

	if err := r.Register("stub", f); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("stub", f); err == nil {
		t.Error("duplicate Register() should fail")
	}

	first, err := r.GetWithConfig("stub", nil)
	if err != nil {
		t.Fatalf("GetWithConfig(nil) error = %v", err)
	}
	if first.Name() != "stub" {
		t.Errorf("default config not used: %s", first.Name())
	}

	if _, err := r.GetWithConfig("stub", &ProviderConfig{Type: "stub"}); err == nil {
		t.Error("invalid config should be rejected")
	}

	if _, err := r.GetWithConfig("stub", &ProviderConfig{Name: "second", ChatModel: "m"}); err != nil {
		t.Fatal(err)
	}
	if !f.created[0].closed {
		t.Error("replaced provider should be closed")
	}

	caps, err := r.Capabilities("stub")
	if err != nil || !caps.Speech || caps.ForcedToolChoice {
		t.Errorf("Capabilities() = %+v, %v", caps, err)
	}

	_, err = r.GetWithConfig("missing", nil)
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Type != ErrTypeNotFound || !strings.Contains(pe.Message, "available: stub") {
		t.Errorf("unknown provider error = %v", err)
	}

	if names := r.List(); len(names) != 1 || names[0] != "stub" {
		t.Errorf("List() = %v", names)
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if !f.created[1].closed {
		t.Error("Close() should close live providers")
	}
}

func TestCapabilities_String(t *testing.T) {
	if got := (Capabilities{}).String(); got != "chat only" {
		t.Errorf("empty = %q", got)
	}
	full := Capabilities{ForcedToolChoice: true, Speech: true, Images: true, Transcription: true}
	if got := full.String(); got != "forced tools, speech, images, transcription" {
		t.Errorf("full = %q", got)
	}
}
