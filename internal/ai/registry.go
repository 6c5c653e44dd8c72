package ai

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Capabilities describe what a provider type can do beyond chat and
// embeddings
type Capabilities struct {
	// ForcedToolChoice means the provider honors ToolChoice; without it a
	// missing tool call must be handled as a contract violation
	ForcedToolChoice bool `json:"forced_tool_choice"`
	Speech           bool `json:"speech"`
	Images           bool `json:"images"`
	Transcription    bool `json:"transcription"`
}

// String lists the supported extras, or "chat only"
func (c Capabilities) String() string {
	var parts []string
	if c.ForcedToolChoice {
		parts = append(parts, "forced tools")
	}
	if c.Speech {
		parts = append(parts, "speech")
	}
	if c.Images {
		parts = append(parts, "images")
	}
	if c.Transcription {
		parts = append(parts, "transcription")
	}
	if len(parts) == 0 {
		return "chat only"
	}
	return strings.Join(parts, ", ")
}

// Registry manages available providers
type Registry interface {
	// Register adds a provider factory to the registry
	Register(name string, factory ProviderFactory) error

	// GetWithConfig creates (or replaces) a provider with specific configuration
	GetWithConfig(name string, config *ProviderConfig) (Provider, error)

	// Capabilities reports what a registered provider type supports
	Capabilities(name string) (Capabilities, error)

	// List returns all registered provider names, sorted
	List() []string

	// Close shuts down all providers and cleans up resources
	Close() error
}

// ProviderFactory creates provider instances
type ProviderFactory interface {
	// Create creates a new provider instance with the given config
	Create(config *ProviderConfig) (Provider, error)

	// Type returns the provider type this factory creates
	Type() string

	// ValidateConfig validates configuration for this provider type
	ValidateConfig(config *ProviderConfig) error

	// DefaultConfig returns a default configuration
	DefaultConfig() *ProviderConfig

	// Capabilities reports what providers of this type support
	Capabilities() Capabilities
}

type defaultRegistry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
	providers map[string]Provider
}

// NewRegistry creates a new provider registry
func NewRegistry() Registry {
	return &defaultRegistry{
		factories: make(map[string]ProviderFactory),
		providers: make(map[string]Provider),
	}
}

func (r *defaultRegistry) Register(name string, factory ProviderFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return NewProviderError(ErrTypeRegistration, "provider already registered", name)
	}

	r.factories[name] = factory
	return nil
}

func (r *defaultRegistry) factory(name string) (ProviderFactory, error) {
	factory, exists := r.factories[name]
	if !exists {
		return nil, NewProviderError(ErrTypeNotFound,
			fmt.Sprintf("provider not registered (available: %s)", strings.Join(r.namesLocked(), ", ")), name)
	}
	return factory, nil
}

// GetWithConfig validates config, creates the provider and closes any
// instance it replaces. A nil config uses the factory defaults.
func (r *defaultRegistry) GetWithConfig(name string, config *ProviderConfig) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, err := r.factory(name)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = factory.DefaultConfig()
	}

	if err := factory.ValidateConfig(config); err != nil {
		return nil, err
	}

	provider, err := factory.Create(config)
	if err != nil {
		return nil, err
	}

	if old, ok := r.providers[name]; ok {
		_ = old.Close()
	}
	r.providers[name] = provider

	return provider, nil
}

func (r *defaultRegistry) Capabilities(name string) (Capabilities, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, err := r.factory(name)
	if err != nil {
		return Capabilities{}, err
	}
	return factory.Capabilities(), nil
}

func (r *defaultRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *defaultRegistry) namesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *defaultRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for name, provider := range r.providers {
		if err := provider.Close(); err != nil {
			lastErr = err
		}
		delete(r.providers, name)
	}

	return lastErr
}

var globalRegistry = NewRegistry()

// GlobalRegistry returns the process-wide provider registry
func GlobalRegistry() Registry {
	return globalRegistry
}

// RegisterProvider registers a provider in the global registry
func RegisterProvider(name string, factory ProviderFactory) error {
	return globalRegistry.Register(name, factory)
}
