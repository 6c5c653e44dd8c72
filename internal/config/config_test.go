package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", cfg.Version)
	}
	if cfg.AI.Provider != "openai" {
		t.Errorf("Expected AI provider openai, got %s", cfg.AI.Provider)
	}
	if cfg.AI.ChatModel != "gpt-4o-mini" || cfg.AI.EmbedModel != "text-embedding-3-small" {
		t.Errorf("Unexpected default models: %s, %s", cfg.AI.ChatModel, cfg.AI.EmbedModel)
	}
	if cfg.AI.Temperature != 0.2 {
		t.Errorf("Expected temperature 0.2, got %v", cfg.AI.Temperature)
	}
	if cfg.AI.MaxRetries != 0 {
		t.Errorf("Expected no retries by default, got %d", cfg.AI.MaxRetries)
	}
	if cfg.Retrieval.K != 5 || cfg.Retrieval.GroundingSize != 3 || cfg.Retrieval.SnippetRunes != 280 {
		t.Errorf("Unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.Delta != 0.05 {
		t.Errorf("Expected delta 0.05, got %v", cfg.Retrieval.Delta)
	}
	if cfg.Index.BatchSize != 64 || !cfg.Index.Reset {
		t.Errorf("Unexpected index defaults: %+v", cfg.Index)
	}
	if cfg.Storage.Metric != "l2" || cfg.Storage.Collection != "books" {
		t.Errorf("Unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Output.DefaultFormat != "text" {
		t.Errorf("Expected output format text, got %s", cfg.Output.DefaultFormat)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "invalid AI provider",
			mutate:  func(c *Config) { c.AI.Provider = "invalid" },
			wantErr: true,
			errMsg:  "invalid AI provider: invalid (must be one of: openai, ollama)",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.AI.Temperature = 2.5 },
			wantErr: true,
			errMsg:  "temperature must be between 0 and 2",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.AI.MaxRetries = -1 },
			wantErr: true,
			errMsg:  "max_retries must be non-negative",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.AI.Timeout = -time.Second },
			wantErr: true,
			errMsg:  "timeout must be non-negative",
		},
		{
			name:    "unknown metric",
			mutate:  func(c *Config) { c.Storage.Metric = "manhattan" },
			wantErr: true,
			errMsg:  "invalid distance metric",
		},
		{
			name:    "missing db path",
			mutate:  func(c *Config) { c.Storage.DBPath = "" },
			wantErr: true,
			errMsg:  "db_path is required",
		},
		{
			name:   "memory store needs no db path",
			mutate: func(c *Config) { c.Storage.DBPath = ""; c.Storage.Memory = true },
		},
		{
			name:    "zero k",
			mutate:  func(c *Config) { c.Retrieval.K = 0 },
			wantErr: true,
			errMsg:  "k must be greater than 0",
		},
		{
			name:    "negative delta",
			mutate:  func(c *Config) { c.Retrieval.Delta = -0.1 },
			wantErr: true,
			errMsg:  "delta must be non-negative",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Index.BatchSize = 0 },
			wantErr: true,
			errMsg:  "batch_size must be greater than 0",
		},
		{
			name:   "unthrottled indexing",
			mutate: func(c *Config) { c.Index.BatchInterval = -1 },
		},
		{
			name:    "media without assets dir",
			mutate:  func(c *Config) { c.Media.Cover = true; c.Media.AssetsDir = "" },
			wantErr: true,
			errMsg:  "assets_dir is required",
		},
		{
			name:    "invalid output format",
			mutate:  func(c *Config) { c.Output.DefaultFormat = "invalid" },
			wantErr: true,
			errMsg:  "invalid output format: invalid (must be one of: json, text, markdown, csv)",
		},
		{
			name:    "invalid color mode",
			mutate:  func(c *Config) { c.Output.ColorMode = "rainbow" },
			wantErr: true,
			errMsg:  "invalid color mode: rainbow (must be one of: auto, always, never)",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Output.LogFormat = "xml" },
			wantErr: true,
			errMsg:  "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}
