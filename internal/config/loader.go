package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.librarian.yaml",               // Project-specific config (highest priority)
	"~/.config/librarian/config.yaml", // User config
	"/etc/librarian/config.yaml",      // System config (lowest priority)
}

// DotEnvPath is loaded into the environment before any config is read
const DotEnvPath = ".env"

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	lookupEnv   func(string) (string, bool)
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
		lookupEnv:   os.LookupEnv,
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables already set win; missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{DotEnvPath}
	}
	for _, path := range paths {
		if !fileExists(path) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. LIBRARIAN_* environment variables
// 3. Deployment variables (OPENAI_API_KEY, DATA_JSON, ...)
// 4. ./.librarian.yaml
// 5. ~/.config/librarian/config.yaml
// 6. /etc/librarian/config.yaml
// 7. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// lowest priority first so later files override earlier ones
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := expandPath(l.configPaths[i])
			if !fileExists(expandedPath) {
				continue
			}
			if err := l.loadFromFile(config, expandedPath); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile decodes a YAML file over config. Keys absent from the file
// keep their current value, booleans included.
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() or comes from ConfigPaths
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

type envSetter func(string) error

// compatEnv are the variable names used by earlier deployments. They apply
// before the LIBRARIAN_* variables, which therefore win.
func compatEnv(config *Config) map[string]envSetter {
	return map[string]envSetter{
		"OPENAI_API_KEY":     func(v string) error { config.AI.APIKey = v; return nil },
		"OPENAI_MODEL_CHAT":  func(v string) error { config.AI.ChatModel = v; return nil },
		"OPENAI_MODEL_EMBED": func(v string) error { config.AI.EmbedModel = v; return nil },
		"CHAT_TEMPERATURE":   func(v string) error { return parseFloat(v, &config.AI.Temperature) },
		"RAG_TOP_K":          func(v string) error { return parseInt(v, &config.Retrieval.K) },
		"DATA_JSON":          func(v string) error { config.Storage.CatalogPath = v; return nil },
		"CHROMA_DIR":         func(v string) error { config.Storage.DBPath = filepath.Join(v, "librarian.db"); return nil },
		"CHROMA_COLLECTION":  func(v string) error { config.Storage.Collection = v; return nil },
		"ASSETS_DIR":         func(v string) error { config.Media.AssetsDir = v; return nil },
		"EMBED_BATCH_SIZE":   func(v string) error { return parseInt(v, &config.Index.BatchSize) },
		"RESET_COLLECTION":   func(v string) error { return parseBool(v, &config.Index.Reset) },
	}
}

func librarianEnv(config *Config) map[string]envSetter {
	return map[string]envSetter{
		// AI Config
		"LIBRARIAN_AI_PROVIDER":    func(v string) error { config.AI.Provider = v; return nil },
		"LIBRARIAN_AI_CHAT_MODEL":  func(v string) error { config.AI.ChatModel = v; return nil },
		"LIBRARIAN_AI_EMBED_MODEL": func(v string) error { config.AI.EmbedModel = v; return nil },
		"LIBRARIAN_AI_ENDPOINT":    func(v string) error { config.AI.Endpoint = v; return nil },
		"LIBRARIAN_AI_API_KEY":     func(v string) error { config.AI.APIKey = v; return nil },
		"LIBRARIAN_AI_TEMPERATURE": func(v string) error { return parseFloat(v, &config.AI.Temperature) },
		"LIBRARIAN_AI_TIMEOUT":     func(v string) error { return parseDuration(v, &config.AI.Timeout) },
		"LIBRARIAN_AI_MAX_RETRIES": func(v string) error { return parseInt(v, &config.AI.MaxRetries) },
		"LIBRARIAN_AI_RETRY_DELAY": func(v string) error { return parseDuration(v, &config.AI.RetryDelay) },

		// Storage Config
		"LIBRARIAN_STORAGE_DB_PATH":      func(v string) error { config.Storage.DBPath = v; return nil },
		"LIBRARIAN_STORAGE_COLLECTION":   func(v string) error { config.Storage.Collection = v; return nil },
		"LIBRARIAN_STORAGE_METRIC":       func(v string) error { config.Storage.Metric = v; return nil },
		"LIBRARIAN_STORAGE_MEMORY":       func(v string) error { return parseBool(v, &config.Storage.Memory) },
		"LIBRARIAN_STORAGE_CATALOG_PATH": func(v string) error { config.Storage.CatalogPath = v; return nil },
		"LIBRARIAN_STORAGE_PREFS_PATH":   func(v string) error { config.Storage.PrefsPath = v; return nil },
		"LIBRARIAN_STORAGE_HISTORY_PATH": func(v string) error { config.Storage.HistoryPath = v; return nil },

		// Retrieval Config
		"LIBRARIAN_RETRIEVAL_K":              func(v string) error { return parseInt(v, &config.Retrieval.K) },
		"LIBRARIAN_RETRIEVAL_GROUNDING_SIZE": func(v string) error { return parseInt(v, &config.Retrieval.GroundingSize) },
		"LIBRARIAN_RETRIEVAL_SNIPPET_RUNES":  func(v string) error { return parseInt(v, &config.Retrieval.SnippetRunes) },
		"LIBRARIAN_RETRIEVAL_SUMMARY_RUNES":  func(v string) error { return parseInt(v, &config.Retrieval.SummaryRunes) },
		"LIBRARIAN_RETRIEVAL_DELTA":          func(v string) error { return parseFloat(v, &config.Retrieval.Delta) },
		"LIBRARIAN_RETRIEVAL_DENYLIST":       func(v string) error { config.Retrieval.Denylist = splitList(v); return nil },
		"LIBRARIAN_RETRIEVAL_TRIGGERS":       func(v string) error { config.Retrieval.Triggers = splitList(v); return nil },

		// Index Config
		"LIBRARIAN_INDEX_BATCH_SIZE":     func(v string) error { return parseInt(v, &config.Index.BatchSize) },
		"LIBRARIAN_INDEX_RESET":          func(v string) error { return parseBool(v, &config.Index.Reset) },
		"LIBRARIAN_INDEX_BATCH_INTERVAL": func(v string) error { return parseDuration(v, &config.Index.BatchInterval) },
		"LIBRARIAN_INDEX_DEBOUNCE":       func(v string) error { return parseDuration(v, &config.Index.Debounce) },

		// Media Config
		"LIBRARIAN_MEDIA_ASSETS_DIR":    func(v string) error { config.Media.AssetsDir = v; return nil },
		"LIBRARIAN_MEDIA_SPEECH":        func(v string) error { return parseBool(v, &config.Media.Speech) },
		"LIBRARIAN_MEDIA_COVER":         func(v string) error { return parseBool(v, &config.Media.Cover) },
		"LIBRARIAN_MEDIA_VOICE":         func(v string) error { config.Media.Voice = v; return nil },
		"LIBRARIAN_MEDIA_SPEECH_FORMAT": func(v string) error { config.Media.SpeechFormat = v; return nil },
		"LIBRARIAN_MEDIA_LANGUAGE":      func(v string) error { config.Media.Language = v; return nil },

		// Output Config
		"LIBRARIAN_OUTPUT_DEFAULT_FORMAT": func(v string) error { config.Output.DefaultFormat = v; return nil },
		"LIBRARIAN_OUTPUT_COLOR_MODE":     func(v string) error { config.Output.ColorMode = v; return nil },
		"LIBRARIAN_OUTPUT_VERBOSE":        func(v string) error { return parseBool(v, &config.Output.Verbose) },
		"LIBRARIAN_OUTPUT_LOG_FORMAT":     func(v string) error { config.Output.LogFormat = v; return nil },
		"LIBRARIAN_OUTPUT_SHOW_EMOJI":     func(v string) error { return parseBool(v, &config.Output.ShowEmoji) },
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	for _, mappings := range []map[string]envSetter{compatEnv(config), librarianEnv(config)} {
		for envVar, setter := range mappings {
			value, ok := l.lookupEnv(envVar)
			if !ok || value == "" {
				continue
			}
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}
	return nil
}

// Save writes config as YAML, creating parent directories
func Save(config *Config, path string) error {
	if err := validateConfigPath(path); err != nil {
		return fmt.Errorf("invalid config path: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	absPath, err := filepath.Abs(expandPath(cleanPath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if strings.HasPrefix(absPath, "/proc/") || strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseFloat(s string, dst *float64) error {
	val, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

// parseBool also accepts yes/y/no/n
func parseBool(s string, dst *bool) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		*dst = true
		return nil
	case "no", "n":
		*dst = false
		return nil
	}
	val, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
