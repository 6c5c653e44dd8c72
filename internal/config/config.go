package config

import (
	"fmt"
	"time"

	"github.com/yildizm/librarian/internal/logger"
	"github.com/yildizm/librarian/internal/vectorstore"
)

// Config holds the complete application configuration
type Config struct {
	Version   string          `yaml:"version" json:"version"`
	AI        AIConfig        `yaml:"ai" json:"ai"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Retrieval RetrievalConfig `yaml:"retrieval" json:"retrieval"`
	Index     IndexConfig     `yaml:"index" json:"index"`
	Media     MediaConfig     `yaml:"media" json:"media"`
	Output    OutputConfig    `yaml:"output" json:"output"`
}

// AIConfig configures AI provider settings
type AIConfig struct {
	Provider    string        `yaml:"provider" json:"provider"`       // openai|ollama
	ChatModel   string        `yaml:"chat_model" json:"chat_model"`   // model answering both phases
	EmbedModel  string        `yaml:"embed_model" json:"embed_model"` // model for catalog and query vectors
	Endpoint    string        `yaml:"endpoint" json:"endpoint"`       // API endpoint URL
	APIKey      string        `yaml:"api_key" json:"api_key"`         // API key
	Temperature float64       `yaml:"temperature" json:"temperature"` // title selection temperature
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`         // request timeout
	MaxRetries  int           `yaml:"max_retries" json:"max_retries"` // extra attempts; 0 sends once
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay"` // first backoff delay
}

// StorageConfig configures the vector catalog and the local state files
type StorageConfig struct {
	DBPath      string `yaml:"db_path" json:"db_path"`           // SQLite vector catalog
	Collection  string `yaml:"collection" json:"collection"`     // collection inside the catalog
	Metric      string `yaml:"metric" json:"metric"`             // l2|cosine
	Memory      bool   `yaml:"memory" json:"memory"`             // in-process store instead of SQLite
	CatalogPath string `yaml:"catalog_path" json:"catalog_path"` // book summaries JSON
	PrefsPath   string `yaml:"prefs_path" json:"prefs_path"`     // liked/disliked titles
	HistoryPath string `yaml:"history_path" json:"history_path"` // interaction CSV
}

// RetrievalConfig tunes retrieval, grounding and the intent guard
type RetrievalConfig struct {
	K             int      `yaml:"k" json:"k"`
	GroundingSize int      `yaml:"grounding_size" json:"grounding_size"`
	SnippetRunes  int      `yaml:"snippet_runes" json:"snippet_runes"`
	SummaryRunes  int      `yaml:"summary_runes" json:"summary_runes"`
	Delta         float64  `yaml:"delta" json:"delta"`
	Denylist      []string `yaml:"denylist" json:"denylist"` // added to the built-in list
	Triggers      []string `yaml:"triggers" json:"triggers"` // added to the built-in list
}

// IndexConfig configures catalog indexing
type IndexConfig struct {
	BatchSize     int           `yaml:"batch_size" json:"batch_size"`
	Reset         bool          `yaml:"reset" json:"reset"`
	BatchInterval time.Duration `yaml:"batch_interval" json:"batch_interval"` // negative disables throttling
	Debounce      time.Duration `yaml:"debounce" json:"debounce"`             // watch mode
}

// MediaConfig configures the optional side channels
type MediaConfig struct {
	AssetsDir          string `yaml:"assets_dir" json:"assets_dir"`
	Speech             bool   `yaml:"speech" json:"speech"`
	Cover              bool   `yaml:"cover" json:"cover"`
	SpeechModel        string `yaml:"speech_model" json:"speech_model"`
	Voice              string `yaml:"voice" json:"voice"`
	SpeechFormat       string `yaml:"speech_format" json:"speech_format"`
	ImageModel         string `yaml:"image_model" json:"image_model"`
	ImageSize          string `yaml:"image_size" json:"image_size"`
	TranscriptionModel string `yaml:"transcription_model" json:"transcription_model"`
	Language           string `yaml:"language" json:"language"`
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat   string `yaml:"default_format" json:"default_format"`     // json|text|markdown|csv
	ColorMode       string `yaml:"color_mode" json:"color_mode"`             // auto|always|never
	Verbose         bool   `yaml:"verbose" json:"verbose"`                   // default verbosity
	LogFormat       string `yaml:"log_format" json:"log_format"`             // text|logfmt
	TimestampFormat string `yaml:"timestamp_format" json:"timestamp_format"` // history display
	ShowEmoji       bool   `yaml:"show_emoji" json:"show_emoji"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		AI: AIConfig{
			Provider:    "openai",
			ChatModel:   "gpt-4o-mini",
			EmbedModel:  "text-embedding-3-small",
			Temperature: 0.2,
			Timeout:     60 * time.Second,
			MaxRetries:  0,
			RetryDelay:  time.Second,
		},
		Storage: StorageConfig{
			DBPath:      "./chroma/librarian.db",
			Collection:  vectorstore.DefaultCollection,
			Metric:      string(vectorstore.MetricL2),
			CatalogPath: "./data/book_summaries.json",
			PrefsPath:   "./data/user_prefs.json",
			HistoryPath: "./data/log.csv",
		},
		Retrieval: RetrievalConfig{
			K:             5,
			GroundingSize: 3,
			SnippetRunes:  280,
			SummaryRunes:  800,
			Delta:         0.05,
		},
		Index: IndexConfig{
			BatchSize:     64,
			Reset:         true,
			BatchInterval: 250 * time.Millisecond,
			Debounce:      500 * time.Millisecond,
		},
		Media: MediaConfig{
			AssetsDir:    "./assets/covers",
			SpeechFormat: "mp3",
			Language:     "ro",
		},
		Output: OutputConfig{
			DefaultFormat:   "text",
			ColorMode:       "auto",
			LogFormat:       string(logger.FormatText),
			TimestampFormat: "2006-01-02 15:04:05",
			ShowEmoji:       true,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateAIConfig(); err != nil {
		return err
	}
	if err := c.validateStorageConfig(); err != nil {
		return err
	}
	if err := c.validateRetrievalConfig(); err != nil {
		return err
	}
	if err := c.validateIndexConfig(); err != nil {
		return err
	}
	if err := c.validateMediaConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	return nil
}

// validateAIConfig validates AI-related configuration
func (c *Config) validateAIConfig() error {
	validProviders := map[string]bool{
		"openai": true,
		"ollama": true,
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("invalid AI provider: %s (must be one of: openai, ollama)", c.AI.Provider)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.AI.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	return nil
}

// validateStorageConfig validates storage paths and the metric
func (c *Config) validateStorageConfig() error {
	if _, err := vectorstore.ParseMetric(c.Storage.Metric); err != nil {
		return err
	}
	if c.Storage.Collection == "" {
		return fmt.Errorf("collection must not be empty")
	}
	if !c.Storage.Memory && c.Storage.DBPath == "" {
		return fmt.Errorf("db_path is required unless memory is enabled")
	}
	if c.Storage.CatalogPath == "" {
		return fmt.Errorf("catalog_path must not be empty")
	}
	return nil
}

// validateRetrievalConfig validates retrieval tuning
func (c *Config) validateRetrievalConfig() error {
	if c.Retrieval.K < 1 {
		return fmt.Errorf("k must be greater than 0")
	}
	if c.Retrieval.GroundingSize < 1 {
		return fmt.Errorf("grounding_size must be greater than 0")
	}
	if c.Retrieval.SnippetRunes < 1 {
		return fmt.Errorf("snippet_runes must be greater than 0")
	}
	if c.Retrieval.SummaryRunes < 1 {
		return fmt.Errorf("summary_runes must be greater than 0")
	}
	if c.Retrieval.Delta < 0 {
		return fmt.Errorf("delta must be non-negative")
	}
	return nil
}

// validateIndexConfig validates indexing settings
func (c *Config) validateIndexConfig() error {
	if c.Index.BatchSize < 1 {
		return fmt.Errorf("batch_size must be greater than 0")
	}
	if c.Index.Debounce < 0 {
		return fmt.Errorf("debounce must be non-negative")
	}
	return nil
}

// validateMediaConfig validates side channel settings
func (c *Config) validateMediaConfig() error {
	if (c.Media.Speech || c.Media.Cover) && c.Media.AssetsDir == "" {
		return fmt.Errorf("assets_dir is required when speech or cover is enabled")
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.DefaultFormat != "" {
		validFormats := map[string]bool{
			"json":     true,
			"text":     true,
			"markdown": true,
			"csv":      true,
		}
		if !validFormats[c.Output.DefaultFormat] {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text, markdown, csv)", c.Output.DefaultFormat)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	if _, err := logger.ParseFormat(c.Output.LogFormat); err != nil {
		return err
	}
	return nil
}
