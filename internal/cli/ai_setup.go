package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yildizm/librarian/internal/ai"
	"github.com/yildizm/librarian/internal/ai/providers/ollama"
	"github.com/yildizm/librarian/internal/ai/providers/openai"
	"github.com/yildizm/librarian/internal/catalog"
	"github.com/yildizm/librarian/internal/config"
	"github.com/yildizm/librarian/internal/guard"
	"github.com/yildizm/librarian/internal/history"
	"github.com/yildizm/librarian/internal/index"
	"github.com/yildizm/librarian/internal/logger"
	"github.com/yildizm/librarian/internal/media"
	"github.com/yildizm/librarian/internal/monitor"
	"github.com/yildizm/librarian/internal/prefs"
	"github.com/yildizm/librarian/internal/recommend"
	"github.com/yildizm/librarian/internal/retrieval"
	"github.com/yildizm/librarian/internal/vectorstore"
)

var registerOnce sync.Once

// registerProviders adds the built-in factories to the global registry
func registerProviders() {
	registerOnce.Do(func() {
		if err := openai.Register(); err != nil {
			GetLogger("ai-setup").Warn("failed to register openai provider: %v", err)
		}
		if err := ollama.Register(); err != nil {
			GetLogger("ai-setup").Warn("failed to register ollama provider: %v", err)
		}
	})
}

// providerConfig maps the ai and media sections onto a registry config
func providerConfig(cfg *config.Config) *ai.ProviderConfig {
	pc := &ai.ProviderConfig{
		Name:               cfg.AI.Provider,
		Type:               cfg.AI.Provider,
		APIKey:             cfg.AI.APIKey,
		BaseURL:            cfg.AI.Endpoint,
		ChatModel:          cfg.AI.ChatModel,
		EmbedModel:         cfg.AI.EmbedModel,
		DefaultTemperature: &cfg.AI.Temperature,
		Timeout:            cfg.AI.Timeout,
		Options:            make(map[string]interface{}),
	}
	if cfg.AI.MaxRetries > 0 {
		pc.RetryConfig = &ai.RetryConfig{
			MaxRetries:   cfg.AI.MaxRetries,
			InitialDelay: cfg.AI.RetryDelay,
			MaxDelay:     cfg.AI.RetryDelay * 8,
		}
	}

	options := map[string]string{
		"image_model":         cfg.Media.ImageModel,
		"speech_model":        cfg.Media.SpeechModel,
		"voice":               cfg.Media.Voice,
		"transcription_model": cfg.Media.TranscriptionModel,
	}
	for k, v := range options {
		if v != "" {
			pc.Options[k] = v
		}
	}
	return pc
}

// createAIProvider creates an AI provider based on configuration.
func createAIProvider(cfg *config.Config) (ai.Provider, error) {
	registerProviders()

	name := strings.ToLower(cfg.AI.Provider)
	provider, err := ai.GlobalRegistry().GetWithConfig(name, providerConfig(cfg))
	if ai.IsConfigurationError(err) {
		return nil, fmt.Errorf("invalid %s provider settings (check with 'librarian config validate'): %w", name, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", name, err)
	}

	if caps, err := ai.GlobalRegistry().Capabilities(name); err == nil {
		log := GetLogger("ai-setup")
		if !caps.ForcedToolChoice {
			log.Debug("%s cannot force the summary tool; a reply without a tool call falls back", name)
		}
		if (cfg.Media.Speech && !caps.Speech) || (cfg.Media.Cover && !caps.Images) {
			log.Warn("%s supports %s; requested media will be reported as failed", name, caps)
		}
	}
	return provider, nil
}

// openStore opens the configured vector store
func openStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	metric, err := vectorstore.ParseMetric(cfg.Storage.Metric)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Memory {
		store, err := vectorstore.NewMemoryStore(vectorstore.WithMetric(metric))
		if err != nil {
			return nil, fmt.Errorf("failed to create memory store: %w", err)
		}
		return store, nil
	}

	store, err := vectorstore.OpenSQLite(ctx, cfg.Storage.DBPath, cfg.Storage.Collection, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	return store, nil
}

func newIndexBuilder(cfg *config.Config, embedder ai.Embedder, store vectorstore.Store, log *logger.Logger) *index.Builder {
	return index.NewBuilder(cfg.Storage.CatalogPath, embedder, store, index.Options{
		BatchSize:     cfg.Index.BatchSize,
		Reset:         cfg.Index.Reset,
		BatchInterval: cfg.Index.BatchInterval,
	}, log.WithComponent("index"))
}

func mediaOptions(cfg *config.Config) media.Options {
	return media.Options{
		AssetsDir:          cfg.Media.AssetsDir,
		SpeechModel:        cfg.Media.SpeechModel,
		Voice:              cfg.Media.Voice,
		SpeechFormat:       cfg.Media.SpeechFormat,
		ImageModel:         cfg.Media.ImageModel,
		ImageSize:          cfg.Media.ImageSize,
		TranscriptionModel: cfg.Media.TranscriptionModel,
		Language:           cfg.Media.Language,
	}
}

// librarian bundles the collaborators a command needs
type librarian struct {
	cfg          *config.Config
	log          *logger.Logger
	provider     ai.Provider
	store        vectorstore.Store
	lookup       *catalog.FileLookup
	prefs        *prefs.Store
	history      *history.Log
	media        *media.Service
	metrics      *monitor.Collector
	retriever    *retrieval.Retriever
	orchestrator *recommend.Orchestrator
}

// setupLibrarian creates the provider, opens the store and wires the
// orchestrator. An in-memory store is indexed from the catalog first.
func setupLibrarian(ctx context.Context, cfg *config.Config) (*librarian, error) {
	log := GetLogger("librarian")

	provider, err := createAIProvider(cfg)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		_ = provider.Close()
		return nil, err
	}

	l := &librarian{
		cfg:      cfg,
		log:      log,
		provider: provider,
		store:    store,
		lookup:   catalog.NewFileLookup(cfg.Storage.CatalogPath),
		prefs:    prefs.NewStore(cfg.Storage.PrefsPath),
		history:  history.NewLog(cfg.Storage.HistoryPath),
		media:    media.NewService(provider, mediaOptions(cfg), log.WithComponent("media")),
		metrics:  monitor.New(),
	}

	if cfg.Storage.Memory {
		if _, err := newIndexBuilder(cfg, provider, store, log).Build(ctx); err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to index catalog into memory: %w", err)
		}
	}

	l.retriever = retrieval.New(provider, store, cfg.Retrieval.K, log.WithComponent("retrieval"))

	opts := recommend.DefaultOptions()
	opts.Model = cfg.AI.ChatModel
	opts.Temperature = cfg.AI.Temperature
	opts.K = cfg.Retrieval.K
	opts.GroundingSize = cfg.Retrieval.GroundingSize
	opts.SnippetRunes = cfg.Retrieval.SnippetRunes
	opts.SummaryRunes = cfg.Retrieval.SummaryRunes
	opts.Delta = cfg.Retrieval.Delta

	l.orchestrator, err = recommend.New(recommend.Deps{
		Generator: timedGenerator{provider, l.metrics},
		Searcher:  timedSearcher{l.retriever, l.metrics},
		Lookup:    timedLookup{l.lookup, l.metrics},
		Prefs:     l.prefs,
		History:   l.history,
		Media:     timedMedia{l.media, l.metrics},
		Guard:     guard.New(cfg.Retrieval.Denylist, cfg.Retrieval.Triggers),
	}, opts, log.WithComponent("recommend"))
	if err != nil {
		l.Close()
		return nil, err
	}

	return l, nil
}

// Close releases the store and the provider
func (l *librarian) Close() {
	if l.store != nil {
		if err := l.store.Close(); err != nil {
			l.log.Warn("failed to close vector store: %v", err)
		}
	}
	if l.provider != nil {
		if err := l.provider.Close(); err != nil {
			l.log.Debug("failed to close provider: %v", err)
		}
	}
}
