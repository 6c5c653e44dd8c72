package index

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/yildizm/librarian/internal/ai"
	"github.com/yildizm/librarian/internal/catalog"
	"github.com/yildizm/librarian/internal/logger"
	"github.com/yildizm/librarian/internal/vectorstore"
)

const (
	// DefaultBatchSize is the number of index texts embedded per request
	DefaultBatchSize = 64

	// DefaultBatchInterval spaces embedding requests during a build
	DefaultBatchInterval = 250 * time.Millisecond
)

// Options controls a build
type Options struct {
	// BatchSize caps texts per embedding request; <= 0 uses DefaultBatchSize
	BatchSize int

	// Reset drops the collection before upserting
	Reset bool

	// BatchInterval is the minimum spacing between embedding requests;
	// 0 uses DefaultBatchInterval, negative disables throttling
	BatchInterval time.Duration
}

// Result summarizes a finished build
type Result struct {
	Catalog  string        `json:"catalog"`
	Indexed  int           `json:"indexed"`
	Batches  int           `json:"batches"`
	Count    int           `json:"count"`
	Reset    bool          `json:"reset"`
	Duration time.Duration `json:"duration"`
}

// Builder embeds a catalog file into a vector store
type Builder struct {
	catalogPath string
	embedder    ai.Embedder
	store       vectorstore.Store
	opts        Options
	limiter     *rate.Limiter
	log         *logger.Logger
}

// NewBuilder creates a builder for the catalog at catalogPath
func NewBuilder(catalogPath string, embedder ai.Embedder, store vectorstore.Store, opts Options, log *logger.Logger) *Builder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchInterval == 0 {
		opts.BatchInterval = DefaultBatchInterval
	}
	if log == nil {
		log = logger.Nop()
	}

	limit := rate.Inf
	if opts.BatchInterval > 0 {
		limit = rate.Every(opts.BatchInterval)
	}

	return &Builder{
		catalogPath: catalogPath,
		embedder:    embedder,
		store:       store,
		opts:        opts,
		limiter:     rate.NewLimiter(limit, 1),
		log:         log.WithComponent("index"),
	}
}

// CatalogPath returns the catalog file the builder reads
func (b *Builder) CatalogPath() string {
	return b.catalogPath
}

// Build loads the catalog, embeds every record and upserts it. Embedding
// or store failures abort the build; records already upserted stay.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	cat, err := catalog.Load(b.catalogPath)
	if err != nil {
		return nil, err
	}
	if cat.Shape != catalog.ShapeList {
		return nil, fmt.Errorf("catalog %s must be a JSON array of books to be indexed", b.catalogPath)
	}

	prepared := Prepare(cat.Books)

	if b.opts.Reset {
		if err := b.store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("failed to reset collection: %w", err)
		}
	}

	b.log.InfoWithFields("Upserting books", []logger.Field{
		logger.Count(len(prepared)),
		logger.F("catalog", b.catalogPath),
		logger.F("batch_size", b.opts.BatchSize),
	})

	result := &Result{Catalog: b.catalogPath, Reset: b.opts.Reset}

	for lo := 0; lo < len(prepared); lo += b.opts.BatchSize {
		hi := min(lo+b.opts.BatchSize, len(prepared))
		if err := b.buildBatch(ctx, prepared[lo:hi]); err != nil {
			return nil, fmt.Errorf("batch [%d-%d]: %w", lo, hi, err)
		}
		result.Batches++
		result.Indexed += hi - lo
		b.log.Debug("Upserted batch [%d-%d]", lo, hi)
	}

	if result.Count, err = b.store.Count(ctx); err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	b.log.InfoWithFields("Index build complete", []logger.Field{
		logger.Count(result.Indexed),
		logger.Duration(result.Duration),
	})
	return result, nil
}

func (b *Builder) buildBatch(ctx context.Context, batch []Prepared) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].IndexText
	}

	vectors, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
	}

	records := make([]vectorstore.Record, len(batch))
	for i := range batch {
		records[i] = batch[i].Record
		records[i].Embedding = vectors[i]
	}

	if err := b.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}
	return nil
}
