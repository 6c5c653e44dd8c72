package vectorstore

import (
	"sync"
)

// MemoryStoreOptions configures the in-memory vector store
type MemoryStoreOptions struct {
	PersistenceFile  string
	Metric           Metric
	MaxVectors       int
	NormalizeVectors bool
}

// MemoryStoreOption is a function type for configuring MemoryStore
type MemoryStoreOption func(*MemoryStoreOptions)

// WithPersistence loads from and saves to a JSON snapshot file
func WithPersistence(filename string) MemoryStoreOption {
	return func(opts *MemoryStoreOptions) {
		opts.PersistenceFile = filename
	}
}

// WithMetric selects the distance metric
func WithMetric(metric Metric) MemoryStoreOption {
	return func(opts *MemoryStoreOptions) {
		opts.Metric = metric
	}
}

// WithMaxVectors limits the number of vectors stored
func WithMaxVectors(maxVectors int) MemoryStoreOption {
	return func(opts *MemoryStoreOptions) {
		opts.MaxVectors = maxVectors
	}
}

// WithNormalization enables automatic vector normalization
func WithNormalization() MemoryStoreOption {
	return func(opts *MemoryStoreOptions) {
		opts.NormalizeVectors = true
	}
}

// MemoryStore implements Store using in-memory storage
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int
	dim     int
	options MemoryStoreOptions
	closed  bool
}

// snapshot is the JSON persistence format
type snapshot struct {
	Metric  Metric           `json:"metric"`
	Records []snapshotRecord `json:"records"`
}

type snapshotRecord struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
	Document  string    `json:"document"`
}
