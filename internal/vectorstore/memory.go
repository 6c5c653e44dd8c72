package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// NewMemoryStore creates a new in-memory vector store. With WithPersistence
// an existing snapshot is loaded; a missing file is not an error.
func NewMemoryStore(options ...MemoryStoreOption) (*MemoryStore, error) {
	opts := MemoryStoreOptions{
		Metric: MetricL2,
	}

	for _, option := range options {
		option(&opts)
	}

	store := &MemoryStore{
		index:   make(map[string]int),
		options: opts,
	}

	if opts.PersistenceFile != "" {
		if err := store.LoadFromFile(opts.PersistenceFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return store, nil
}

// Upsert inserts or replaces records by id
func (ms *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrClosed
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := ms.upsertUnsafe(rec); err != nil {
			return err
		}
	}

	return ms.autoSaveUnsafe()
}

func (ms *MemoryStore) upsertUnsafe(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}
	if len(rec.Embedding) == 0 {
		return fmt.Errorf("record %s has an empty embedding", rec.ID)
	}
	if ms.dim != 0 && len(rec.Embedding) != ms.dim {
		return fmt.Errorf("%w: record %s has %d, store has %d", ErrDimensionMismatch, rec.ID, len(rec.Embedding), ms.dim)
	}

	if i, exists := ms.index[rec.ID]; exists {
		rec.Embedding = ms.prepare(rec.Embedding)
		ms.records[i] = rec
		return nil
	}
	// Check if we've reached the maximum number of vectors
	if ms.options.MaxVectors > 0 && len(ms.records) >= ms.options.MaxVectors {
		return fmt.Errorf("vector store is full (max %d vectors)", ms.options.MaxVectors)
	}

	rec.Embedding = ms.prepare(rec.Embedding)
	ms.index[rec.ID] = len(ms.records)
	ms.records = append(ms.records, rec)
	ms.dim = len(rec.Embedding)
	return nil
}

func (ms *MemoryStore) prepare(v []float32) []float32 {
	if ms.options.NormalizeVectors {
		return NormalizeVector(v)
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

// Query returns the k nearest records
func (ms *MemoryStore) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return nil, ErrClosed
	}
	if k <= 0 || len(ms.records) == 0 {
		return []Hit{}, nil
	}
	if len(vector) != ms.dim {
		return nil, fmt.Errorf("%w: query has %d, store has %d", ErrDimensionMismatch, len(vector), ms.dim)
	}

	query := vector
	if ms.options.NormalizeVectors {
		query = NormalizeVector(vector)
	}

	hits := make([]Hit, 0, len(ms.records))
	for pos, rec := range ms.records {
		hits = append(hits, Hit{
			ID:       rec.ID,
			Distance: ms.options.Metric.Distance(query, rec.Embedding),
			Metadata: rec.Metadata,
			Document: rec.Document,
			Position: pos,
		})
	}

	return rank(hits, k), nil
}

// Count returns the number of stored records
func (ms *MemoryStore) Count(ctx context.Context) (int, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.closed {
		return 0, ErrClosed
	}
	return len(ms.records), nil
}

// Reset drops every record
func (ms *MemoryStore) Reset(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return ErrClosed
	}

	ms.records = nil
	ms.index = make(map[string]int)
	ms.dim = 0
	return ms.autoSaveUnsafe()
}

// Metric returns the distance metric in use
func (ms *MemoryStore) Metric() Metric {
	return ms.options.Metric
}

// Get returns a record by id
func (ms *MemoryStore) Get(id string) (Record, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	i, ok := ms.index[id]
	if !ok {
		return Record{}, false
	}
	return ms.records[i], true
}

// Close saves the snapshot, if configured, and releases the store
func (ms *MemoryStore) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.closed {
		return nil
	}
	err := ms.autoSaveUnsafe()
	ms.closed = true
	return err
}

func (ms *MemoryStore) autoSaveUnsafe() error {
	if ms.options.PersistenceFile == "" {
		return nil
	}
	return ms.saveToFileUnsafe(ms.options.PersistenceFile)
}

func (ms *MemoryStore) saveToFileUnsafe(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp := filename + ".tmp"
	file, err := os.Create(tmp) // #nosec G304 -- filename is controlled by caller
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	if err := ms.exportUnsafe(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	return os.Rename(tmp, filename)
}

// LoadFromFile replaces the store contents with a JSON snapshot
func (ms *MemoryStore) LoadFromFile(filename string) error {
	file, err := os.Open(filename) // #nosec G304 -- filename is controlled by caller
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	return ms.ImportFromReader(file)
}

// ExportToWriter writes the store as JSON
func (ms *MemoryStore) ExportToWriter(writer io.Writer) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.exportUnsafe(writer)
}

func (ms *MemoryStore) exportUnsafe(writer io.Writer) error {
	snap := snapshot{Metric: ms.options.Metric, Records: make([]snapshotRecord, 0, len(ms.records))}
	for _, rec := range ms.records {
		snap.Records = append(snap.Records, snapshotRecord(rec))
	}

	encoder := json.NewEncoder(writer)
	if err := encoder.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// ImportFromReader replaces the store contents with JSON from reader.
// A snapshot built with a different metric is rejected.
func (ms *MemoryStore) ImportFromReader(reader io.Reader) error {
	var snap snapshot
	if err := json.NewDecoder(reader).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if snap.Metric != "" && snap.Metric != ms.options.Metric && len(snap.Records) > 0 {
		return fmt.Errorf("%w: snapshot uses %s, store uses %s", ErrMetricMismatch, snap.Metric, ms.options.Metric)
	}

	ms.records = nil
	ms.index = make(map[string]int)
	ms.dim = 0
	for _, rec := range snap.Records {
		if err := ms.upsertUnsafe(Record(rec)); err != nil {
			return err
		}
	}
	return nil
}

// Info reports backend diagnostics
func (ms *MemoryStore) Info(ctx context.Context) (Info, error) {
	n, err := ms.Count(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Backend:    "memory",
		Path:       ms.options.PersistenceFile,
		Collection: DefaultCollection,
		Metric:     ms.options.Metric,
		Count:      n,
	}, nil
}
