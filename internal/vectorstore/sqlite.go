package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DefaultCollection is the collection books are indexed into
const DefaultCollection = "books"

// SQLiteStore persists records in a SQLite file. Distances are computed in
// process over the collection, which suits catalogs of a few thousand books.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	collection string
	metric     Metric

	mu     sync.RWMutex
	closed bool
}

// OpenSQLite opens (creating if needed) a store at path. An empty
// collection defaults to DefaultCollection. Opening a populated collection
// with a different metric fails with ErrMetricMismatch.
func OpenSQLite(ctx context.Context, path, collection string, metric Metric) (*SQLiteStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	if metric == "" {
		metric = MetricL2
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets the chat and a watcher share the file
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, collection: collection, metric: metric}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := s.checkMetric(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		metric TEXT NOT NULL,
		dim INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS vectors (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		year INTEGER,
		genres TEXT NOT NULL DEFAULT '',
		themes TEXT NOT NULL DEFAULT '',
		document TEXT NOT NULL,
		embedding BLOB NOT NULL,
		UNIQUE(collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_vectors_collection ON vectors(collection);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) checkMetric(ctx context.Context) error {
	var stored string
	err := s.db.QueryRowContext(ctx, "SELECT metric FROM collections WHERE name = ?", s.collection).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.ExecContext(ctx, "INSERT INTO collections (name, metric) VALUES (?, ?)", s.collection, string(s.metric))
		if err != nil {
			return fmt.Errorf("failed to register collection: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read collection: %w", err)
	}
	if Metric(stored) == s.metric {
		return nil
	}

	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: collection %s uses %s, requested %s", ErrMetricMismatch, s.collection, stored, s.metric)
	}
	_, err = s.db.ExecContext(ctx, "UPDATE collections SET metric = ? WHERE name = ?", string(s.metric), s.collection)
	return err
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// Collection returns the collection name
func (s *SQLiteStore) Collection() string {
	return s.collection
}

// Metric returns the distance metric in use
func (s *SQLiteStore) Metric() Metric {
	return s.metric
}

func (s *SQLiteStore) dim(ctx context.Context) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, "SELECT dim FROM collections WHERE name = ?", s.collection).Scan(&dim)
	if err != nil {
		return 0, fmt.Errorf("failed to read dimension: %w", err)
	}
	return dim, nil
}

// Upsert inserts or replaces records by id in one transaction
func (s *SQLiteStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	dim, err := s.dim(ctx)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op after commit
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (collection, id, title, author, year, genres, themes, document, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			year = excluded.year,
			genres = excluded.genres,
			themes = excluded.themes,
			document = excluded.document,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("record id cannot be empty")
		}
		if len(rec.Embedding) == 0 {
			return fmt.Errorf("record %s has an empty embedding", rec.ID)
		}
		if dim == 0 {
			dim = len(rec.Embedding)
		}
		if len(rec.Embedding) != dim {
			return fmt.Errorf("%w: record %s has %d, store has %d", ErrDimensionMismatch, rec.ID, len(rec.Embedding), dim)
		}

		var year sql.NullInt64
		if rec.Metadata.Year != nil {
			year = sql.NullInt64{Int64: int64(*rec.Metadata.Year), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			s.collection,
			rec.ID,
			rec.Metadata.Title,
			rec.Metadata.Author,
			year,
			rec.Metadata.Genres,
			rec.Metadata.Themes,
			rec.Document,
			serializeEmbedding(rec.Embedding),
		); err != nil {
			return fmt.Errorf("failed to save record %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "UPDATE collections SET dim = ? WHERE name = ?", dim, s.collection); err != nil {
		return fmt.Errorf("failed to update dimension: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query scans the collection and returns the k nearest records
func (s *SQLiteStore) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	dim, err := s.dim(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []Hit{}, nil
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d, store has %d", ErrDimensionMismatch, len(vector), dim)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, id, title, author, year, genres, themes, document, embedding
		FROM vectors
		WHERE collection = ?
		ORDER BY position
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var hits []Hit
	for rows.Next() {
		var (
			h    Hit
			year sql.NullInt64
			blob []byte
		)
		if err := rows.Scan(&h.Position, &h.ID, &h.Metadata.Title, &h.Metadata.Author, &year,
			&h.Metadata.Genres, &h.Metadata.Themes, &h.Document, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}
		if year.Valid {
			y := int(year.Int64)
			h.Metadata.Year = &y
		}
		h.Distance = s.metric.Distance(vector, deserializeEmbedding(blob))
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vectors: %w", err)
	}

	if hits == nil {
		return []Hit{}, nil
	}
	return rank(hits, k), nil
}

// Count returns the number of records in the collection
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors WHERE collection = ?", s.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return n, nil
}

// Reset drops every record in the collection
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM vectors WHERE collection = ?", s.collection); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE collections SET dim = 0, metric = ? WHERE name = ?", string(s.metric), s.collection); err != nil {
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	return tx.Commit()
}

// Info reports backend diagnostics
func (s *SQLiteStore) Info(ctx context.Context) (Info, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Backend:    "sqlite",
		Path:       s.path,
		Collection: s.collection,
		Metric:     s.metric,
		Count:      n,
	}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// serializeEmbedding stores a vector as little-endian IEEE 754, 4 bytes per float
func serializeEmbedding(embedding []float32) []byte {
	blob := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func deserializeEmbedding(blob []byte) []float32 {
	if len(blob)%4 != 0 {
		return nil
	}
	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return embedding
}
