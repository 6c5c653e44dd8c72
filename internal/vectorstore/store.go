package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the stored dimension
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrMetricMismatch is returned when a populated store was built with another metric
	ErrMetricMismatch = errors.New("distance metric mismatch")

	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("vector store is closed")
)

// Metric names the distance function a store was built with
type Metric string

const (
	// MetricL2 is squared Euclidean distance
	MetricL2 Metric = "l2"

	// MetricCosine is 1 - cosine similarity
	MetricCosine Metric = "cosine"
)

// ParseMetric validates a metric name; empty selects MetricL2
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricL2:
		return MetricL2, nil
	case MetricCosine:
		return MetricCosine, nil
	default:
		return "", fmt.Errorf("invalid distance metric: %s (must be one of: l2, cosine)", s)
	}
}

// Distance returns the metric's distance between a and b; always >= 0
func (m Metric) Distance(a, b []float32) float64 {
	if m == MetricCosine {
		return CosineDistance(a, b)
	}
	return SquaredL2(a, b)
}

// Metadata holds scalar-only book fields. List fields are stored
// comma-joined; use GenreList and ThemeList to read them back.
type Metadata struct {
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	Year   *int   `json:"year,omitempty"`
	Genres string `json:"genres,omitempty"`
	Themes string `json:"themes,omitempty"`
}

// GenreList splits the comma-joined genres
func (m Metadata) GenreList() []string {
	return splitList(m.Genres)
}

// ThemeList splits the comma-joined themes
func (m Metadata) ThemeList() []string {
	return splitList(m.Themes)
}

// JoinList renders a list field for storage
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Record is one indexed book
type Record struct {
	ID        string
	Embedding []float32
	Metadata  Metadata
	Document  string
}

// Hit is a query result. Position is the record's insertion order and
// breaks distance ties.
type Hit struct {
	ID       string
	Distance float64
	Metadata Metadata
	Document string
	Position int
}

// Store is a nearest-neighbour index over book records
type Store interface {
	// Upsert inserts or replaces records by id; replaced records keep their position
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to k hits ordered by ascending distance, ties by position
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)

	// Reset drops every record
	Reset(ctx context.Context) error

	// Metric returns the distance metric in use
	Metric() Metric

	Close() error
}

// Describer is implemented by stores that can report Info
type Describer interface {
	Info(ctx context.Context) (Info, error)
}

// Info describes a store for diagnostics
type Info struct {
	Backend    string `json:"backend"`
	Path       string `json:"path,omitempty"`
	Collection string `json:"collection"`
	Metric     Metric `json:"metric"`
	Count      int    `json:"count"`
}
