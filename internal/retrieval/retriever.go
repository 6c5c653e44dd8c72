package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yildizm/librarian/internal/ai"
	"github.com/yildizm/librarian/internal/logger"
	"github.com/yildizm/librarian/internal/vectorstore"
)

const (
	// DefaultK is the number of candidates returned when k is not set
	DefaultK = 5

	// UnknownTitle stands in for a hit stored without a title
	UnknownTitle = "Unknown"
)

// Candidate is one ranked search result. Score is 1/(1+distance) until
// personalization adjusts it.
type Candidate struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Author   string   `json:"author,omitempty"`
	Year     *int     `json:"year,omitempty"`
	Genres   []string `json:"genres,omitempty"`
	Themes   []string `json:"themes,omitempty"`
	Document string   `json:"document"`
	Distance float64  `json:"distance"`
	Score    float64  `json:"score"`
}

// Snippet truncates the document to n runes, appending an ellipsis when cut
func (c *Candidate) Snippet(n int) string {
	return Truncate(c.Document, n)
}

// Truncate cuts s to n runes, appending "…" when anything was removed
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n < 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// Score converts a non-negative distance into a score in (0, 1]
func Score(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

// Retriever embeds queries and ranks catalog vectors against them
type Retriever struct {
	embedder ai.Embedder
	store    vectorstore.Store
	k        int
	log      *logger.Logger
}

// New creates a retriever; defaultK <= 0 selects DefaultK
func New(embedder ai.Embedder, store vectorstore.Store, defaultK int, log *logger.Logger) *Retriever {
	if defaultK <= 0 {
		defaultK = DefaultK
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Retriever{
		embedder: embedder,
		store:    store,
		k:        defaultK,
		log:      log.WithComponent("retrieval"),
	}
}

// DefaultK returns the k used when Search is given k <= 0
func (r *Retriever) DefaultK() int {
	return r.k
}

// Search returns up to k candidates ordered by descending score, ties in
// store order. An empty store yields an empty slice. Embedding and store
// failures are returned unchanged in meaning.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	if k <= 0 {
		k = r.k
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	if count == 0 {
		r.log.Debug("store is empty, nothing to search")
		return []Candidate{}, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.store.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query store: %w", err)
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, h := range hits {
		title := strings.TrimSpace(h.Metadata.Title)
		if title == "" {
			title = UnknownTitle
		}
		candidates = append(candidates, Candidate{
			ID:       h.ID,
			Title:    title,
			Author:   h.Metadata.Author,
			Year:     h.Metadata.Year,
			Genres:   h.Metadata.GenreList(),
			Themes:   h.Metadata.ThemeList(),
			Document: strings.TrimSpace(h.Document),
			Distance: h.Distance,
			Score:    Score(h.Distance),
		})
	}

	SortByScore(candidates)

	r.log.DebugWithFields("search complete", []logger.Field{logger.Count(len(candidates)), logger.F("k", k)})
	return candidates, nil
}

// SortByScore orders candidates by descending score, keeping input order on ties
func SortByScore(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}
