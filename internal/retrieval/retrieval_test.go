package retrieval

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/yildizm/librarian/internal/vectorstore"
)

// stubEmbedder returns a fixed vector for every text
type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := s.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func seededStore(t *testing.T) *vectorstore.MemoryStore {
	t.Helper()
	store, _ := vectorstore.NewMemoryStore()
	records := []vectorstore.Record{
		{ID: "a", Embedding: []float32{0, 0}, Metadata: vectorstore.Metadata{Title: "Near", Themes: "prietenie, magie"}, Document: " near doc "},
		{ID: "b", Embedding: []float32{1, 0}, Metadata: vectorstore.Metadata{Title: "Mid"}, Document: "mid doc"},
		{ID: "c", Embedding: []float32{0, 1}, Metadata: vectorstore.Metadata{Title: ""}, Document: "untitled"},
		{ID: "d", Embedding: []float32{3, 0}, Metadata: vectorstore.Metadata{Title: "Far"}, Document: "far doc"},
	}
	if err := store.Upsert(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestScore(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{1, 0.5},
		{3, 0.25},
		{-0.1, 1},
	}

	for _, tt := range tests {
		if got := Score(tt.distance); got != tt.want {
			t.Errorf("Score(%v) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestRetriever_Search(t *testing.T) {
	r := New(&stubEmbedder{vec: []float32{0, 0}}, seededStore(t), 0, nil)

	got, err := r.Search(context.Background(), "anything", 0)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Search() = %d candidates, want 4 (fewer than default k)", len(got))
	}

	for i, c := range got {
		if c.Score <= 0 || c.Score > 1 {
			t.Errorf("candidate %d score %v outside (0, 1]", i, c.Score)
		}
		if i > 0 && got[i-1].Score < c.Score {
			t.Errorf("candidates not sorted at %d", i)
		}
	}

	// Mid and the untitled record tie at distance 1; store order decides
	want := []string{"Near", "Mid", UnknownTitle, "Far"}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("candidate %d = %s, want %s", i, got[i].Title, title)
		}
	}
	if got[0].Document != "near doc" {
		t.Errorf("document not trimmed: %q", got[0].Document)
	}
	if len(got[0].Themes) != 2 || got[0].Themes[1] != "magie" || got[1].Themes != nil {
		t.Errorf("themes = %v / %v, want parsed list and nil", got[0].Themes, got[1].Themes)
	}
	if got[3].Score != 0.1 {
		t.Errorf("Far score = %v, want 1/(1+9)", got[3].Score)
	}

	top, _ := r.Search(context.Background(), "anything", 2)
	if len(top) != 2 {
		t.Errorf("Search(k=2) = %d candidates", len(top))
	}
}

func TestRetriever_EmptyStore(t *testing.T) {
	store, _ := vectorstore.NewMemoryStore()
	emb := &stubEmbedder{vec: []float32{0, 0}}

	got, err := New(emb, store, 5, nil).Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search() on empty store error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Search() = %v, want empty slice", got)
	}
}

func TestRetriever_EmbedFailure(t *testing.T) {
	boom := errors.New("unreachable")
	_, err := New(&stubEmbedder{err: boom}, seededStore(t), 5, nil).Search(context.Background(), "q", 5)
	if !errors.Is(err, boom) {
		t.Errorf("Search() error = %v, want wrapped embed error", err)
	}
}

func TestPersonalize(t *testing.T) {
	candidates := []Candidate{
		{Title: "A", Score: 0.50},
		{Title: "B", Score: 0.48},
		{Title: "C", Score: 0.47},
	}
	prefs := Preferences{Liked: []string{" c "}, Disliked: []string{"a"}}

	Personalize(candidates, prefs, DefaultDelta)

	wantOrder := []string{"C", "B", "A"}
	wantScore := []float64{0.52, 0.48, 0.45}
	for i := range candidates {
		if candidates[i].Title != wantOrder[i] {
			t.Errorf("position %d = %s, want %s", i, candidates[i].Title, wantOrder[i])
		}
		if math.Abs(candidates[i].Score-wantScore[i]) > 1e-9 {
			t.Errorf("%s score = %v, want %v", candidates[i].Title, candidates[i].Score, wantScore[i])
		}
	}
}

func TestPersonalize_NoClamp(t *testing.T) {
	candidates := []Candidate{{Title: "Low", Score: 0.02}, {Title: "High", Score: 1}}
	Personalize(candidates, Preferences{Disliked: []string{"low"}, Liked: []string{"HIGH"}}, DefaultDelta)

	if math.Abs(candidates[0].Score-1.05) > 1e-9 {
		t.Errorf("liked score = %v, want 1.05 (no upper clamp)", candidates[0].Score)
	}
	if candidates[1].Score >= 0 {
		t.Errorf("disliked score = %v, want negative (no lower clamp)", candidates[1].Score)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 280, "short"},
		{"abcdef", 3, "abc…"},
		{"ăîșțâ", 2, "ăî…"},
		{"exact", 5, "exact"},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}

	c := Candidate{Document: strings.Repeat("x", 300)}
	if got := []rune(c.Snippet(280)); len(got) != 281 {
		t.Errorf("Snippet(280) length = %d, want 281", len(got))
	}
}
