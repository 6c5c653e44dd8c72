// Package guard screens queries before they reach retrieval and generation.
// Matching is lowercase substring search; it is a heuristic, not a
// security boundary.
package guard

import "strings"

const (
	// RefusalMessage is returned for queries containing denylisted terms
	RefusalMessage = "Prefer să păstrez conversația respectuoasă. Te rog reformulează fără cuvinte ofensatoare."

	// RecommendationNote is appended to queries that ask for generated text
	RecommendationNote = "\n(Notă: tratează ca cerere de RECOMANDARE, nu de generare de text.)"

	// IntentInstruction is sent with every selection request
	IntentInstruction = "User intent: RECOMMENDATION ONLY. " +
		"If the user asked to 'write a story', re-interpret as 'recommend an existing book'. " +
		"Never write story text."
)

// DefaultDenylist rejects a query outright
var DefaultDenylist = []string{"idiot", "stupid", "retard", "disgusting", "fuck", "shit"}

// DefaultTriggers mark a query as a request for generated text
var DefaultTriggers = []string{
	"scrie", "scrie-mi", "creează", "creeaza", "compune",
	"story", "fanfic", "roman", "capitol", "poveste", "invent",
	"write a", "create a", "generate a",
}

// Guard holds the term lists
type Guard struct {
	denylist []string
	triggers []string
}

// New creates a guard from the default lists plus any extra terms
func New(extraDenylist, extraTriggers []string) *Guard {
	return &Guard{
		denylist: mergeTerms(DefaultDenylist, extraDenylist),
		triggers: mergeTerms(DefaultTriggers, extraTriggers),
	}
}

// Default returns a guard with only the built-in lists
func Default() *Guard {
	return New(nil, nil)
}

// IsInappropriate reports whether q contains a denylisted term
func (g *Guard) IsInappropriate(q string) bool {
	return containsAny(q, g.denylist)
}

// IsGenerationRequest reports whether q asks for text to be written
func (g *Guard) IsGenerationRequest(q string) bool {
	return containsAny(q, g.triggers)
}

// RewriteIfNeeded appends RecommendationNote to generation requests and
// returns other queries unchanged
func (g *Guard) RewriteIfNeeded(q string) string {
	if g.IsGenerationRequest(q) {
		return q + RecommendationNote
	}
	return q
}

func containsAny(q string, terms []string) bool {
	lq := strings.ToLower(q)
	for _, t := range terms {
		if strings.Contains(lq, t) {
			return true
		}
	}
	return false
}

func mergeTerms(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, t := range list {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
