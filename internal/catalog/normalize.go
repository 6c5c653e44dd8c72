package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize folds a title for comparison: compatibility decomposition,
// case folding, combining marks removed, and every run of characters
// outside [a-z0-9] collapsed to a single space.
func Normalize(s string) string {
	// transformers carry state; build a fresh chain per call
	t := transform.Chain(norm.NFKD, cases.Fold(), runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.TrimSpace(nonAlnum.ReplaceAllString(folded, " "))
}
