package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/librarian/internal/history"
	"github.com/yildizm/librarian/internal/recommend"
	"github.com/yildizm/librarian/internal/retrieval"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	FormatRecommendation(res *recommend.Result) ([]byte, error)
	FormatCandidates(query string, candidates []retrieval.Candidate) ([]byte, error)
	FormatHistory(entries []history.Entry) ([]byte, error)
}

// New returns the formatter for a format name: text, json, markdown or csv
func New(format string, color bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return NewTerminal(color), nil
	case "json":
		return NewJSON(), nil
	case "markdown", "md":
		return NewMarkdown(), nil
	case "csv":
		return NewCSV(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (must be one of: text, json, markdown, csv)", format)
	}
}
