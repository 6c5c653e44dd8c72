package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/yildizm/librarian/internal/history"
	"github.com/yildizm/librarian/internal/media"
	"github.com/yildizm/librarian/internal/recommend"
	"github.com/yildizm/librarian/internal/retrieval"
)

// markdownFormatter formats output as Markdown
type markdownFormatter struct {
	now func() time.Time
}

// NewMarkdown creates a new Markdown formatter
func NewMarkdown() Formatter {
	return &markdownFormatter{now: time.Now}
}

func (f *markdownFormatter) FormatRecommendation(res *recommend.Result) ([]byte, error) {
	var b strings.Builder

	b.WriteString("# Book Recommendation\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", f.now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "> %s\n\n", escapeMarkdownInline(res.Query))

	// the text is already markdown
	b.WriteString(res.Text)
	b.WriteString("\n\n")

	if len(res.Candidates) > 0 {
		b.WriteString("## Candidates\n\n")
		f.writeCandidateTable(&b, res.Candidates)
	}

	f.writeMedia(&b, res)

	b.WriteString("## Details\n\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("|-------|-------|\n")
	fmt.Fprintf(&b, "| Request | `%s` |\n", res.RequestID)
	fmt.Fprintf(&b, "| State | %s |\n", res.State)
	fmt.Fprintf(&b, "| Picked score | %s |\n", formatScore(res.PickedScore))
	fmt.Fprintf(&b, "| Rewritten | %t |\n", res.Rewritten)
	fmt.Fprintf(&b, "| Duration | %s |\n", res.Duration.Round(time.Millisecond))

	return []byte(b.String()), nil
}

func (f *markdownFormatter) FormatCandidates(query string, candidates []retrieval.Candidate) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# Search Results\n\n> %s\n\n", escapeMarkdownInline(query))
	if len(candidates) == 0 {
		b.WriteString("_No candidates._\n")
		return []byte(b.String()), nil
	}
	f.writeCandidateTable(&b, candidates)

	return []byte(b.String()), nil
}

func (f *markdownFormatter) FormatHistory(entries []history.Entry) ([]byte, error) {
	var b strings.Builder

	b.WriteString("# Interaction History\n\n")
	if len(entries) == 0 {
		b.WriteString("_No interactions recorded._\n")
		return []byte(b.String()), nil
	}

	b.WriteString("| Time | Query | Picked | Score |\n")
	b.WriteString("|------|-------|--------|-------|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			e.Timestamp.UTC().Format(time.RFC3339),
			escapeMarkdownTable(singleLine(e.Query, 80)),
			escapeMarkdownTable(e.PickedTitle),
			formatScore(e.PickedScore))
	}

	return []byte(b.String()), nil
}

// writeCandidateTable writes a ranked table of candidates
func (f *markdownFormatter) writeCandidateTable(b *strings.Builder, candidates []retrieval.Candidate) {
	b.WriteString("| # | Title | Author | Year | Score | Snippet |\n")
	b.WriteString("|---|-------|--------|------|-------|---------|\n")
	for i, c := range candidates {
		fmt.Fprintf(b, "| %d | %s | %s | %s | %.4f | %s |\n",
			i+1,
			escapeMarkdownTable(c.Title),
			escapeMarkdownTable(c.Author),
			formatYear(c.Year),
			c.Score,
			escapeMarkdownTable(singleLine(c.Snippet(120), 0)))
	}
	b.WriteString("\n")
}

func (f *markdownFormatter) writeMedia(b *strings.Builder, res *recommend.Result) {
	if res.Audio.Status == media.StatusDisabled && res.Image.Status == media.StatusDisabled {
		return
	}
	b.WriteString("## Media\n\n")
	if res.Audio.Status != media.StatusDisabled {
		fmt.Fprintf(b, "- **Speech:** %s\n", outcomeText(res.Audio))
	}
	if res.Image.Status != media.StatusDisabled {
		if res.Image.Produced() && res.Image.Path != "" {
			fmt.Fprintf(b, "- **Cover:** ![cover](%s)\n", res.Image.Path)
		} else {
			fmt.Fprintf(b, "- **Cover:** %s\n", outcomeText(res.Image))
		}
	}
	b.WriteString("\n")
}

func escapeMarkdownTable(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", "\\|"), "\n", " ")
}

func escapeMarkdownInline(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
