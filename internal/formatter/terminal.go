package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/librarian/internal/history"
	"github.com/yildizm/librarian/internal/media"
	"github.com/yildizm/librarian/internal/recommend"
	"github.com/yildizm/librarian/internal/retrieval"
)

// terminalFormatter formats output as plain text for terminal display using go-termfmt
type terminalFormatter struct {
	opts *termfmt.TerminalOptions
}

// NewTerminal creates a new terminal formatter with optional color support
func NewTerminal(color bool) Formatter {
	opts := termfmt.DefaultOptions()
	opts.Color = color
	opts.Emoji = true
	return &terminalFormatter{opts: opts}
}

// NewTerminalWithOptions lets callers turn emoji off
func NewTerminalWithOptions(opts *termfmt.TerminalOptions) Formatter {
	return &terminalFormatter{opts: opts}
}

func (f *terminalFormatter) FormatRecommendation(res *recommend.Result) ([]byte, error) {
	var b strings.Builder

	f.writeHeader(&b, "Smart Librarian")
	b.WriteString(res.Text)
	b.WriteString("\n")

	if len(res.Candidates) > 0 {
		b.WriteString("\n")
		f.writeCandidates(&b, res.Candidates)
	}

	f.writeMedia(&b, res)
	f.writeDetails(&b, res)

	return []byte(b.String()), nil
}

func (f *terminalFormatter) FormatCandidates(query string, candidates []retrieval.Candidate) ([]byte, error) {
	var b strings.Builder

	f.writeHeader(&b, "Search: "+query)
	if len(candidates) == 0 {
		b.WriteString("No candidates. Build the index with `librarian index build`.\n")
		return []byte(b.String()), nil
	}
	f.writeCandidates(&b, candidates)

	return []byte(b.String()), nil
}

func (f *terminalFormatter) FormatHistory(entries []history.Entry) ([]byte, error) {
	var b strings.Builder

	b.WriteString(symbol("statistics", "[HIST]", f.opts) + " History\n")
	if len(entries) == 0 {
		b.WriteString("└─ no interactions recorded\n")
		return []byte(b.String()), nil
	}

	items := make([]termfmt.TreeItem, 0, len(entries))
	for i, e := range entries {
		picked := e.PickedTitle
		if picked == "" {
			picked = "(none)"
		}
		items = append(items, termfmt.TreeItem{
			Label: e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			Value: singleLine(e.Query, 60),
			Children: []termfmt.TreeItem{
				{Label: "Picked", Value: picked},
				{Label: "Score", Value: formatScore(e.PickedScore), Last: true},
			},
			Last: i == len(entries)-1,
		})
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")

	return []byte(b.String()), nil
}

// writeCandidates writes ranked candidates with score bars
func (f *terminalFormatter) writeCandidates(b *strings.Builder, candidates []retrieval.Candidate) {
	b.WriteString(symbol("target", "[>]", f.opts) + " Candidates\n")

	items := make([]termfmt.TreeItem, 0, len(candidates))
	for i, c := range candidates {
		var children []termfmt.TreeItem
		if c.Author != "" {
			author := c.Author
			if c.Year != nil {
				author = fmt.Sprintf("%s (%d)", c.Author, *c.Year)
			}
			children = append(children, termfmt.TreeItem{Label: "Author", Value: author})
		}
		if len(c.Themes) > 0 {
			children = append(children, termfmt.TreeItem{Label: "Themes", Value: strings.Join(c.Themes, ", ")})
		}
		children = append(children, termfmt.TreeItem{Label: scoreBar(c.Score, f.opts), Value: singleLine(c.Snippet(120), 0)})
		children[len(children)-1].Last = true

		items = append(items, termfmt.TreeItem{
			Label:    fmt.Sprintf("%d. %s", i+1, c.Title),
			Value:    fmt.Sprintf("(sim=%.3f)", c.Score),
			Children: children,
			Last:     i == len(candidates)-1,
		})
	}
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")
}

// writeMedia lists side channels that were requested
func (f *terminalFormatter) writeMedia(b *strings.Builder, res *recommend.Result) {
	var items []termfmt.TreeItem
	if res.Audio.Status != media.StatusDisabled {
		items = append(items, termfmt.TreeItem{Label: "Speech", Value: outcomeText(res.Audio)})
	}
	if res.Image.Status != media.StatusDisabled {
		items = append(items, termfmt.TreeItem{Label: "Cover", Value: outcomeText(res.Image)})
	}
	if len(items) == 0 {
		return
	}
	items[len(items)-1].Last = true

	b.WriteString("\n" + symbol("rocket", "[MEDIA]", f.opts) + " Media\n")
	b.WriteString(termfmt.TreeViewWithOptions(items, f.opts) + "\n")
}

func (f *terminalFormatter) writeDetails(b *strings.Builder, res *recommend.Result) {
	b.WriteString("\n" + strings.Repeat("─", 50) + "\n")
	fmt.Fprintf(b, "request %s · %s · %s\n", res.RequestID, res.State, res.Duration.Round(1e6))
}

// writeHeader writes a box drawing header
func (f *terminalFormatter) writeHeader(b *strings.Builder, header string) {
	width := len([]rune(header))

	b.WriteString("╔" + strings.Repeat("═", width+2) + "╗\n")
	b.WriteString("║ " + header + " ║\n")
	b.WriteString("╚" + strings.Repeat("═", width+2) + "╝\n\n")
}
