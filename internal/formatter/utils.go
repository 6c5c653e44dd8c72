package formatter

import (
	"fmt"
	"strings"

	"github.com/yildizm/go-termfmt"

	"github.com/yildizm/librarian/internal/media"
)

// symbol returns the termfmt emoji for key, or fallback when the key is unknown
func symbol(key, fallback string, opts *termfmt.TerminalOptions) string {
	if s := termfmt.GetEmoji(key, opts); s != "" && s != "[?]" {
		return s
	}
	return fallback
}

// scoreBar renders a similarity score as a bar; scores outside [0,1] are clamped for display only
func scoreBar(score float64, opts *termfmt.TerminalOptions) string {
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return termfmt.CreateConfidenceBar(score, opts)
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *score)
}

func formatYear(year *int) string {
	if year == nil {
		return ""
	}
	return fmt.Sprintf("%d", *year)
}

// outcomeText describes a side channel result in one line
func outcomeText(o media.Outcome) string {
	switch o.Status {
	case media.StatusProduced:
		if o.Path != "" {
			return "saved to " + o.Path
		}
		return "produced"
	case media.StatusFailed:
		return "failed: " + o.Reason()
	default:
		return "disabled"
	}
}

// singleLine flattens whitespace and caps the text at n runes
func singleLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if n > 0 && len(runes) > n {
		return string(runes[:n-1]) + "…"
	}
	return s
}
