package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/yildizm/librarian/internal/history"
	"github.com/yildizm/librarian/internal/recommend"
	"github.com/yildizm/librarian/internal/retrieval"
)

// csvFormatter formats ranked candidates and history rows as CSV
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

var candidateHeaders = []string{
	"Rank",
	"ID",
	"Title",
	"Author",
	"Year",
	"Genres",
	"Themes",
	"Distance",
	"Score",
	"Snippet",
}

// FormatRecommendation writes the candidates behind the recommendation,
// with a Picked column marking the selected title
func (f *csvFormatter) FormatRecommendation(res *recommend.Result) ([]byte, error) {
	headers := append([]string{"Picked"}, candidateHeaders...)
	return writeCSV(headers, func(w *csv.Writer) error {
		for i, c := range res.Candidates {
			picked := "false"
			if res.PickedTitle != "" && c.Title == res.PickedTitle {
				picked = "true"
			}
			if err := w.Write(append([]string{picked}, candidateRecord(i, c)...)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *csvFormatter) FormatCandidates(_ string, candidates []retrieval.Candidate) ([]byte, error) {
	return writeCSV(candidateHeaders, func(w *csv.Writer) error {
		for i, c := range candidates {
			if err := w.Write(candidateRecord(i, c)); err != nil {
				return err
			}
		}
		return nil
	})
}

// FormatHistory uses the same columns as the history file
func (f *csvFormatter) FormatHistory(entries []history.Entry) ([]byte, error) {
	return writeCSV(history.Header, func(w *csv.Writer) error {
		for _, e := range entries {
			record := []string{
				e.Timestamp.UTC().Format(time.RFC3339),
				e.Query,
				e.PickedTitle,
				"",
			}
			if e.PickedScore != nil {
				record[3] = fmt.Sprintf("%.4f", *e.PickedScore)
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

func candidateRecord(i int, c retrieval.Candidate) []string {
	return []string{
		fmt.Sprintf("%d", i+1),
		c.ID,
		c.Title,
		c.Author,
		formatYear(c.Year),
		strings.Join(c.Genres, ", "),
		strings.Join(c.Themes, ", "),
		fmt.Sprintf("%.6f", c.Distance),
		fmt.Sprintf("%.4f", c.Score),
		singleLine(c.Snippet(100), 0),
	}
}

func writeCSV(headers []string, rows func(*csv.Writer) error) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	if err := rows(writer); err != nil {
		return nil, fmt.Errorf("failed to write CSV record: %w", err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return b.Bytes(), nil
}
