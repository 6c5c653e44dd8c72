// Package history appends one CSV row per recommendation call.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// DefaultPath matches the data directory layout of the chat app
const DefaultPath = "data/log.csv"

// Header is the first row of every history file
var Header = []string{"timestamp", "query", "picked_title", "picked_score"}

// Entry is one logged call. Empty PickedTitle and nil PickedScore are
// written as empty cells.
type Entry struct {
	Timestamp   time.Time `json:"timestamp"`
	Query       string    `json:"query"`
	PickedTitle string    `json:"picked_title,omitempty"`
	PickedScore *float64  `json:"picked_score,omitempty"`
}

func (e Entry) row() []string {
	score := ""
	if e.PickedScore != nil {
		score = fmt.Sprintf("%.4f", *e.PickedScore)
	}
	return []string{e.Timestamp.UTC().Format(time.RFC3339), e.Query, e.PickedTitle, score}
}

// Log is an append-only CSV file
type Log struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewLog binds a log to path; the file and header are written on first append
func NewLog(path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{path: path, now: time.Now}
}

// Path returns the CSV path
func (l *Log) Path() string {
	return l.path
}

// Record appends a row stamped with the current time
func (l *Log) Record(query, pickedTitle string, pickedScore *float64) error {
	return l.Append(Entry{Timestamp: l.now(), Query: query, PickedTitle: pickedTitle, PickedScore: pickedScore})
}

// Append writes one row, adding the header when the file is new or empty
func (l *Log) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	// #nosec G304 -- path comes from configuration
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat history: %w", err)
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(Header); err != nil {
			return fmt.Errorf("failed to write history header: %w", err)
		}
	}
	if err := writer.Write(e.row()); err != nil {
		return fmt.Errorf("failed to write history row: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// Last returns up to n most recent entries, oldest first; n <= 0 returns all.
// A missing file yields no entries.
func (l *Log) Last(n int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var entries []Entry
	first := true
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		if first {
			first = false
			if len(rec) > 0 && rec[0] == Header[0] {
				continue
			}
		}
		entries = append(entries, parseRow(rec))
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

func parseRow(rec []string) Entry {
	field := func(i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var e Entry
	e.Timestamp, _ = time.Parse(time.RFC3339, field(0))
	e.Query = field(1)
	e.PickedTitle = field(2)
	if v, err := strconv.ParseFloat(field(3), 64); err == nil {
		e.PickedScore = &v
	}
	return e
}
