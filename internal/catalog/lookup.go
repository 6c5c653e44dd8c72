package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	// InvalidTitleMessage is returned for empty or blank titles
	InvalidTitleMessage = "Titlu invalid."

	notFoundFormat = "Nu am găsit rezumat pentru „%s” în baza locală."
)

// MatchKind tells which lookup stage resolved a title
type MatchKind int

const (
	NoMatch MatchKind = iota
	ExactMatch
	NormalizedMatch
	ContainsMatch
)

func (m MatchKind) String() string {
	switch m {
	case ExactMatch:
		return "exact"
	case NormalizedMatch:
		return "normalized"
	case ContainsMatch:
		return "contains"
	default:
		return "none"
	}
}

// NotFoundMessage renders the fixed "not found" answer for title
func NotFoundMessage(title string) string {
	return fmt.Sprintf(notFoundFormat, title)
}

// Find resolves a title in three stages, first match wins: exact key,
// normalized equality, then (list-shaped catalogs only) normalized
// containment in either direction.
func (c *Catalog) Find(title string) (*Book, MatchKind) {
	if i, ok := c.exact[title]; ok {
		return &c.Books[i], ExactMatch
	}

	nt := Normalize(title)
	for i, n := range c.normalized {
		if n == nt {
			return &c.Books[i], NormalizedMatch
		}
	}

	if c.Shape != ShapeList || nt == "" {
		return nil, NoMatch
	}

	for i, n := range c.normalized {
		if strings.Contains(n, nt) || (n != "" && strings.Contains(nt, n)) {
			return &c.Books[i], ContainsMatch
		}
	}

	return nil, NoMatch
}

// SummaryByTitle returns the stored summary, or a fixed message when the
// title is blank or unknown. It never fails.
func (c *Catalog) SummaryByTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return InvalidTitleMessage
	}
	if book, kind := c.Find(title); kind != NoMatch {
		return strings.TrimSpace(book.Summary)
	}
	return NotFoundMessage(title)
}

// FileLookup resolves summaries against a catalog file, reloading it when
// the file changes on disk. Read failures are returned as errors so the
// caller can report them inline.
type FileLookup struct {
	path string

	mu      sync.Mutex
	cached  *Catalog
	modTime time.Time
	size    int64
}

// NewFileLookup creates a lookup bound to a catalog path
func NewFileLookup(path string) *FileLookup {
	return &FileLookup{path: path}
}

// Path returns the catalog file path
func (l *FileLookup) Path() string {
	return l.path
}

// Catalog returns the current catalog, reloading if the file changed
func (l *FileLookup) Catalog() (*Catalog, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, l.path)
		}
		return nil, fmt.Errorf("failed to stat catalog: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && info.ModTime().Equal(l.modTime) && info.Size() == l.size {
		return l.cached, nil
	}

	c, err := Load(l.path)
	if err != nil {
		return nil, err
	}
	l.cached, l.modTime, l.size = c, info.ModTime(), info.Size()
	return c, nil
}

// SummaryByTitle looks title up in the current catalog
func (l *FileLookup) SummaryByTitle(title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return InvalidTitleMessage, nil
	}
	c, err := l.Catalog()
	if err != nil {
		return "", err
	}
	return c.SummaryByTitle(title), nil
}
