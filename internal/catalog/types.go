package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Shape records which JSON layout a catalog file used
type Shape string

const (
	// ShapeList is an array of book objects
	ShapeList Shape = "list"

	// ShapeMap is an object keyed by title, valued by a summary or a book object
	ShapeMap Shape = "map"
)

// ErrCatalogNotFound is returned when the catalog file does not exist
var ErrCatalogNotFound = errors.New("catalog file not found")

// ErrEmptyCatalog is returned when a catalog parses but holds no usable records
var ErrEmptyCatalog = errors.New("catalog contains no valid records")

// Book is one catalog record; immutable once loaded
type Book struct {
	Title   string   `json:"title"`
	Author  string   `json:"author,omitempty"`
	Year    *int     `json:"year,omitempty"`
	Genres  []string `json:"genres,omitempty"`
	Themes  []string `json:"themes,omitempty"`
	Summary string   `json:"summary"`
}

// IndexText is the exact text embedded for this book
func (b *Book) IndexText() string {
	text := fmt.Sprintf("%s\n%s\nGenres: %s\nThemes: %s",
		b.Title, b.Summary, strings.Join(b.Genres, ", "), strings.Join(b.Themes, ", "))
	return strings.TrimSpace(text)
}

// Catalog is the canonical in-memory form of a catalog file
type Catalog struct {
	Books []Book
	Shape Shape

	exact      map[string]int
	normalized []string
}

// New builds a catalog from already validated books, keeping their order
func New(books []Book, shape Shape) *Catalog {
	c := &Catalog{
		Books:      books,
		Shape:      shape,
		exact:      make(map[string]int, len(books)),
		normalized: make([]string, len(books)),
	}
	for i := range books {
		if _, dup := c.exact[books[i].Title]; !dup {
			c.exact[books[i].Title] = i
		}
		c.normalized[i] = Normalize(books[i].Title)
	}
	return c
}

// Len returns the number of books
func (c *Catalog) Len() int {
	return len(c.Books)
}
