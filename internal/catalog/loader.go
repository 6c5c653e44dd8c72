package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
)

// Load reads and normalizes a catalog JSON file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogNotFound, path)
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse accepts either a JSON array of book objects or a JSON object keyed
// by title. Records without a title or summary are skipped; file order is
// kept for both shapes.
func Parse(data []byte) (*Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyCatalog
	}

	var (
		books []Book
		shape Shape
		err   error
	)

	switch trimmed[0] {
	case '[':
		shape = ShapeList
		books, err = parseList(trimmed)
	case '{':
		shape = ShapeMap
		books, err = parseMap(trimmed)
	default:
		return nil, fmt.Errorf("unsupported catalog format: expected a JSON array or object")
	}
	if err != nil {
		return nil, err
	}

	if len(books) == 0 {
		return nil, ErrEmptyCatalog
	}

	return New(books, shape), nil
}

func parseList(data []byte) ([]Book, error) {
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse catalog array: %w", err)
	}

	books := make([]Book, 0, len(items))
	for _, item := range items {
		if book, ok := bookFromFields(asString(item["title"]), item); ok {
			books = append(books, book)
		}
	}
	return books, nil
}

// parseMap streams the object so keys keep their file order
func parseMap(data []byte) ([]Book, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse catalog object: %w", err)
	}

	var books []Book
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse catalog object: %w", err)
		}
		key, _ := tok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to parse catalog entry %q: %w", key, err)
		}

		switch v := value.(type) {
		case string:
			if book, ok := bookFromFields(key, map[string]any{"summary": v}); ok {
				books = append(books, book)
			}
		case map[string]any:
			if book, ok := bookFromFields(key, v); ok {
				books = append(books, book)
			}
		}
	}
	return books, nil
}

func bookFromFields(title string, fields map[string]any) (Book, bool) {
	book := Book{
		Title:   strings.TrimSpace(title),
		Author:  strings.TrimSpace(asString(fields["author"])),
		Year:    asYear(fields["year"]),
		Genres:  asStringList(fields["genres"]),
		Themes:  asStringList(fields["themes"]),
		Summary: strings.TrimSpace(asString(fields["summary"])),
	}
	if book.Title == "" || book.Summary == "" {
		return Book{}, false
	}
	return book, true
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func asStringList(v any) []string {
	var raw []any
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		raw = t
	default:
		raw = []any{t}
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s := strings.TrimSpace(asString(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func asYear(v any) *int {
	var year int
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		year = int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		year = n
	default:
		return nil
	}
	return &year
}
