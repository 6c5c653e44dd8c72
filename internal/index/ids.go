package index

import (
	"crypto/sha1" // #nosec G505 -- ids only, not security
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/yildizm/librarian/internal/catalog"
	"github.com/yildizm/librarian/internal/vectorstore"
)

const maxSlugRunes = 64

// Slug lowercases s, keeps letters and digits, and joins the runs between
// them with single dashes. A title with no letters or digits falls back to
// the first 8 hex digits of its SHA-1.
func Slug(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte('-')
		}
	}

	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	slug := strings.Join(parts, "-")
	if slug == "" {
		slug = shortHash(s, 8)
	}

	if runes := []rune(slug); len(runes) > maxSlugRunes {
		slug = string(runes[:maxSlugRunes])
	}
	return slug
}

// RecordID derives the stable id of the i-th catalog record
func RecordID(i int, title string) string {
	return fmt.Sprintf("book-%03d-%s", i, Slug(title))
}

func shortHash(s string, n int) string {
	sum := sha1.Sum([]byte(s)) // #nosec G401 -- ids only
	return hex.EncodeToString(sum[:])[:n]
}

// Prepared is a catalog record ready for embedding
type Prepared struct {
	Record    vectorstore.Record
	IndexText string
}

// Prepare derives ids, index text and scalar metadata for every book, in
// catalog order. Colliding ids get a 6-hex suffix from title and position.
func Prepare(books []catalog.Book) []Prepared {
	seen := make(map[string]bool, len(books))
	out := make([]Prepared, 0, len(books))

	for i := range books {
		book := &books[i]

		id := RecordID(i, book.Title)
		if seen[id] {
			id = id + "-" + shortHash(fmt.Sprintf("%s%d", book.Title, i), 6)
		}
		seen[id] = true

		out = append(out, Prepared{
			Record: vectorstore.Record{
				ID: id,
				Metadata: vectorstore.Metadata{
					Title:  book.Title,
					Author: book.Author,
					Year:   book.Year,
					Genres: vectorstore.JoinList(book.Genres),
					Themes: vectorstore.JoinList(book.Themes),
				},
				Document: book.Summary,
			},
			IndexText: book.IndexText(),
		})
	}
	return out
}
