// Package search keeps a Bleve full-text index of the catalog's books,
// with author names and genres denormalized into each document.
package search

import (
	"github.com/libraryapp/library-server/internal/domain"
)

// BookDocument is what the index stores for one book.
type BookDocument struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Author    string   `json:"author,omitempty"`
	Genres    []string `json:"genres,omitempty"`
	Published int      `json:"published"`
}

// FromBook flattens a populated book into an index document.
func FromBook(b *domain.PopulatedBook) *BookDocument {
	doc := &BookDocument{
		ID:        b.ID,
		Title:     b.Title,
		Genres:    b.Genres,
		Published: b.Published,
	}
	if b.Author != nil {
		doc.Author = b.Author.Name
	}
	return doc
}

// ToMap converts the document to the field names used by the mapping.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":        d.ID,
		"title":     d.Title,
		"published": float64(d.Published),
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if len(d.Genres) > 0 {
		m["genres"] = d.Genres
	}
	return m
}
