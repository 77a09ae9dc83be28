package domain

import "slices"

// Book is a catalog entry. It references exactly one Author by id; the author
// record itself is never embedded in storage.
type Book struct {
	Record
	Title     string   `json:"title" validate:"required,min=5"`
	Published int      `json:"published"`
	Genres    []string `json:"genres"`
	AuthorID  string   `json:"author_id" validate:"required"`
}

// HasGenre reports whether genre is one of the book's tags.
func (b *Book) HasGenre(genre string) bool {
	return slices.Contains(b.Genres, genre)
}

// PopulatedBook is a Book with its author reference resolved.
type PopulatedBook struct {
	*Book
	Author *Author `json:"author"`
}

// Populate pairs a book with its resolved author.
func Populate(b *Book, a *Author) *PopulatedBook {
	return &PopulatedBook{Book: b, Author: a}
}

// DistinctGenres returns every genre tag across books exactly once, in first-seen order.
func DistinctGenres(books []*Book) []string {
	seen := make(map[string]struct{})
	genres := make([]string, 0)
	for _, b := range books {
		for _, g := range b.Genres {
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			genres = append(genres, g)
		}
	}
	return genres
}
