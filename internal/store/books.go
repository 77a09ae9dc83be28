package store

import (
	"context"
	"fmt"

	"github.com/libraryapp/library-server/internal/domain"
)

// CreateBook stores a new book. Titles are unique; the author reference and
// every genre are indexed for filtering.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := s.books.Create(ctx, book.ID, book); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

// ListBooks returns every book, oldest first.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := collect(s.books.List(ctx))
	return inCreationOrder(books, err, bookRecord)
}

// ListBooksByGenre returns the books tagged with genre, oldest first.
func (s *Store) ListBooksByGenre(ctx context.Context, genre string) ([]*domain.Book, error) {
	books, err := s.books.ListByIndex(ctx, indexGenre, genre)
	return inCreationOrder(books, err, bookRecord)
}

// ListBooksByAuthor returns the books referencing authorID, oldest first.
func (s *Store) ListBooksByAuthor(ctx context.Context, authorID string) ([]*domain.Book, error) {
	books, err := s.books.ListByIndex(ctx, indexAuthor, authorID)
	return inCreationOrder(books, err, bookRecord)
}

// CountBooks returns the number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	return s.books.Count(ctx)
}

// CountBooksByAuthor counts index keys only; no book is decoded.
func (s *Store) CountBooksByAuthor(ctx context.Context, authorID string) (int, error) {
	return s.books.CountByIndex(ctx, indexAuthor, authorID)
}
