package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/libraryapp/library-server/internal/domain"
)

// CreateAuthor stores a new author. Author names are unique.
func (s *Store) CreateAuthor(ctx context.Context, author *domain.Author) error {
	if err := s.authors.Create(ctx, author.ID, author); err != nil {
		return fmt.Errorf("create author: %w", err)
	}
	return nil
}

// GetAuthor returns the author with the given id.
func (s *Store) GetAuthor(ctx context.Context, id string) (*domain.Author, error) {
	a, err := s.authors.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, Missing("author", "id", id)
	}
	return a, err
}

// GetAuthorByName returns the author whose name matches exactly.
func (s *Store) GetAuthorByName(ctx context.Context, name string) (*domain.Author, error) {
	a, err := s.authors.GetByIndex(ctx, indexName, name)
	if errors.Is(err, ErrNotFound) {
		return nil, Missing("author", "name", name)
	}
	return a, err
}

// ListAuthors returns every author, oldest first.
func (s *Store) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	authors, err := collect(s.authors.List(ctx))
	return inCreationOrder(authors, err, authorRecord)
}

// CountAuthors returns the number of authors.
func (s *Store) CountAuthors(ctx context.Context) (int, error) {
	return s.authors.Count(ctx)
}

// SetAuthorBorn finds the author by exact name and sets the birth year in a
// single transaction, returning the updated record.
func (s *Store) SetAuthorBorn(ctx context.Context, name string, born int) (*domain.Author, error) {
	a, err := s.authors.UpdateByIndex(ctx, indexName, name, func(a *domain.Author) error {
		a.SetBorn(born)
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, Missing("author", "name", name)
	}
	if err != nil {
		return nil, fmt.Errorf("set author born: %w", err)
	}
	return a, nil
}
