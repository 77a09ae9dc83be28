// Package service holds the catalog's business rules: authorization,
// author find-or-create, record validation, error mapping and event publication.
package service

import (
	"context"

	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/pubsub"
)

// AuthorStore is the author half of the persistence gateway.
type AuthorStore interface {
	CountAuthors(ctx context.Context) (int, error)
	ListAuthors(ctx context.Context) ([]*domain.Author, error)
	GetAuthor(ctx context.Context, id string) (*domain.Author, error)
	GetAuthorByName(ctx context.Context, name string) (*domain.Author, error)
	CreateAuthor(ctx context.Context, author *domain.Author) error
	// SetAuthorBorn must find and update in one atomic request.
	SetAuthorBorn(ctx context.Context, name string, born int) (*domain.Author, error)
}

// BookStore is the book half of the persistence gateway.
type BookStore interface {
	CountBooks(ctx context.Context) (int, error)
	ListBooks(ctx context.Context) ([]*domain.Book, error)
	ListBooksByGenre(ctx context.Context, genre string) ([]*domain.Book, error)
	ListBooksByAuthor(ctx context.Context, authorID string) ([]*domain.Book, error)
	CountBooksByAuthor(ctx context.Context, authorID string) (int, error)
	CreateBook(ctx context.Context, book *domain.Book) error
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Gateway is everything the services need from a storage backend. Both
// the badger store and the sqlite store implement it.
type Gateway interface {
	AuthorStore
	BookStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}

// Publisher accepts events for fan-out.
type Publisher interface {
	Publish(evt pubsub.Event)
}
