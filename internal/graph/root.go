package graph

import (
	"context"

	"github.com/libraryapp/library-server/internal/domain"
)

// ResolverRoot hands out the resolvers for every object type that has
// fields needing more than a struct read.
type ResolverRoot interface {
	Author() AuthorResolver
	Book() BookResolver
	Mutation() MutationResolver
	Query() QueryResolver
	Subscription() SubscriptionResolver
}

type AuthorResolver interface {
	BookCount(ctx context.Context, obj *domain.Author) (int, error)
}

type BookResolver interface {
	Author(ctx context.Context, obj *domain.PopulatedBook) (*domain.Author, error)
}

type MutationResolver interface {
	AddBook(ctx context.Context, title string, author *string, published int, genres []string) (*domain.PopulatedBook, error)
	EditAuthor(ctx context.Context, name string, setBornTo int) (*domain.Author, error)
	CreateAuthor(ctx context.Context, name string, born *int) (*domain.Author, error)
	CreateUser(ctx context.Context, username string, favoriteGenre string) (*domain.User, error)
	Login(ctx context.Context, username string, password string) (*domain.Token, error)
}

type QueryResolver interface {
	BookCount(ctx context.Context) (int, error)
	AuthorCount(ctx context.Context) (int, error)
	AllBooks(ctx context.Context, author *string, genre *string) ([]*domain.PopulatedBook, error)
	AllGenres(ctx context.Context) ([]string, error)
	AllAuthors(ctx context.Context) ([]*domain.Author, error)
	Me(ctx context.Context) (*domain.User, error)
}

type SubscriptionResolver interface {
	BookAdded(ctx context.Context) (<-chan *domain.PopulatedBook, error)
}
