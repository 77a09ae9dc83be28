package graph

import (
	"context"
	"log/slog"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/domain"
	domainerrors "github.com/libraryapp/library-server/internal/errors"
	"github.com/libraryapp/library-server/internal/pubsub"
	"github.com/libraryapp/library-server/internal/service"
)

// BookCount is the resolver for the bookCount field.
func (r *authorResolver) BookCount(ctx context.Context, obj *domain.Author) (int, error) {
	return r.catalog.AuthorBookCount(ctx, obj.ID)
}

// Author is the resolver for the author field.
func (r *bookResolver) Author(_ context.Context, obj *domain.PopulatedBook) (*domain.Author, error) {
	if obj.Author == nil {
		return nil, domainerrors.DatabaseError("Author of book "+obj.Title+" not found", nil)
	}
	return obj.Author, nil
}

// AddBook is the resolver for the addBook field.
func (r *mutationResolver) AddBook(ctx context.Context, title string, author *string, published int, genres []string) (*domain.PopulatedBook, error) {
	return r.catalog.AddBook(ctx, auth.CurrentUser(ctx), service.AddBookInput{
		Title:     title,
		Author:    author,
		Published: published,
		Genres:    genres,
	}, suppliedArgs(ctx))
}

// EditAuthor is the resolver for the editAuthor field.
func (r *mutationResolver) EditAuthor(ctx context.Context, name string, setBornTo int) (*domain.Author, error) {
	return r.catalog.EditAuthor(ctx, auth.CurrentUser(ctx), name, setBornTo, suppliedArgs(ctx))
}

// CreateAuthor is the resolver for the createAuthor field.
func (r *mutationResolver) CreateAuthor(ctx context.Context, name string, born *int) (*domain.Author, error) {
	return r.catalog.CreateAuthor(ctx, name, born, suppliedArgs(ctx))
}

// CreateUser is the resolver for the createUser field.
func (r *mutationResolver) CreateUser(ctx context.Context, username string, favoriteGenre string) (*domain.User, error) {
	return r.accounts.CreateUser(ctx, username, favoriteGenre, suppliedArgs(ctx))
}

// Login is the resolver for the login field.
func (r *mutationResolver) Login(ctx context.Context, username string, password string) (*domain.Token, error) {
	return r.accounts.Login(ctx, username, password, auth.ClientAddr(ctx))
}

// BookCount is the resolver for the bookCount field.
func (r *queryResolver) BookCount(ctx context.Context) (int, error) {
	return r.catalog.BookCount(ctx)
}

// AuthorCount is the resolver for the authorCount field.
func (r *queryResolver) AuthorCount(ctx context.Context) (int, error) {
	return r.catalog.AuthorCount(ctx)
}

// AllBooks is the resolver for the allBooks field.
func (r *queryResolver) AllBooks(ctx context.Context, author *string, genre *string) ([]*domain.PopulatedBook, error) {
	return r.catalog.AllBooks(ctx, service.BookFilter{Author: author, Genre: genre})
}

// AllGenres is the resolver for the allGenres field.
func (r *queryResolver) AllGenres(ctx context.Context) ([]string, error) {
	return r.catalog.AllGenres(ctx)
}

// AllAuthors is the resolver for the allAuthors field.
func (r *queryResolver) AllAuthors(ctx context.Context) ([]*domain.Author, error) {
	return r.catalog.AllAuthors(ctx)
}

// Me is the resolver for the me field.
func (r *queryResolver) Me(ctx context.Context) (*domain.User, error) {
	return r.accounts.Me(auth.CurrentUser(ctx))
}

// BookAdded is the resolver for the bookAdded field.
func (r *subscriptionResolver) BookAdded(ctx context.Context) (<-chan *domain.PopulatedBook, error) {
	events, cancel := r.events.Subscribe(ctx, pubsub.TopicBookAdded)
	out := make(chan *domain.PopulatedBook, 1)

	go func() {
		defer close(out)
		defer cancel()

		for {
			select {
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case out <- evt.Book:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				r.logger.Debug("bookAdded subscription closed", slog.String("reason", ctx.Err().Error()))
				return
			}
		}
	}()

	return out, nil
}

// Author returns AuthorResolver implementation.
func (r *Resolver) Author() AuthorResolver { return &authorResolver{r} }

// Book returns BookResolver implementation.
func (r *Resolver) Book() BookResolver { return &bookResolver{r} }

// Mutation returns MutationResolver implementation.
func (r *Resolver) Mutation() MutationResolver { return &mutationResolver{r} }

// Query returns QueryResolver implementation.
func (r *Resolver) Query() QueryResolver { return &queryResolver{r} }

// Subscription returns SubscriptionResolver implementation.
func (r *Resolver) Subscription() SubscriptionResolver { return &subscriptionResolver{r} }

type authorResolver struct{ *Resolver }
type bookResolver struct{ *Resolver }
type mutationResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }
type subscriptionResolver struct{ *Resolver }
