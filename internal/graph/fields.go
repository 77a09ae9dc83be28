package graph

import (
	"context"
	"fmt"

	"github.com/libraryapp/library-server/internal/domain"
)

type fieldFunc func(ctx context.Context, obj any, args map[string]any) (any, error)

// fieldTable maps "Type.field" to the function resolving it.
type fieldTable map[string]fieldFunc

func newFieldTable(r ResolverRoot) fieldTable {
	t := fieldTable{
		"Query.bookCount": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			return r.Query().BookCount(ctx)
		},
		"Query.authorCount": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			return r.Query().AuthorCount(ctx)
		},
		"Query.allBooks": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			author, err := optionalString(args, "author")
			if err != nil {
				return nil, err
			}
			genre, err := optionalString(args, "genre")
			if err != nil {
				return nil, err
			}
			return r.Query().AllBooks(ctx, author, genre)
		},
		"Query.allGenres": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			return r.Query().AllGenres(ctx)
		},
		"Query.allAuthors": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			return r.Query().AllAuthors(ctx)
		},
		"Query.me": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
			return r.Query().Me(ctx)
		},

		"Mutation.addBook": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			title, err := requiredString(args, "title")
			if err != nil {
				return nil, err
			}
			author, err := optionalString(args, "author")
			if err != nil {
				return nil, err
			}
			published, err := requiredInt(args, "published")
			if err != nil {
				return nil, err
			}
			genres, err := optionalStrings(args, "genres")
			if err != nil {
				return nil, err
			}
			return r.Mutation().AddBook(ctx, title, author, published, genres)
		},
		"Mutation.editAuthor": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			name, err := requiredString(args, "name")
			if err != nil {
				return nil, err
			}
			born, err := requiredInt(args, "setBornTo")
			if err != nil {
				return nil, err
			}
			return r.Mutation().EditAuthor(ctx, name, born)
		},
		"Mutation.createAuthor": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			name, err := requiredString(args, "name")
			if err != nil {
				return nil, err
			}
			born, err := optionalInt(args, "born")
			if err != nil {
				return nil, err
			}
			return r.Mutation().CreateAuthor(ctx, name, born)
		},
		"Mutation.createUser": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			username, err := requiredString(args, "username")
			if err != nil {
				return nil, err
			}
			genre, err := requiredString(args, "favoriteGenre")
			if err != nil {
				return nil, err
			}
			return r.Mutation().CreateUser(ctx, username, genre)
		},
		"Mutation.login": func(ctx context.Context, _ any, args map[string]any) (any, error) {
			username, err := requiredString(args, "username")
			if err != nil {
				return nil, err
			}
			password, err := requiredString(args, "password")
			if err != nil {
				return nil, err
			}
			return r.Mutation().Login(ctx, username, password)
		},

		"Book.title":     bookField(func(b *domain.PopulatedBook) any { return b.Title }),
		"Book.published": bookField(func(b *domain.PopulatedBook) any { return b.Published }),
		"Book.genres":    bookField(func(b *domain.PopulatedBook) any { return b.Genres }),
		"Book.id":        bookField(func(b *domain.PopulatedBook) any { return b.ID }),
		"Book.author": func(ctx context.Context, obj any, _ map[string]any) (any, error) {
			b, err := as[*domain.PopulatedBook](obj)
			if err != nil {
				return nil, err
			}
			return r.Book().Author(ctx, b)
		},

		"Author.name": authorField(func(a *domain.Author) any { return a.Name }),
		"Author.id":   authorField(func(a *domain.Author) any { return a.ID }),
		"Author.born": authorField(func(a *domain.Author) any { return a.Born }),
		"Author.bookCount": func(ctx context.Context, obj any, _ map[string]any) (any, error) {
			a, err := as[*domain.Author](obj)
			if err != nil {
				return nil, err
			}
			return r.Author().BookCount(ctx, a)
		},

		"User.username":      userField(func(u *domain.User) any { return u.Username }),
		"User.favoriteGenre": userField(func(u *domain.User) any { return u.FavoriteGenre }),
		"User.id":            userField(func(u *domain.User) any { return u.ID }),

		"Token.value": func(_ context.Context, obj any, _ map[string]any) (any, error) {
			t, err := as[*domain.Token](obj)
			if err != nil {
				return nil, err
			}
			return t.Value, nil
		},
	}

	for name, fn := range introspectionFields() {
		t[name] = fn
	}
	return t
}

func as[T any](obj any) (T, error) {
	v, ok := obj.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected %T, want %T", obj, zero)
	}
	return v, nil
}

func bookField(get func(*domain.PopulatedBook) any) fieldFunc {
	return func(_ context.Context, obj any, _ map[string]any) (any, error) {
		b, err := as[*domain.PopulatedBook](obj)
		if err != nil {
			return nil, err
		}
		return get(b), nil
	}
}

func authorField(get func(*domain.Author) any) fieldFunc {
	return func(_ context.Context, obj any, _ map[string]any) (any, error) {
		a, err := as[*domain.Author](obj)
		if err != nil {
			return nil, err
		}
		return get(a), nil
	}
}

func userField(get func(*domain.User) any) fieldFunc {
	return func(_ context.Context, obj any, _ map[string]any) (any, error) {
		u, err := as[*domain.User](obj)
		if err != nil {
			return nil, err
		}
		return get(u), nil
	}
}
