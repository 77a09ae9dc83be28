package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/libraryapp/library-server/internal/domain"
	domainerrors "github.com/libraryapp/library-server/internal/errors"
	"github.com/libraryapp/library-server/internal/id"
	"github.com/libraryapp/library-server/internal/pubsub"
	"github.com/libraryapp/library-server/internal/store"
	"github.com/libraryapp/library-server/internal/validation"
)

// CatalogStore is the part of the gateway the catalog uses.
type CatalogStore interface {
	AuthorStore
	BookStore
}

// CatalogService implements the book and author queries and mutations.
type CatalogService struct {
	store     CatalogStore
	events    Publisher
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCatalogService creates a catalog service publishing book additions to events.
func NewCatalogService(store CatalogStore, events Publisher, validator *validation.Validator, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:     store,
		events:    events,
		validator: validator,
		logger:    logger,
	}
}

// BookFilter narrows allBooks. Nil and empty values are both "not given".
type BookFilter struct {
	Author *string
	Genre  *string
}

// AddBookInput carries the addBook arguments.
type AddBookInput struct {
	Title     string
	Author    *string
	Published int
	Genres    []string
}

func given(s *string) bool {
	return s != nil && *s != ""
}

// BookCount returns the total number of books.
func (s *CatalogService) BookCount(ctx context.Context) (int, error) {
	n, err := s.store.CountBooks(ctx)
	if err != nil {
		return 0, domainerrors.DatabaseError("Error counting books", err)
	}
	return n, nil
}

// AuthorCount returns the total number of authors.
func (s *CatalogService) AuthorCount(ctx context.Context) (int, error) {
	n, err := s.store.CountAuthors(ctx)
	if err != nil {
		return 0, domainerrors.DatabaseError("Error counting authors", err)
	}
	return n, nil
}

// AllBooks lists books matching filter, each with its author populated.
//
// When both author and genre are given only the genre narrows the result.
// An author name matching nobody yields an empty list.
func (s *CatalogService) AllBooks(ctx context.Context, filter BookFilter) ([]*domain.PopulatedBook, error) {
	var (
		books []*domain.Book
		err   error
	)

	switch {
	case given(filter.Genre):
		books, err = s.store.ListBooksByGenre(ctx, *filter.Genre)

	case given(filter.Author):
		var author *domain.Author
		author, err = s.store.GetAuthorByName(ctx, *filter.Author)
		if errors.Is(err, store.ErrNotFound) {
			return []*domain.PopulatedBook{}, nil
		}
		if err == nil {
			books, err = s.store.ListBooksByAuthor(ctx, author.ID)
		}

	default:
		books, err = s.store.ListBooks(ctx)
	}
	if err != nil {
		return nil, domainerrors.DatabaseError("Error listing books", err)
	}

	return s.populate(ctx, books)
}

// populate resolves the author of every book, reading each author once.
// A book whose author is missing keeps a nil Author; the schema layer
// reports that as an error on the field.
func (s *CatalogService) populate(ctx context.Context, books []*domain.Book) ([]*domain.PopulatedBook, error) {
	authors := make(map[string]*domain.Author)
	out := make([]*domain.PopulatedBook, 0, len(books))

	for _, b := range books {
		a, seen := authors[b.AuthorID]
		if !seen {
			var err error
			a, err = s.store.GetAuthor(ctx, b.AuthorID)
			switch {
			case errors.Is(err, store.ErrNotFound):
				s.logger.Warn("book references a missing author",
					slog.String("book_id", b.ID),
					slog.String("author_id", b.AuthorID))
				a = nil
			case err != nil:
				return nil, domainerrors.DatabaseError("Error populating book author", err)
			}
			authors[b.AuthorID] = a
		}
		out = append(out, domain.Populate(b, a))
	}
	return out, nil
}

// AllGenres returns every distinct genre across all books.
func (s *CatalogService) AllGenres(ctx context.Context) ([]string, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, domainerrors.DatabaseError("Error listing genres", err)
	}
	return domain.DistinctGenres(books), nil
}

// AllAuthors returns every author.
func (s *CatalogService) AllAuthors(ctx context.Context) ([]*domain.Author, error) {
	authors, err := s.store.ListAuthors(ctx)
	if err != nil {
		return nil, domainerrors.DatabaseError("Error listing authors", err)
	}
	return authors, nil
}

// AuthorBookCount counts the books referencing authorID.
func (s *CatalogService) AuthorBookCount(ctx context.Context, authorID string) (int, error) {
	n, err := s.store.CountBooksByAuthor(ctx, authorID)
	if err != nil {
		return 0, domainerrors.DatabaseError("Error counting author books", err)
	}
	return n, nil
}

// AddBook finds or creates the named author, then stores the book and
// announces it on the bus. args names the arguments the caller supplied.
//
// The two writes are independent: an author created here stays even if the
// book write fails.
func (s *CatalogService) AddBook(ctx context.Context, user *domain.User, in AddBookInput, args []string) (*domain.PopulatedBook, error) {
	if user == nil {
		return nil, domainerrors.ErrUnauthenticated
	}

	fail := func(err error) (*domain.PopulatedBook, error) {
		s.logger.Info("addBook failed", slog.String("title", in.Title), slog.String("error", err.Error()))
		return nil, writeFailure(domainerrors.CodeDatabase, "Error adding book: ", err, args)
	}

	name := ""
	if in.Author != nil {
		name = *in.Author
	}

	author, err := s.findOrCreateAuthor(ctx, name)
	if err != nil {
		return fail(err)
	}

	genres := in.Genres
	if genres == nil {
		genres = []string{}
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return fail(err)
	}
	book := &domain.Book{
		Title:     in.Title,
		Published: in.Published,
		Genres:    genres,
		AuthorID:  author.ID,
	}
	book.ID = bookID
	book.InitTimestamps()

	if err := s.validator.Validate(book); err != nil {
		return fail(err)
	}
	if err := s.store.CreateBook(ctx, book); err != nil {
		return fail(err)
	}

	populated := domain.Populate(book, author)
	s.events.Publish(pubsub.BookAdded(populated))

	s.logger.Info("book added",
		slog.String("book_id", book.ID),
		slog.String("title", book.Title),
		slog.String("author", author.Name),
		slog.String("user", user.Username))

	return populated, nil
}

func (s *CatalogService) findOrCreateAuthor(ctx context.Context, name string) (*domain.Author, error) {
	author, err := s.store.GetAuthorByName(ctx, name)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return s.newAuthor(ctx, name, nil)
}

func (s *CatalogService) newAuthor(ctx context.Context, name string, born *int) (*domain.Author, error) {
	authorID, err := id.Generate(id.PrefixAuthor)
	if err != nil {
		return nil, err
	}

	author := domain.NewAuthor(authorID, name)
	if born != nil {
		author.Born = born
	}

	if err := s.validator.Validate(author); err != nil {
		return nil, err
	}
	if err := s.store.CreateAuthor(ctx, author); err != nil {
		return nil, err
	}

	s.logger.Info("author created", slog.String("author_id", author.ID), slog.String("name", author.Name))
	return author, nil
}

// EditAuthor sets the birth year of the author with the exact name.
func (s *CatalogService) EditAuthor(ctx context.Context, user *domain.User, name string, setBornTo int, args []string) (*domain.Author, error) {
	if user == nil {
		return nil, domainerrors.ErrUnauthenticated
	}

	author, err := s.store.SetAuthorBorn(ctx, name, setBornTo)
	if errors.Is(err, store.ErrNotFound) {
		err = errors.New("Author not found") //nolint:staticcheck // Client-facing message
	}
	if err != nil {
		return nil, writeFailure(domainerrors.CodeDatabase, "Error editing author: ", err, args)
	}
	return author, nil
}

// CreateAuthor stores a new author directly. No authentication is required.
func (s *CatalogService) CreateAuthor(ctx context.Context, name string, born *int, args []string) (*domain.Author, error) {
	author, err := s.newAuthor(ctx, name, born)
	if err != nil {
		return nil, writeFailure(domainerrors.CodeDatabase, "Error creating author: ", err, args)
	}
	return author, nil
}
