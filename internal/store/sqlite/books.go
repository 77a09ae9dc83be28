package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/libraryapp/library-server/internal/domain"
)

// bookColumns must match the scan order in scanBook.
const bookColumns = `b.id, b.created_at, b.updated_at, b.title, b.published, b.author_id`

func scanBook(scanner rowScanner) (*domain.Book, error) {
	var (
		b         domain.Book
		createdAt string
		updatedAt string
	)

	if err := scanner.Scan(&b.ID, &createdAt, &updatedAt, &b.Title, &b.Published, &b.AuthorID); err != nil {
		return nil, err
	}

	var err error
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	b.Genres = []string{}
	return &b, nil
}

// CreateBook inserts a book and its genre rows in one transaction.
// Returns store.ErrAlreadyExists if the id or title is taken.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO books (id, created_at, updated_at, title, published, author_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		book.ID,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		book.Title,
		book.Published,
		book.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("create book: %w", mapConstraint(err, "title", book.Title))
	}

	for i, genre := range book.Genres {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO book_genres (book_id, position, genre) VALUES (?, ?, ?)`,
			book.ID, i, genre); err != nil {
			return fmt.Errorf("insert book genre: %w", err)
		}
	}

	return tx.Commit()
}

// ListBooks returns every book in insertion order.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	return s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books b ORDER BY b.rowid`)
}

// ListBooksByGenre returns books tagged with genre.
func (s *Store) ListBooksByGenre(ctx context.Context, genre string) ([]*domain.Book, error) {
	return s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books b
		WHERE EXISTS (SELECT 1 FROM book_genres g WHERE g.book_id = b.id AND g.genre = ?)
		ORDER BY b.rowid`, genre)
}

// ListBooksByAuthor returns books referencing authorID.
func (s *Store) ListBooksByAuthor(ctx context.Context, authorID string) ([]*domain.Book, error) {
	return s.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books b WHERE b.author_id = ? ORDER BY b.rowid`, authorID)
}

// CountBooks returns the number of books.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}

// CountBooksByAuthor returns how many books reference authorID.
func (s *Store) CountBooksByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE author_id = ?`, authorID).Scan(&n)
	return n, err
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	books := make([]*domain.Book, 0)
	byID := make(map[string]*domain.Book)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
		byID[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadGenres(ctx, byID); err != nil {
		return nil, err
	}
	return books, nil
}

// loadGenres fills in Genres for the given books with a single query.
func (s *Store) loadGenres(ctx context.Context, byID map[string]*domain.Book) error {
	if len(byID) == 0 {
		return nil
	}

	ids := make([]any, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT book_id, genre FROM book_genres WHERE book_id IN (`+placeholders+`) ORDER BY book_id, position`,
		ids...)
	if err != nil {
		return fmt.Errorf("query book genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookID, genre string
		if err := rows.Scan(&bookID, &genre); err != nil {
			return fmt.Errorf("scan book genre: %w", err)
		}
		if b, ok := byID[bookID]; ok {
			b.Genres = append(b.Genres, genre)
		}
	}
	return rows.Err()
}
