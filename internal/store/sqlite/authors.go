package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/store"
)

// authorColumns must match the scan order in scanAuthor.
const authorColumns = `id, created_at, updated_at, name, born`

func scanAuthor(scanner rowScanner) (*domain.Author, error) {
	var (
		a         domain.Author
		createdAt string
		updatedAt string
		born      sql.NullInt64
	)

	if err := scanner.Scan(&a.ID, &createdAt, &updatedAt, &a.Name, &born); err != nil {
		return nil, err
	}

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if born.Valid {
		year := int(born.Int64)
		a.Born = &year
	}
	return &a, nil
}

// CreateAuthor inserts a new author.
// Returns store.ErrAlreadyExists if the id or name is taken.
func (s *Store) CreateAuthor(ctx context.Context, author *domain.Author) error {
	var born sql.NullInt64
	if author.Born != nil {
		born = sql.NullInt64{Int64: int64(*author.Born), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO authors (`+authorColumns+`) VALUES (?, ?, ?, ?, ?)`,
		author.ID,
		formatTime(author.CreatedAt),
		formatTime(author.UpdatedAt),
		author.Name,
		born,
	)
	if err != nil {
		return fmt.Errorf("create author: %w", mapConstraint(err, "name", author.Name))
	}
	return nil
}

// GetAuthor retrieves an author by id.
func (s *Store) GetAuthor(ctx context.Context, id string) (*domain.Author, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+authorColumns+` FROM authors WHERE id = ?`, id)
	a, err := scanAuthor(row)
	if isNoRows(err) {
		return nil, store.Missing("author", "id", id)
	}
	return a, err
}

// GetAuthorByName retrieves an author by exact name.
func (s *Store) GetAuthorByName(ctx context.Context, name string) (*domain.Author, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+authorColumns+` FROM authors WHERE name = ?`, name)
	a, err := scanAuthor(row)
	if isNoRows(err) {
		return nil, store.Missing("author", "name", name)
	}
	return a, err
}

// ListAuthors returns all authors in insertion order.
func (s *Store) ListAuthors(ctx context.Context) ([]*domain.Author, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+authorColumns+` FROM authors ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	authors := make([]*domain.Author, 0)
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, a)
	}
	return authors, rows.Err()
}

// CountAuthors returns the number of authors.
func (s *Store) CountAuthors(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM authors`).Scan(&n)
	return n, err
}

// SetAuthorBorn updates the birth year of the author with the exact name in
// one statement and returns the updated row.
func (s *Store) SetAuthorBorn(ctx context.Context, name string, born int) (*domain.Author, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE authors SET born = ?, updated_at = ? WHERE name = ? RETURNING `+authorColumns,
		born, formatTime(time.Now()), name)

	a, err := scanAuthor(row)
	if isNoRows(err) {
		return nil, store.Missing("author", "name", name)
	}
	if err != nil {
		return nil, fmt.Errorf("set author born: %w", err)
	}
	return a, nil
}
