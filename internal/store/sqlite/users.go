package sqlite

import (
	"context"
	"fmt"

	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/store"
)

// userColumns must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, username, favorite_genre`

func scanUser(scanner rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		createdAt string
		updatedAt string
	)

	if err := scanner.Scan(&u.ID, &createdAt, &updatedAt, &u.Username, &u.FavoriteGenre); err != nil {
		return nil, err
	}

	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user.
// Returns store.ErrAlreadyExists if the id or username is taken.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Username,
		user.FavoriteGenre,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", mapConstraint(err, "username", user.Username))
	}
	return nil
}

// GetUser retrieves a user by id.
// Returns store.ErrNotFound if the user does not exist.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if isNoRows(err) {
		return nil, store.Missing("user", "id", id)
	}
	return u, err
}

// GetUserByUsername retrieves a user by exact username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if isNoRows(err) {
		return nil, store.Missing("user", "username", username)
	}
	return u, err
}
