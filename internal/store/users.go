package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/libraryapp/library-server/internal/domain"
)

// CreateUser stores a new user. Usernames are unique.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := s.users.Create(ctx, user.ID, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, Missing("user", "id", id)
	}
	return u, err
}

// GetUserByUsername returns the user with an exactly matching username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, err := s.users.GetByIndex(ctx, indexUsername, username)
	if errors.Is(err, ErrNotFound) {
		return nil, Missing("user", "username", username)
	}
	return u, err
}
