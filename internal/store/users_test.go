package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/id"
	"github.com/libraryapp/library-server/internal/store"
)

func newTestUser(username string) *domain.User {
	u := &domain.User{Username: username, FavoriteGenre: "refactoring"}
	u.ID = id.MustGenerate(id.PrefixUser)
	u.InitTimestamps()
	return u
}

func TestCreateUser(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := newTestUser("mluukkai")
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "mluukkai", got.Username)
	assert.Equal(t, "refactoring", got.FavoriteGenre)

	byName, err := s.GetUserByUsername(ctx, "mluukkai")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, newTestUser("mluukkai")))

	err := s.CreateUser(ctx, newTestUser("mluukkai"))
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestGetUser_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetUser(context.Background(), "user-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPing(t *testing.T) {
	s := setupTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
