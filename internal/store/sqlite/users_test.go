package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/id"
	"github.com/libraryapp/library-server/internal/store"
)

func newTestUser(username string) *domain.User {
	u := &domain.User{Username: username, FavoriteGenre: "patterns"}
	u.ID = id.MustGenerate(id.PrefixUser)
	u.InitTimestamps()
	return u
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := newTestUser("mluukkai")

	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Username != "mluukkai" || got.FavoriteGenre != "patterns" {
		t.Errorf("unexpected user: %+v", got)
	}

	byName, err := s.GetUserByUsername(ctx, "mluukkai")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != u.ID {
		t.Errorf("expected id %s, got %s", u.ID, byName.ID)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateUser(ctx, newTestUser("mluukkai")); err != nil {
		t.Fatalf("create user: %v", err)
	}

	err := s.CreateUser(ctx, newTestUser("mluukkai"))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, `username "mluukkai" already exists`) {
		t.Errorf("unexpected message: %s", got)
	}
}

func TestGetUserByUsername_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetUserByUsername(context.Background(), "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
