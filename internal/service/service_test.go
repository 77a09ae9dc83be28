package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/pubsub"
	"github.com/libraryapp/library-server/internal/ratelimit"
	"github.com/libraryapp/library-server/internal/store"
	"github.com/libraryapp/library-server/internal/validation"
)

type testEnv struct {
	store    *store.Store
	bus      *pubsub.Bus
	catalog  *CatalogService
	accounts *AccountService
	issuer   auth.TokenIssuer
	limiter  *ratelimit.KeyedRateLimiter
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.New(t.TempDir(), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	bus := pubsub.New(logger.Discard(), 8)
	t.Cleanup(bus.Close)

	issuer := auth.NewJWTIssuer([]byte("test-secret"))
	password, err := auth.NewSharedPassword("secret")
	require.NoError(t, err)

	limiter := ratelimit.New(0.001, 3)
	t.Cleanup(limiter.Stop)

	v := validation.New()
	return &testEnv{
		store:    s,
		bus:      bus,
		catalog:  NewCatalogService(s, bus, v, logger.Discard()),
		accounts: NewAccountService(s, issuer, password, limiter, v, logger.Discard()),
		issuer:   issuer,
		limiter:  limiter,
	}
}

func (e *testEnv) signUp(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := e.accounts.CreateUser(context.Background(), username, "refactoring", []string{"username", "favoriteGenre"})
	require.NoError(t, err)
	return u
}

func (e *testEnv) addBook(t *testing.T, user *domain.User, title, author string, published int, genres ...string) *domain.PopulatedBook {
	t.Helper()
	b, err := e.catalog.AddBook(context.Background(), user, AddBookInput{
		Title:     title,
		Author:    &author,
		Published: published,
		Genres:    genres,
	}, []string{"title", "author", "published", "genres"})
	require.NoError(t, err)
	return b
}

func nextEvent(t *testing.T, ch <-chan pubsub.Event) pubsub.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return pubsub.Event{}
	}
}

func ptr[T any](v T) *T { return &v }
