package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/domain"
	domainerrors "github.com/libraryapp/library-server/internal/errors"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/validation"
)

func TestMe(t *testing.T) {
	env := setupServiceTest(t)

	_, err := env.accounts.Me(nil)
	assert.Equal(t, domainerrors.CodeUnauthenticated, domainerrors.CodeOf(err))

	u := &domain.User{Username: "mluukkai"}
	got, err := env.accounts.Me(u)
	require.NoError(t, err)
	assert.Same(t, u, got)
}

func TestCreateUser(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	args := []string{"username", "favoriteGenre"}

	u, err := env.accounts.CreateUser(ctx, "mluukkai", "refactoring", args)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "refactoring", u.FavoriteGenre)

	_, err = env.accounts.CreateUser(ctx, "mluukkai", "classic", args)
	require.Error(t, err)
	var de *domainerrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domainerrors.CodeBadUserInput, de.Code)
	assert.Equal(t, `Creating the user failed: username "mluukkai" already exists`, de.Message)
	assert.Equal(t, args, de.Extensions["invalidArgs"])
	assert.Equal(t, `username "mluukkai" already exists`, de.Extensions["errorMessage"])
}

func TestCreateUser_Validation(t *testing.T) {
	env := setupServiceTest(t)

	_, err := env.accounts.CreateUser(context.Background(), "ml", "", []string{"username", "favoriteGenre"})
	require.Error(t, err)
	assert.Equal(t, domainerrors.CodeBadUserInput, domainerrors.CodeOf(err))
	assert.Contains(t, err.Error(), "User validation failed")
	assert.Contains(t, err.Error(), "favorite_genre: is required")
	assert.Contains(t, err.Error(), "username: must be at least 3 characters")
}

func TestLogin(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	user := env.signUp(t, "mluukkai")

	token, err := env.accounts.Login(ctx, "mluukkai", "secret", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, token.Value)

	identity, err := env.issuer.Verify(token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.Identity(), identity)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	env.signUp(t, "mluukkai")

	_, wrongPassword := env.accounts.Login(ctx, "mluukkai", "hunter2", "10.0.0.1")
	_, unknownUser := env.accounts.Login(ctx, "nobody", "secret", "10.0.0.2")

	for _, err := range []error{wrongPassword, unknownUser} {
		require.Error(t, err)
		assert.Equal(t, domainerrors.CodeBadUserInput, domainerrors.CodeOf(err))
		assert.Equal(t, "wrong credentials", err.Error())
	}
}

func TestLogin_RateLimitedPerClient(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	env.signUp(t, "mluukkai")

	for range 3 {
		_, err := env.accounts.Login(ctx, "mluukkai", "wrong", "10.0.0.9")
		assert.Equal(t, domainerrors.CodeBadUserInput, domainerrors.CodeOf(err))
	}

	_, err := env.accounts.Login(ctx, "mluukkai", "wrong", "10.0.0.9")
	assert.Equal(t, domainerrors.CodeRateLimited, domainerrors.CodeOf(err))

	_, err = env.accounts.Login(ctx, "mluukkai", "wrong", "10.0.0.10")
	assert.Equal(t, domainerrors.CodeBadUserInput, domainerrors.CodeOf(err))
}

func TestLogin_CorrectCredentialsNeverThrottled(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	env.signUp(t, "mluukkai")

	for i := range 12 {
		token, err := env.accounts.Login(ctx, "mluukkai", "secret", "10.0.0.9")
		require.NoError(t, err, "login %d", i+1)
		require.NotEmpty(t, token.Value)
	}

	// An exhausted bucket still lets the right password through.
	for range 4 {
		_, _ = env.accounts.Login(ctx, "mluukkai", "wrong", "10.0.0.9")
	}
	_, err := env.accounts.Login(ctx, "mluukkai", "secret", "10.0.0.9")
	assert.NoError(t, err)
}

func TestLogin_NilLimiterNeverRateLimits(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	env.signUp(t, "mluukkai")

	password, err := auth.NewSharedPassword("secret")
	require.NoError(t, err)
	accounts := NewAccountService(env.store, env.issuer, password, nil, validation.New(), logger.Discard())

	for range 20 {
		_, err := accounts.Login(ctx, "mluukkai", "wrong", "10.0.0.9")
		assert.Equal(t, domainerrors.CodeBadUserInput, domainerrors.CodeOf(err))
	}
}
