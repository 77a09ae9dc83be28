package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/libraryapp/library-server/internal/auth"
	"github.com/libraryapp/library-server/internal/domain"
	domainerrors "github.com/libraryapp/library-server/internal/errors"
	"github.com/libraryapp/library-server/internal/id"
	"github.com/libraryapp/library-server/internal/store"
	"github.com/libraryapp/library-server/internal/validation"
)

// LoginLimiter decides whether a client may attempt another login.
type LoginLimiter interface {
	Allow(key string) bool
}

// AccountService implements sign-up, login and the current-user query.
type AccountService struct {
	users     UserStore
	issuer    auth.TokenIssuer
	password  *auth.SharedPassword
	limiter   LoginLimiter
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAccountService creates an account service. A nil limiter disables
// login rate limiting.
func NewAccountService(
	users UserStore,
	issuer auth.TokenIssuer,
	password *auth.SharedPassword,
	limiter LoginLimiter,
	validator *validation.Validator,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		issuer:    issuer,
		password:  password,
		limiter:   limiter,
		validator: validator,
		logger:    logger,
	}
}

// Me returns user, failing when the operation is anonymous.
func (s *AccountService) Me(user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, domainerrors.ErrUnauthenticated
	}
	return user, nil
}

// CreateUser registers a new account.
func (s *AccountService) CreateUser(ctx context.Context, username, favoriteGenre string, args []string) (*domain.User, error) {
	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, writeFailure(domainerrors.CodeBadUserInput, "Creating the user failed: ", err, args)
	}

	user := &domain.User{Username: username, FavoriteGenre: favoriteGenre}
	user.ID = userID
	user.InitTimestamps()

	if err := s.validator.Validate(user); err != nil {
		return nil, writeFailure(domainerrors.CodeBadUserInput, "Creating the user failed: ", err, args)
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, writeFailure(domainerrors.CodeBadUserInput, "Creating the user failed: ", err, args)
	}

	s.logger.Info("user created", slog.String("user_id", user.ID), slog.String("username", user.Username))
	return user, nil
}

// Login checks username and the shared password and issues a credential.
// An unknown username and a wrong password fail with the same error.
// clientKey identifies the caller for rate limiting; only failed attempts
// are charged, so correct credentials always yield a token.
func (s *AccountService) Login(ctx context.Context, username, password, clientKey string) (*domain.Token, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.DatabaseError("Error looking up user", err)
	}

	// Always run the hash so both failure paths cost the same.
	passwordOK := s.password.Matches(password)
	if user == nil || !passwordOK {
		if s.limiter != nil && !s.limiter.Allow(clientKey) {
			s.logger.Warn("login rate limit exceeded", slog.String("client", clientKey))
			return nil, domainerrors.RateLimited("Too many login attempts, try again later")
		}
		return nil, domainerrors.BadUserInput("wrong credentials")
	}

	value, err := s.issuer.Issue(user.Identity())
	if err != nil {
		return nil, domainerrors.Internal("Could not issue credentials").WithCause(err)
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &domain.Token{Value: value}, nil
}
