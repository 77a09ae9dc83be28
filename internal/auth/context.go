package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/libraryapp/library-server/internal/domain"
	domainerrors "github.com/libraryapp/library-server/internal/errors"
	"github.com/libraryapp/library-server/internal/store"
)

const bearerPrefix = "Bearer "

type ctxKey struct{}

// UserLookup resolves the account named by a verified credential.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// ContextBuilder turns the Authorization header of an incoming operation
// into the current user.
type ContextBuilder struct {
	issuer TokenIssuer
	users  UserLookup
	logger *slog.Logger
}

// NewContextBuilder creates a builder verifying credentials with issuer.
func NewContextBuilder(issuer TokenIssuer, users UserLookup, logger *slog.Logger) *ContextBuilder {
	return &ContextBuilder{issuer: issuer, users: users, logger: logger}
}

// Build resolves the current user for header.
//
// An absent or non-Bearer header yields a nil user and no error. A Bearer
// credential that fails verification yields an INVALID_TOKEN error. A valid
// credential whose account no longer exists yields a nil user.
func (b *ContextBuilder) Build(ctx context.Context, header string) (*domain.User, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, nil
	}

	identity, err := b.issuer.Verify(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		b.logger.Debug("credential verification failed", "error", err)
		return nil, domainerrors.InvalidToken("Invalid or malformed token", err)
	}

	user, err := b.users.GetUser(ctx, identity.ID)
	if errors.Is(err, store.ErrNotFound) {
		b.logger.Debug("credential names an unknown user", "user_id", identity.ID)
		return nil, nil
	}
	if err != nil {
		return nil, domainerrors.DatabaseError("Error resolving current user", err)
	}
	return user, nil
}

// WithCurrentUser returns a copy of ctx carrying user. A nil user marks the
// operation as anonymous.
func WithCurrentUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// CurrentUser returns the user attached by WithCurrentUser, or nil.
func CurrentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(ctxKey{}).(*domain.User)
	return user
}

type clientAddrKey struct{}

// WithClientAddr records the network address the operation came from.
func WithClientAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientAddrKey{}, addr)
}

// ClientAddr returns the address set by WithClientAddr, or "" when unknown.
func ClientAddr(ctx context.Context) string {
	addr, _ := ctx.Value(clientAddrKey{}).(string)
	return addr
}

type failureKey struct{}

// WithFailure records that the operation's credential was rejected. Every
// operation run under ctx must fail with err.
func WithFailure(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, failureKey{}, err)
}

// Failure returns the error recorded by WithFailure, or nil.
func Failure(ctx context.Context) error {
	err, _ := ctx.Value(failureKey{}).(error)
	return err
}
