package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/libraryapp/library-server/internal/domain"
)

// Claim names shared by both credential formats.
const (
	claimUsername = "username"
	claimID       = "id"
)

// jwtClaims is the JWT payload: the user's identity plus the registered
// claims. No expiry is set, so issued tokens stay valid until the signing key changes.
type jwtClaims struct {
	Username string `json:"username"`
	ID       string `json:"id"`
	jwt.RegisteredClaims
}

func (c *jwtClaims) identity() domain.Identity {
	return domain.Identity{Username: c.Username, ID: c.ID}
}
