package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/golang-jwt/jwt/v5"

	"github.com/libraryapp/library-server/internal/domain"
)

// Credential formats.
const (
	FormatJWT    = "jwt"
	FormatPASETO = "paseto"
)

const tokenIssuer = "library-server"

// ErrMalformedClaims is returned when a credential verifies but does not
// carry a usable identity.
var ErrMalformedClaims = errors.New("credential is missing identity claims")

// TokenIssuer signs identities into opaque bearer credentials and verifies them.
type TokenIssuer interface {
	Issue(identity domain.Identity) (string, error)
	Verify(token string) (domain.Identity, error)
}

// NewTokenIssuer returns the issuer for format, keyed with secret.
func NewTokenIssuer(format string, secret []byte) (TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret cannot be empty")
	}

	switch format {
	case FormatJWT, "":
		return NewJWTIssuer(secret), nil
	case FormatPASETO:
		return NewPASETOIssuer(secret)
	default:
		return nil, fmt.Errorf("unknown token format %q", format)
	}
}

// JWTIssuer issues HS256-signed JWTs.
type JWTIssuer struct {
	secret []byte
}

// NewJWTIssuer creates an HS256 issuer.
func NewJWTIssuer(secret []byte) *JWTIssuer {
	return &JWTIssuer{secret: secret}
}

// Issue signs identity. The token has no expiry claim.
func (i *JWTIssuer) Issue(identity domain.Identity) (string, error) {
	claims := jwtClaims{
		Username: identity.Username,
		ID:       identity.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and returns the embedded identity.
// Expiry is enforced only when a token carries an exp claim.
func (i *JWTIssuer) Verify(token string) (domain.Identity, error) {
	var claims jwtClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	if claims.ID == "" {
		return domain.Identity{}, ErrMalformedClaims
	}
	return claims.identity(), nil
}

// PASETOIssuer issues v4.local (encrypted) tokens.
type PASETOIssuer struct {
	key paseto.V4SymmetricKey
}

// NewPASETOIssuer creates a v4.local issuer. Secrets that are not exactly
// 32 bytes are stretched with SHA-256.
func NewPASETOIssuer(secret []byte) (*PASETOIssuer, error) {
	material := secret
	if len(material) != signingKeySize {
		sum := sha256.Sum256(secret)
		material = sum[:]
	}

	key, err := paseto.V4SymmetricKeyFromBytes(material)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	return &PASETOIssuer{key: key}, nil
}

// Issue encrypts identity into a v4.local token without an expiration.
func (i *PASETOIssuer) Issue(identity domain.Identity) (string, error) {
	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetIssuedAt(time.Now())
	token.SetString(claimUsername, identity.Username)
	token.SetString(claimID, identity.ID)

	return token.V4Encrypt(i.key, nil), nil
}

// Verify decrypts token and returns the embedded identity.
func (i *PASETOIssuer) Verify(token string) (domain.Identity, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	parsed, err := parser.ParseV4Local(i.key, token, nil)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	id, err := parsed.GetString(claimID)
	if err != nil || id == "" {
		return domain.Identity{}, ErrMalformedClaims
	}
	username, _ := parsed.GetString(claimUsername) //nolint:errcheck // Username is informational

	return domain.Identity{Username: username, ID: id}, nil
}
