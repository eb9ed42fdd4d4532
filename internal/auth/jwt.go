// Package auth handles authentication: JWT session tokens, password hashing,
// TOTP two-factor codes, one-time email tokens, GitHub OAuth, and the HTTP
// middleware that gates the API.
//
// HOW A REQUEST IS AUTHENTICATED:
//  1. The client logs in (password or GitHub) and receives a signed JWT.
//  2. It sends the JWT back as "Authorization: Bearer <jwt>" (or in the
//     "token" cookie set by the GitHub callback).
//  3. Protect validates the signature and expiry, loads the user and puts it
//     in the request context. Authorize then checks the user's role.
//
// JWTs are stateless: the server keeps no session table. The flip side is
// that a token cannot be revoked before it expires; deleting the user is
// what actually cuts access, because Protect reloads the user every time.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "clothconnect"

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid covers every other validation failure.
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// TokenService creates and validates HS256-signed JWTs.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService returns a TokenService. The secret must be at least 16
// characters; ttl is how long issued tokens stay valid.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token lifetime must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. The subject is the user id.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates a signed token for userID with the configured lifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration creates a token with a custom lifetime. Tests use a
// negative duration to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenStr and returns the user id it was issued for.
// Errors wrap ErrTokenExpired or ErrTokenInvalid.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			// Reject anything not signed with HMAC ("alg: none" and RS/HS confusion).
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", ErrTokenInvalid
	}
	return c.Subject, nil
}

// TTL is the lifetime of tokens from Generate. The cookie set by the OAuth
// callback uses it as Max-Age.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
